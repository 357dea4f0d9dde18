package lsm

import (
	"sort"

	"kyd/pkg/money"
)

type graphEdge struct {
	to     string
	txID   string
	amount money.Money
}

// cyclePass finds simple directed cycles of length 3..MaxCycleLength over
// the remaining pending obligations (one representative transaction per
// sender/receiver pair — spec §4.10's "selected transactions"), settling
// each in shortest-first, lexicographically-smallest-agent-tuple order
// when every agent's resulting net position stays within its credit
// capacity.
func cyclePass(cfg Config, obligations []Obligation, agents map[string]*AgentState, settled map[string]bool) []CycleResult {
	graph := buildGraph(obligations)
	maxLen := cfg.MaxCycleLength
	if maxLen < 3 {
		maxLen = 3
	}
	cycles := findCycles(graph, maxLen)

	var results []CycleResult
	for _, cycle := range cycles {
		txIDs := make([]string, 0, len(cycle))
		usedAlready := false
		for _, e := range cycle {
			if settled[e.txID] {
				usedAlready = true
				break
			}
			txIDs = append(txIDs, e.txID)
		}
		if usedAlready {
			continue
		}

		netPositions := make(map[string]money.Money)
		txAmounts := make(map[string]money.Money)
		agentsInCycle := make([]string, 0, len(cycle))
		from := cycleOrigin(cycle)
		current := from
		var total money.Money
		for _, e := range cycle {
			netPositions[current], _ = netPositions[current].Sub(e.amount)
			netPositions[e.to], _ = netPositions[e.to].Add(e.amount)
			txAmounts[e.txID] = e.amount
			total, _ = total.Add(e.amount)
			agentsInCycle = append(agentsInCycle, current)
			current = e.to
		}

		feasible := true
		for agentID, net := range netPositions {
			state := agents[agentID]
			if state == nil {
				feasible = false
				break
			}
			if !withinCapacity(state, state.Balance+net) {
				feasible = false
				break
			}
		}
		if !feasible {
			continue
		}

		for _, id := range txIDs {
			settled[id] = true
		}
		for agentID, net := range netPositions {
			agents[agentID].Balance += net
		}

		sort.Strings(agentsInCycle)
		results = append(results, CycleResult{
			Agents:       agentsInCycle,
			TxIDs:        txIDs,
			TxAmounts:    txAmounts,
			NetPositions: netPositions,
			TotalValue:   total,
		})
	}
	return results
}

func cycleOrigin(cycle []graphEdge) string {
	// The cycle's first edge's source is whatever vertex the DFS started
	// from; reconstructable as the receiver of the last edge.
	return cycle[len(cycle)-1].to
}

// buildGraph picks, for each (sender, receiver) pair with at least one
// pending obligation, the earliest-encountered transaction as that edge's
// representative (spec's "selected transactions"); any remaining
// obligations on the same pair are left for a later LSM iteration.
func buildGraph(obligations []Obligation) map[string][]graphEdge {
	type key struct{ from, to string }
	chosen := make(map[key]Obligation)
	order := make([]key, 0)
	for _, o := range obligations {
		k := key{o.Sender, o.Receiver}
		if _, ok := chosen[k]; !ok {
			chosen[k] = o
			order = append(order, k)
		}
	}
	graph := make(map[string][]graphEdge)
	for _, k := range order {
		o := chosen[k]
		graph[k.from] = append(graph[k.from], graphEdge{to: k.to, txID: o.TransactionID, amount: o.Amount})
	}
	for node := range graph {
		sort.Slice(graph[node], func(i, j int) bool { return graph[node][i].to < graph[node][j].to })
	}
	return graph
}

// findCycles enumerates simple cycles of length 3..maxLen, each reported
// exactly once, by running a bounded DFS rooted at each node in
// ascending order while restricting traversal to nodes no smaller than
// the root — the standard trick to avoid reporting the same cycle once
// per rotation (Johnson's algorithm applies the same restriction via its
// "least vertex" rule, here bounded by maxLen for tractability).
func findCycles(graph map[string][]graphEdge, maxLen int) [][]graphEdge {
	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	var cycles [][]graphEdge
	for i, root := range nodes {
		allowed := make(map[string]bool, len(nodes)-i)
		for _, n := range nodes[i:] {
			allowed[n] = true
		}
		visited := map[string]bool{root: true}
		var path []graphEdge

		var dfs func(current string)
		dfs = func(current string) {
			if len(path) >= maxLen {
				return
			}
			for _, e := range graph[current] {
				if !allowed[e.to] {
					continue
				}
				if e.to == root {
					if len(path)+1 >= 3 {
						cycle := append([]graphEdge(nil), path...)
						cycle = append(cycle, e)
						cycles = append(cycles, cycle)
					}
					continue
				}
				if visited[e.to] {
					continue
				}
				visited[e.to] = true
				path = append(path, e)
				dfs(e.to)
				path = path[:len(path)-1]
				visited[e.to] = false
			}
		}
		dfs(root)
	}

	sort.SliceStable(cycles, func(i, j int) bool {
		if len(cycles[i]) != len(cycles[j]) {
			return len(cycles[i]) < len(cycles[j])
		}
		return cycleTupleKey(cycles[i]) < cycleTupleKey(cycles[j])
	})
	return cycles
}

func cycleTupleKey(cycle []graphEdge) string {
	agents := make([]string, 0, len(cycle))
	agents = append(agents, cycleOrigin(cycle))
	for _, e := range cycle[:len(cycle)-1] {
		agents = append(agents, e.to)
	}
	sort.Strings(agents)
	key := ""
	for _, a := range agents {
		key += a + "|"
	}
	return key
}
