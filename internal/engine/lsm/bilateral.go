package lsm

import (
	"sort"

	"kyd/pkg/money"
)

// bilateralPass finds every pair of agents with obligations flowing both
// directions and nets them down to the smaller side's surplus, settling
// atomically when the net payer's resulting balance stays within its
// credit capacity (spec §4.10). Settled transaction IDs are recorded into
// the shared settled set so the caller's cycle pass never reuses them.
func bilateralPass(obligations []Obligation, agents map[string]*AgentState, settled map[string]bool) []BilateralResult {
	var results []BilateralResult
	for _, pair := range pairsInDeterministicOrder(obligations) {
		a, b := pair[0], pair[1]
		var aToB, bToA []Obligation
		for _, o := range obligations {
			switch {
			case o.Sender == a && o.Receiver == b:
				aToB = append(aToB, o)
			case o.Sender == b && o.Receiver == a:
				bToA = append(bToA, o)
			}
		}
		if len(aToB) == 0 || len(bToA) == 0 {
			continue
		}

		sumA := sumAmounts(aToB)
		sumB := sumAmounts(bToA)
		net := sumA - sumB

		var payer string
		var netAbs money.Money
		switch {
		case net > 0:
			payer, netAbs = a, net
		case net < 0:
			payer, netAbs = b, -net
		}

		if payer != "" {
			state := agents[payer]
			if state == nil || !withinCapacity(state, state.Balance-netAbs) {
				continue
			}
		}

		txIDs := make([]string, 0, len(aToB)+len(bToA))
		for _, o := range aToB {
			txIDs = append(txIDs, o.TransactionID)
		}
		for _, o := range bToA {
			txIDs = append(txIDs, o.TransactionID)
		}
		sort.Strings(txIDs)
		for _, id := range txIDs {
			settled[id] = true
		}

		if payer == a {
			agents[a].Balance -= netAbs
			agents[b].Balance += netAbs
		} else if payer == b {
			agents[b].Balance -= netAbs
			agents[a].Balance += netAbs
		}

		results = append(results, BilateralResult{
			AgentA:  a,
			AgentB:  b,
			AmountA: sumA,
			AmountB: sumB,
			TxIDs:   txIDs,
		})
	}
	return results
}

func sumAmounts(obligations []Obligation) money.Money {
	var total money.Money
	for _, o := range obligations {
		total, _ = total.Add(o.Amount)
	}
	return total
}

// pairsInDeterministicOrder returns every unordered agent pair with at
// least one obligation between them, sorted lexicographically.
func pairsInDeterministicOrder(obligations []Obligation) [][2]string {
	seen := make(map[[2]string]bool)
	for _, o := range obligations {
		a, b := o.Sender, o.Receiver
		if a > b {
			a, b = b, a
		}
		seen[[2]string{a, b}] = true
	}
	pairs := make([][2]string, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}
