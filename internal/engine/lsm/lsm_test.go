package lsm

import (
	"testing"

	"kyd/pkg/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agentState(balance, capacity int64) *AgentState {
	return &AgentState{Balance: money.Money(balance), CreditCapacity: money.Money(capacity)}
}

func TestBilateralOffsetNetsOppositeFlows(t *testing.T) {
	agents := map[string]*AgentState{
		"A": agentState(0, 500), // can go to -500, enough for the 400 net
		"B": agentState(0, 0),
	}
	obligations := []Obligation{
		{TransactionID: "t1", Sender: "A", Receiver: "B", Amount: money.Money(1000)},
		{TransactionID: "t2", Sender: "B", Receiver: "A", Amount: money.Money(600)},
	}

	result := RunPass(Config{MaxCycleLength: 5, MaxIterations: 3}, obligations, agents)

	require.Len(t, result.Bilateral, 1)
	assert.Equal(t, money.Money(1000), result.Bilateral[0].AmountA)
	assert.Equal(t, money.Money(600), result.Bilateral[0].AmountB)
	assert.ElementsMatch(t, []string{"t1", "t2"}, result.SettledTxIDs)
	assert.Equal(t, money.Money(-400), agents["A"].Balance)
	assert.Equal(t, money.Money(400), agents["B"].Balance)
}

func TestBilateralOffsetBlockedWhenPayerExceedsCapacity(t *testing.T) {
	agents := map[string]*AgentState{
		"A": agentState(0, 100), // can only go to -100
		"B": agentState(0, 0),
	}
	obligations := []Obligation{
		{TransactionID: "t1", Sender: "A", Receiver: "B", Amount: money.Money(1000)},
		{TransactionID: "t2", Sender: "B", Receiver: "A", Amount: money.Money(100)},
	}
	// net A owes B 900, which would push A to -900, exceeding its -100 capacity.

	result := RunPass(Config{MaxCycleLength: 5, MaxIterations: 3}, obligations, agents)

	assert.Empty(t, result.Bilateral)
	assert.Empty(t, result.SettledTxIDs)
}

func TestThreeAgentCycleSettlesWhenFeasible(t *testing.T) {
	agents := map[string]*AgentState{
		"A": agentState(0, 1000),
		"B": agentState(0, 1000),
		"C": agentState(0, 1000),
	}
	obligations := []Obligation{
		{TransactionID: "t1", Sender: "A", Receiver: "B", Amount: money.Money(500)},
		{TransactionID: "t2", Sender: "B", Receiver: "C", Amount: money.Money(300)},
		{TransactionID: "t3", Sender: "C", Receiver: "A", Amount: money.Money(200)},
	}

	result := RunPass(Config{MaxCycleLength: 5, MaxIterations: 3}, obligations, agents)

	require.Len(t, result.Cycles, 1)
	cycle := result.Cycles[0]
	assert.ElementsMatch(t, []string{"A", "B", "C"}, cycle.Agents)
	assert.ElementsMatch(t, []string{"t1", "t2", "t3"}, cycle.TxIDs)
	assert.Equal(t, money.Money(-300), cycle.NetPositions["A"]) // pays 500, receives 200
	assert.Equal(t, money.Money(200), cycle.NetPositions["B"])  // receives 500, pays 300
	assert.Equal(t, money.Money(100), cycle.NetPositions["C"])  // receives 300, pays 200
}

func TestCycleRejectedWhenAnyAgentExceedsCapacity(t *testing.T) {
	agents := map[string]*AgentState{
		"A": agentState(0, 50), // net outflow of 300 exceeds capacity of 50
		"B": agentState(0, 1000),
		"C": agentState(0, 1000),
	}
	obligations := []Obligation{
		{TransactionID: "t1", Sender: "A", Receiver: "B", Amount: money.Money(500)},
		{TransactionID: "t2", Sender: "B", Receiver: "C", Amount: money.Money(300)},
		{TransactionID: "t3", Sender: "C", Receiver: "A", Amount: money.Money(200)},
	}

	result := RunPass(Config{MaxCycleLength: 5, MaxIterations: 3}, obligations, agents)

	assert.Empty(t, result.Cycles)
	assert.Empty(t, result.SettledTxIDs)
}

func TestNoCycleBelowLengthThree(t *testing.T) {
	agents := map[string]*AgentState{
		"A": agentState(0, 1000),
		"B": agentState(0, 1000),
	}
	// A->B and B->A already get caught by the bilateral pass, not cycles;
	// verify the cycle pass alone never reports a 2-length result.
	obligations := []Obligation{
		{TransactionID: "t1", Sender: "A", Receiver: "B", Amount: money.Money(500)},
		{TransactionID: "t2", Sender: "B", Receiver: "A", Amount: money.Money(500)},
	}
	graph := buildGraph(obligations)
	cycles := findCycles(graph, 5)
	for _, c := range cycles {
		assert.GreaterOrEqual(t, len(c), 3)
	}
}

func TestSettlementIsDeterministicAcrossRuns(t *testing.T) {
	build := func() ([]Obligation, map[string]*AgentState) {
		return []Obligation{
				{TransactionID: "t1", Sender: "A", Receiver: "B", Amount: money.Money(500)},
				{TransactionID: "t2", Sender: "B", Receiver: "C", Amount: money.Money(300)},
				{TransactionID: "t3", Sender: "C", Receiver: "A", Amount: money.Money(200)},
			}, map[string]*AgentState{
				"A": agentState(0, 1000),
				"B": agentState(0, 1000),
				"C": agentState(0, 1000),
			}
	}

	obligations1, agents1 := build()
	result1 := RunPass(Config{MaxCycleLength: 5, MaxIterations: 3}, obligations1, agents1)

	obligations2, agents2 := build()
	result2 := RunPass(Config{MaxCycleLength: 5, MaxIterations: 3}, obligations2, agents2)

	assert.Equal(t, result1.Cycles, result2.Cycles)
	assert.Equal(t, agents1["A"].Balance, agents2["A"].Balance)
}
