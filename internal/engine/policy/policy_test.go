package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func field(name string) *RawExpr  { return &RawExpr{Kind: ExprField, Field: name} }
func value(v int64) *RawExpr      { return &RawExpr{Kind: ExprValue, Value: v} }
func param(name string) *RawExpr  { return &RawExpr{Kind: ExprParam, Param: name} }

func releaseNode(id string) *RawNode {
	return &RawNode{NodeID: id, Kind: NodeAction, Action: "release"}
}

func holdNode(id string) *RawNode {
	return &RawNode{NodeID: id, Kind: NodeAction, Action: "hold"}
}

func TestCompileRejectsDuplicateNodeID(t *testing.T) {
	raw := &RawPolicy{
		AgentID: "BANK_A",
		PaymentTree: &RawTree{Root: &RawNode{
			NodeID: "n1",
			Kind:   NodeCondition,
			Condition: &RawCondition{
				Op:    OpGte,
				Left:  field("balance"),
				Right: value(0),
			},
			OnTrue:  releaseNode("n1"), // duplicate
			OnFalse: holdNode("n2"),
		}},
		StrategicCollateralTree: &RawTree{Root: holdCollateralNode("s1")},
	}

	_, err := Compile(raw)
	require.Error(t, err)
}

func holdCollateralNode(id string) *RawNode {
	return &RawNode{NodeID: id, Kind: NodeAction, Action: "hold_collateral"}
}

func TestCompileRejectsUnknownField(t *testing.T) {
	raw := &RawPolicy{
		AgentID: "BANK_A",
		PaymentTree: &RawTree{Root: &RawNode{
			NodeID:    "n1",
			Kind:      NodeCondition,
			Condition: &RawCondition{Op: OpGte, Left: field("not_a_field"), Right: value(0)},
			OnTrue:    releaseNode("n2"),
			OnFalse:   holdNode("n3"),
		}},
		StrategicCollateralTree: &RawTree{Root: holdCollateralNode("s1")},
	}

	_, err := Compile(raw)
	require.Error(t, err)
}

func TestEvaluateReleaseWhenLiquiditySufficient(t *testing.T) {
	raw := &RawPolicy{
		AgentID: "BANK_A",
		PaymentTree: &RawTree{Root: &RawNode{
			NodeID: "liquidity_check",
			Kind:   NodeCondition,
			Condition: &RawCondition{
				Op:    OpGte,
				Left:  field("effective_liquidity"),
				Right: field("remaining_amount"),
			},
			OnTrue:  releaseNode("release"),
			OnFalse: holdNode("hold"),
		}},
		StrategicCollateralTree: &RawTree{Root: holdCollateralNode("s1")},
	}

	p, err := Compile(raw)
	require.NoError(t, err)

	sufficient := &Environment{EffectiveLiquidity: 1000, RemainingAmount: 500}
	d, err := Evaluate(p.AgentID, p.PaymentTree, sufficient)
	require.NoError(t, err)
	assert.Equal(t, ActionRelease, d.Action)

	insufficient := &Environment{EffectiveLiquidity: 100, RemainingAmount: 500}
	d, err = Evaluate(p.AgentID, p.PaymentTree, insufficient)
	require.NoError(t, err)
	assert.Equal(t, ActionHold, d.Action)
}

func TestEvaluateDivideByZeroIsPolicyError(t *testing.T) {
	raw := &RawPolicy{
		AgentID: "BANK_A",
		PaymentTree: &RawTree{Root: &RawNode{
			NodeID: "bad_math",
			Kind:   NodeCondition,
			Condition: &RawCondition{
				Op:   OpEq,
				Left: &RawExpr{Kind: ExprCompute, Op: OpDiv, Left: value(10), Right: param("zero_param")},
				Right: value(0),
			},
			OnTrue:  releaseNode("release"),
			OnFalse: holdNode("hold"),
		}},
		StrategicCollateralTree: &RawTree{Root: holdCollateralNode("s1")},
		Parameters:              map[string]int64{"zero_param": 0},
	}

	p, err := Compile(raw)
	require.NoError(t, err)

	_, err = Evaluate(p.AgentID, p.PaymentTree, &Environment{})
	require.Error(t, err)
	var polErr interface{ Error() string }
	require.ErrorAs(t, err, &polErr)
}

func TestCompileRequiresStrategicCollateralTree(t *testing.T) {
	raw := &RawPolicy{
		AgentID:     "BANK_A",
		PaymentTree: &RawTree{Root: releaseNode("n1")},
	}
	_, err := Compile(raw)
	require.Error(t, err)
}

func TestSplitDecisionCarriesPartCount(t *testing.T) {
	raw := &RawPolicy{
		AgentID:                 "BANK_A",
		PaymentTree:             &RawTree{Root: &RawNode{NodeID: "split", Kind: NodeAction, Action: "split", SplitParts: 3}},
		StrategicCollateralTree: &RawTree{Root: holdCollateralNode("s1")},
	}
	p, err := Compile(raw)
	require.NoError(t, err)

	d, err := Evaluate(p.AgentID, p.PaymentTree, &Environment{})
	require.NoError(t, err)
	assert.Equal(t, ActionSplit, d.Action)
	assert.Equal(t, 3, d.SplitParts)
}
