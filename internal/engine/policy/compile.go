package policy

import (
	"fmt"

	kyderrors "kyd/pkg/errors"
)

// Raw* types mirror what an external YAML/JSON policy document decodes
// into (the config-loading layer itself is an external collaborator per
// spec §1); Compile resolves every string-keyed name in one pass into the
// enum-tagged, pre-resolved form Evaluate walks per tick (spec §9).

// RawExpr is the uncompiled form of Expr.
type RawExpr struct {
	Kind  ExprKind
	Value int64
	Field string
	Param string
	Op    ArithOp
	Left  *RawExpr
	Right *RawExpr
}

// RawCondition is the uncompiled form of Condition.
type RawCondition struct {
	Op    CompareOp
	Left  *RawExpr
	Right *RawExpr
}

// RawNode is the uncompiled form of Node.
type RawNode struct {
	NodeID string
	Kind   NodeKind

	Action            string
	SplitParts        int
	Amount            int64
	Reason            string
	AutoWithdrawAfter int64
	HasAutoWithdraw   bool

	Condition *RawCondition
	OnTrue    *RawNode
	OnFalse   *RawNode
}

// RawTree is the uncompiled form of Tree.
type RawTree struct {
	Root *RawNode
}

// RawPolicy is the uncompiled form of Policy, plus the flat parameter
// table that ExprParam reads from (spec §4.2: "Param(name) // read from
// policy.parameters").
type RawPolicy struct {
	AgentID                 string
	Parameters              map[string]int64
	PaymentTree             *RawTree
	StrategicCollateralTree *RawTree
	EndOfTickCollateralTree *RawTree // optional; nil means "not configured"
}

var actionNames = map[string]ActionKind{
	"release":              ActionRelease,
	"hold":                 ActionHold,
	"drop":                 ActionDrop,
	"split":                ActionSplit,
	"post_collateral":      ActionPostCollateral,
	"withdraw_collateral":  ActionWithdrawCollateral,
	"hold_collateral":      ActionHoldCollateral,
}

// Compile validates node_id uniqueness and resolves every field/param/action
// name into its enum-tagged form. Any unresolvable name is a ConfigError —
// caught at policy-load time rather than waiting for a runtime
// PolicyError, since every name referenced here is static in the document.
func Compile(raw *RawPolicy) (*Policy, error) {
	if raw.PaymentTree == nil || raw.PaymentTree.Root == nil {
		return nil, kyderrors.NewConfigError(fmt.Sprintf("agent %s: payment_tree is required", raw.AgentID))
	}
	if raw.StrategicCollateralTree == nil || raw.StrategicCollateralTree.Root == nil {
		return nil, kyderrors.NewConfigError(fmt.Sprintf("agent %s: strategic_collateral_tree is required", raw.AgentID))
	}

	seen := make(map[string]bool)
	c := &compiler{agentID: raw.AgentID, params: raw.Parameters, seenNodeIDs: seen}

	paymentRoot, err := c.compileNode(raw.PaymentTree.Root)
	if err != nil {
		return nil, err
	}
	strategicRoot, err := c.compileNode(raw.StrategicCollateralTree.Root)
	if err != nil {
		return nil, err
	}

	p := &Policy{
		AgentID:             raw.AgentID,
		PaymentTree:         &Tree{Root: paymentRoot},
		StrategicCollateral: &Tree{Root: strategicRoot},
	}

	if raw.EndOfTickCollateralTree != nil && raw.EndOfTickCollateralTree.Root != nil {
		eotRoot, err := c.compileNode(raw.EndOfTickCollateralTree.Root)
		if err != nil {
			return nil, err
		}
		p.EndOfTickCollateral = &Tree{Root: eotRoot}
	}

	return p, nil
}

type compiler struct {
	agentID     string
	params      map[string]int64
	seenNodeIDs map[string]bool
}

func (c *compiler) compileNode(raw *RawNode) (*Node, error) {
	if raw == nil {
		return nil, kyderrors.NewConfigError(fmt.Sprintf("agent %s: nil node", c.agentID))
	}
	if raw.NodeID == "" {
		return nil, kyderrors.NewConfigError(fmt.Sprintf("agent %s: node_id must not be empty", c.agentID))
	}
	if c.seenNodeIDs[raw.NodeID] {
		return nil, kyderrors.NewConfigError(fmt.Sprintf("agent %s: duplicate node_id %q", c.agentID, raw.NodeID))
	}
	c.seenNodeIDs[raw.NodeID] = true

	switch raw.Kind {
	case NodeAction:
		action, ok := actionNames[raw.Action]
		if !ok {
			return nil, kyderrors.NewConfigError(fmt.Sprintf("agent %s node %s: unknown action %q", c.agentID, raw.NodeID, raw.Action))
		}
		params := map[string]int64{}
		switch action {
		case ActionSplit:
			params["parts"] = int64(raw.SplitParts)
		case ActionPostCollateral:
			params["amount"] = raw.Amount
			if raw.HasAutoWithdraw {
				params["auto_withdraw_after"] = raw.AutoWithdrawAfter
			}
		case ActionWithdrawCollateral:
			params["amount"] = raw.Amount
		}
		return &Node{NodeID: raw.NodeID, Kind: NodeAction, Action: action, Parameters: params, Reason: raw.Reason}, nil

	case NodeCondition:
		if raw.Condition == nil {
			return nil, kyderrors.NewConfigError(fmt.Sprintf("agent %s node %s: condition node missing condition", c.agentID, raw.NodeID))
		}
		cond, err := c.compileCondition(raw.NodeID, raw.Condition)
		if err != nil {
			return nil, err
		}
		onTrue, err := c.compileNode(raw.OnTrue)
		if err != nil {
			return nil, err
		}
		onFalse, err := c.compileNode(raw.OnFalse)
		if err != nil {
			return nil, err
		}
		return &Node{NodeID: raw.NodeID, Kind: NodeCondition, Condition: cond, OnTrue: onTrue, OnFalse: onFalse}, nil

	default:
		return nil, kyderrors.NewConfigError(fmt.Sprintf("agent %s node %s: unknown node kind %d", c.agentID, raw.NodeID, raw.Kind))
	}
}

func (c *compiler) compileCondition(nodeID string, raw *RawCondition) (*Condition, error) {
	left, err := c.compileExpr(nodeID, raw.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.compileExpr(nodeID, raw.Right)
	if err != nil {
		return nil, err
	}
	return &Condition{Op: raw.Op, Left: left, Right: right}, nil
}

func (c *compiler) compileExpr(nodeID string, raw *RawExpr) (*Expr, error) {
	if raw == nil {
		return nil, kyderrors.NewConfigError(fmt.Sprintf("agent %s node %s: nil expression", c.agentID, nodeID))
	}
	switch raw.Kind {
	case ExprValue:
		return &Expr{Kind: ExprValue, Value: raw.Value}, nil

	case ExprField:
		kind, ok := fieldNames[raw.Field]
		if !ok {
			return nil, kyderrors.NewConfigError(fmt.Sprintf("agent %s node %s: unknown field %q", c.agentID, nodeID, raw.Field))
		}
		return &Expr{Kind: ExprField, RawField: raw.Field, Field: kind}, nil

	case ExprParam:
		val, ok := c.params[raw.Param]
		if !ok {
			return nil, kyderrors.NewConfigError(fmt.Sprintf("agent %s node %s: unknown parameter %q", c.agentID, nodeID, raw.Param))
		}
		return &Expr{Kind: ExprParam, RawParam: raw.Param, resolvedParam: val}, nil

	case ExprCompute:
		left, err := c.compileExpr(nodeID, raw.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.compileExpr(nodeID, raw.Right)
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprCompute, Op: raw.Op, Left: left, Right: right}, nil

	default:
		return nil, kyderrors.NewConfigError(fmt.Sprintf("agent %s node %s: unknown expression kind %d", c.agentID, nodeID, raw.Kind))
	}
}
