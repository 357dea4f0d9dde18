// Package policy implements the per-agent decision DSL (spec §4.2): a
// small tree-shaped grammar, compiled once at load time into a form whose
// per-tick evaluation is branch-on-enum rather than hash-lookup (spec §9),
// evaluated deterministically and side-effect-free against a read-only
// field environment.
package policy

import (
	"fmt"

	kyderrors "kyd/pkg/errors"
)

// FieldKind enumerates the environment's fixed field schema (spec §4.2).
// Compiling field names to this enum at load time is what makes
// evaluation branch-on-enum instead of a map lookup per tick.
type FieldKind int

const (
	FieldTick FieldKind = iota
	FieldSystemTickInDay
	FieldTicksToDeadline
	FieldEffectiveLiquidity
	FieldRemainingAmount
	FieldBalance
	FieldPostedCollateral
	FieldRemainingCollateralCapacity
	FieldMaxCollateralCapacity
	FieldQueue1Size
	FieldQueue2Size
)

var fieldNames = map[string]FieldKind{
	"tick":                          FieldTick,
	"system_tick_in_day":            FieldSystemTickInDay,
	"ticks_to_deadline":             FieldTicksToDeadline,
	"effective_liquidity":           FieldEffectiveLiquidity,
	"remaining_amount":              FieldRemainingAmount,
	"balance":                       FieldBalance,
	"posted_collateral":             FieldPostedCollateral,
	"remaining_collateral_capacity": FieldRemainingCollateralCapacity,
	"max_collateral_capacity":       FieldMaxCollateralCapacity,
	"queue1_size":                   FieldQueue1Size,
	"queue2_size":                   FieldQueue2Size,
}

// Environment is the read-only field set exposed to a policy evaluation.
// All values are integer cents or plain counts; no floats.
type Environment struct {
	Tick                        int64
	SystemTickInDay             int64
	TicksToDeadline             int64
	EffectiveLiquidity          int64
	RemainingAmount             int64
	Balance                     int64
	PostedCollateral            int64
	RemainingCollateralCapacity int64
	MaxCollateralCapacity       int64
	Queue1Size                  int64
	Queue2Size                  int64
}

func (e *Environment) field(k FieldKind) int64 {
	switch k {
	case FieldTick:
		return e.Tick
	case FieldSystemTickInDay:
		return e.SystemTickInDay
	case FieldTicksToDeadline:
		return e.TicksToDeadline
	case FieldEffectiveLiquidity:
		return e.EffectiveLiquidity
	case FieldRemainingAmount:
		return e.RemainingAmount
	case FieldBalance:
		return e.Balance
	case FieldPostedCollateral:
		return e.PostedCollateral
	case FieldRemainingCollateralCapacity:
		return e.RemainingCollateralCapacity
	case FieldMaxCollateralCapacity:
		return e.MaxCollateralCapacity
	case FieldQueue1Size:
		return e.Queue1Size
	case FieldQueue2Size:
		return e.Queue2Size
	default:
		return 0
	}
}

// ArithOp enumerates Compute's integer operators.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
)

// CompareOp enumerates Condition's comparison operators.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

// ExprKind tags an Expr's variant.
type ExprKind int

const (
	ExprValue ExprKind = iota
	ExprField
	ExprParam
	ExprCompute
)

// Expr is the expression grammar (spec §4.2): a literal, a field read, a
// parameter read, or a binary compute over two sub-expressions. Field and
// Param names are resolved once at compile time (Compile) into FieldKind
// enums / parameter offsets; Raw* fields are kept only for error messages
// and are not consulted during evaluation.
type Expr struct {
	Kind ExprKind

	Value int64 // ExprValue

	RawField string    // ExprField, source text for diagnostics
	Field    FieldKind // ExprField, resolved

	RawParam      string // ExprParam, source text for diagnostics
	resolvedParam int64  // ExprParam, value looked up once from policy.Parameters at Compile time

	Op    ArithOp // ExprCompute
	Left  *Expr   // ExprCompute
	Right *Expr   // ExprCompute
}

// Condition is a single comparison between two expressions.
type Condition struct {
	Op    CompareOp
	Left  *Expr
	Right *Expr
}

// describe renders a condition/expression as source text for PolicyError
// diagnostics.
func (c *Condition) describe() string {
	return fmt.Sprintf("%s %s %s", describeExpr(c.Left), compareOpSymbol(c.Op), describeExpr(c.Right))
}

func describeExpr(e *Expr) string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ExprValue:
		return fmt.Sprintf("%d", e.Value)
	case ExprField:
		return e.RawField
	case ExprParam:
		return "$" + e.RawParam
	case ExprCompute:
		return fmt.Sprintf("(%s %s %s)", describeExpr(e.Left), arithOpSymbol(e.Op), describeExpr(e.Right))
	default:
		return "?"
	}
}

func arithOpSymbol(op ArithOp) string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return "?"
	}
}

func compareOpSymbol(op CompareOp) string {
	switch op {
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	default:
		return "?"
	}
}

// ActionKind enumerates the three trees' possible actions. Which subset is
// valid depends on which tree (payment / strategic collateral / end-of-tick
// collateral) the node belongs to. Compile checks only that an action name
// is known, not that it belongs to its tree: the orchestrator returns a
// ConsistencyBug when a payment_tree reaches a collateral action, and
// ignores a payment action reached in a collateral tree.
type ActionKind int

const (
	ActionRelease ActionKind = iota
	ActionHold
	ActionDrop
	ActionSplit
	ActionPostCollateral
	ActionWithdrawCollateral
	ActionHoldCollateral
)

// Decision is the resolved result of evaluating a tree: an action plus its
// resolved integer parameters (e.g. Split's part count, PostCollateral's
// amount/reason/auto-withdraw offset).
type Decision struct {
	Action            ActionKind
	SplitParts        int
	Amount            int64
	Reason            string
	AutoWithdrawAfter int64
	HasAutoWithdraw   bool
	NodeID            string
}

// NodeKind tags a tree Node's variant.
type NodeKind int

const (
	NodeAction NodeKind = iota
	NodeCondition
)

// Node is a recursive tree node (spec §4.2): either a terminal Action or a
// Condition with on_true/on_false subtrees. NodeID is validated unique
// across the whole policy at Compile time.
type Node struct {
	NodeID string
	Kind   NodeKind

	// NodeAction
	Action     ActionKind
	Parameters map[string]int64
	Reason     string // PostCollateral's human-readable reason, carried verbatim (not part of the integer parameter table)

	// NodeCondition
	Condition *Condition
	OnTrue    *Node
	OnFalse   *Node
}

// Tree is one compiled decision tree (payment_tree, strategic_collateral_tree,
// or end_of_tick_collateral_tree).
type Tree struct {
	Root *Node
}

// Policy bundles an agent's three trees. EndOfTick is optional (spec §4.2).
type Policy struct {
	AgentID              string
	PaymentTree          *Tree
	StrategicCollateral  *Tree
	EndOfTickCollateral   *Tree // nil if not configured
}

// Evaluate walks a tree against an environment and returns the Decision at
// the reached Action leaf. A PolicyError aborts evaluation and is fatal to
// the tick (spec §4.2, §7): unknown field/param names can only occur if
// Compile was skipped, since Compile resolves every name up front.
func Evaluate(agentID string, t *Tree, env *Environment) (Decision, error) {
	node := t.Root
	for {
		switch node.Kind {
		case NodeAction:
			return decisionFromNode(node), nil
		case NodeCondition:
			ok, err := evalCondition(node.Condition, env)
			if err != nil {
				return Decision{}, &kyderrors.PolicyError{
					AgentID:    agentID,
					NodeID:     node.NodeID,
					Expression: node.Condition.describe(),
					Err:        err,
				}
			}
			if ok {
				node = node.OnTrue
			} else {
				node = node.OnFalse
			}
		default:
			return Decision{}, &kyderrors.PolicyError{
				AgentID: agentID,
				NodeID:  node.NodeID,
				Err:     fmt.Errorf("node has unknown kind %d", node.Kind),
			}
		}
	}
}

func decisionFromNode(n *Node) Decision {
	d := Decision{Action: n.Action, NodeID: n.NodeID}
	switch n.Action {
	case ActionSplit:
		d.SplitParts = int(n.Parameters["parts"])
	case ActionPostCollateral:
		d.Amount = n.Parameters["amount"]
		d.Reason = n.Reason
		if after, ok := n.Parameters["auto_withdraw_after"]; ok {
			d.AutoWithdrawAfter = after
			d.HasAutoWithdraw = true
		}
	case ActionWithdrawCollateral:
		d.Amount = n.Parameters["amount"]
	}
	return d
}

func evalCondition(c *Condition, env *Environment) (bool, error) {
	l, err := evalExpr(c.Left, env)
	if err != nil {
		return false, err
	}
	r, err := evalExpr(c.Right, env)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case OpEq:
		return l == r, nil
	case OpNeq:
		return l != r, nil
	case OpLt:
		return l < r, nil
	case OpLte:
		return l <= r, nil
	case OpGt:
		return l > r, nil
	case OpGte:
		return l >= r, nil
	default:
		return false, fmt.Errorf("unknown comparison operator %d", c.Op)
	}
}

func evalExpr(e *Expr, env *Environment) (int64, error) {
	switch e.Kind {
	case ExprValue:
		return e.Value, nil
	case ExprField:
		return env.field(e.Field), nil
	case ExprParam:
		return e.resolvedParam, nil
	case ExprCompute:
		l, err := evalExpr(e.Left, env)
		if err != nil {
			return 0, err
		}
		r, err := evalExpr(e.Right, env)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case OpAdd:
			return l + r, nil
		case OpSub:
			return l - r, nil
		case OpMul:
			return l * r, nil
		case OpDiv:
			if r == 0 {
				return 0, kyderrors.ErrDivideByZero
			}
			return l / r, nil
		default:
			return 0, fmt.Errorf("unknown arithmetic operator %d", e.Op)
		}
	default:
		return 0, fmt.Errorf("unknown expression kind %d", e.Kind)
	}
}
