// Package events defines the simulation's closed, tagged-union event
// schema (spec §4.12, §6). Every variant is a typed struct carrying a
// Tick plus whatever fields an external consumer needs to replay that
// moment without consulting any other source.
package events

import "kyd/pkg/money"

// Type tags an Event's concrete variant.
type Type string

const (
	TypeArrival                   Type = "Arrival"
	TypePolicySubmit              Type = "PolicySubmit"
	TypePolicyHold                Type = "PolicyHold"
	TypePolicyDrop                Type = "PolicyDrop"
	TypePolicySplit               Type = "PolicySplit"
	TypeRtgsSubmission            Type = "RtgsSubmission"
	TypeRtgsImmediateSettlement   Type = "RtgsImmediateSettlement"
	TypeQueuedRtgs                Type = "QueuedRtgs"
	TypeQueue2LiquidityRelease    Type = "Queue2LiquidityRelease"
	TypeLsmBilateralOffset        Type = "LsmBilateralOffset"
	TypeLsmCycleSettlement        Type = "LsmCycleSettlement"
	TypeCollateralPost            Type = "CollateralPost"
	TypeCollateralWithdraw        Type = "CollateralWithdraw"
	TypeCollateralTimerWithdrawn  Type = "CollateralTimerWithdrawn"
	TypeCostAccrual               Type = "CostAccrual"
	TypePriorityEscalated         Type = "PriorityEscalated"
	TypeTransactionWentOverdue    Type = "TransactionWentOverdue"
	TypeOverdueTransactionSettled Type = "OverdueTransactionSettled"
	TypeEndOfDay                  Type = "EndOfDay"
)

// Event is the common envelope every variant satisfies.
type Event interface {
	EventType() Type
	EventTick() uint64
}

type Base struct {
	Tick uint64 `json:"tick"`
}

func (b Base) EventTick() uint64 { return b.Tick }

// Arrival is emitted when C9 creates a new transaction.
type Arrival struct {
	Base
	TransactionID string      `json:"transaction_id"`
	Sender        string      `json:"sender"`
	Receiver      string      `json:"receiver"`
	Amount        money.Money `json:"amount"`
	Priority      int         `json:"priority"`
	Deadline      uint64      `json:"deadline"`
	Divisible     bool        `json:"divisible"`
}

func (Arrival) EventType() Type { return TypeArrival }

// PolicySubmit is emitted when a payment_tree Release moves a transaction
// from Q1 into Q2.
type PolicySubmit struct {
	Base
	TransactionID string `json:"transaction_id"`
	AgentID       string `json:"agent_id"`
	NodeID        string `json:"node_id"`
}

func (PolicySubmit) EventType() Type { return TypePolicySubmit }

// PolicyHold is emitted when a payment_tree Hold leaves a transaction at
// the head of Q1.
type PolicyHold struct {
	Base
	TransactionID string `json:"transaction_id"`
	AgentID       string `json:"agent_id"`
	NodeID        string `json:"node_id"`
}

func (PolicyHold) EventType() Type { return TypePolicyHold }

// PolicyDrop is emitted when a payment_tree Drop terminates a transaction.
type PolicyDrop struct {
	Base
	TransactionID string `json:"transaction_id"`
	AgentID       string `json:"agent_id"`
	NodeID        string `json:"node_id"`
}

func (PolicyDrop) EventType() Type { return TypePolicyDrop }

// PolicySplit is emitted when a payment_tree Split replaces a head
// transaction with its children.
type PolicySplit struct {
	Base
	ParentID string      `json:"parent_id"`
	AgentID  string      `json:"agent_id"`
	NodeID   string      `json:"node_id"`
	Children []string    `json:"children"`
	PartsAmounts []money.Money `json:"parts_amounts"`
	FrictionCost money.Money `json:"friction_cost"`
}

func (PolicySplit) EventType() Type { return TypePolicySplit }

// RtgsSubmission is emitted when a transaction enters Q2.
type RtgsSubmission struct {
	Base
	TransactionID string      `json:"transaction_id"`
	Sender        string      `json:"sender"`
	Receiver      string      `json:"receiver"`
	Amount        money.Money `json:"amount"`
}

func (RtgsSubmission) EventType() Type { return TypeRtgsSubmission }

// RtgsImmediateSettlement is emitted when Q2's head settles individually.
type RtgsImmediateSettlement struct {
	Base
	TransactionID     string      `json:"transaction_id"`
	Sender            string      `json:"sender"`
	Receiver          string      `json:"receiver"`
	Amount            money.Money `json:"amount"`
	SenderBalanceBefore money.Money `json:"sender_balance_before"`
	SenderBalanceAfter  money.Money `json:"sender_balance_after"`
}

func (RtgsImmediateSettlement) EventType() Type { return TypeRtgsImmediateSettlement }

// QueuedRtgs is emitted when Q2's head cannot settle and blocks the queue.
type QueuedRtgs struct {
	Base
	TransactionID string `json:"transaction_id"`
	Sender        string `json:"sender"`
}

func (QueuedRtgs) EventType() Type { return TypeQueuedRtgs }

// Queue2LiquidityRelease is emitted when a previously-blocked Q2 head
// settles after a balance change frees liquidity.
type Queue2LiquidityRelease struct {
	Base
	TransactionID string      `json:"transaction_id"`
	Sender        string      `json:"sender"`
	Amount        money.Money `json:"amount"`
}

func (Queue2LiquidityRelease) EventType() Type { return TypeQueue2LiquidityRelease }

// LsmBilateralOffset is emitted for each settled bilateral offset pair.
type LsmBilateralOffset struct {
	Base
	AgentA  string        `json:"agent_a"`
	AgentB  string        `json:"agent_b"`
	AmountA money.Money   `json:"amount_a"`
	AmountB money.Money   `json:"amount_b"`
	TxIDs   []string      `json:"tx_ids"`
}

func (LsmBilateralOffset) EventType() Type { return TypeLsmBilateralOffset }

// LsmCycleSettlement is emitted for each settled multilateral cycle.
type LsmCycleSettlement struct {
	Base
	Agents       []string      `json:"agents"`
	TxAmounts    []money.Money `json:"tx_amounts"`
	TotalValue   money.Money   `json:"total_value"`
	NetPositions []money.Money `json:"net_positions"`
	TxIDs        []string      `json:"tx_ids"`
}

func (LsmCycleSettlement) EventType() Type { return TypeLsmCycleSettlement }

// CollateralPost is emitted on a successful post() call.
type CollateralPost struct {
	Base
	AgentID           string      `json:"agent_id"`
	Amount            money.Money `json:"amount"`
	Reason            string      `json:"reason"`
	NewTotal          money.Money `json:"new_total"`
	HasAutoWithdraw   bool        `json:"has_auto_withdraw"`
	AutoWithdrawAtTick uint64     `json:"auto_withdraw_at_tick,omitempty"`
}

func (CollateralPost) EventType() Type { return TypeCollateralPost }

// CollateralWithdraw is emitted on a manual withdraw() call.
type CollateralWithdraw struct {
	Base
	AgentID  string      `json:"agent_id"`
	Amount   money.Money `json:"amount"`
	Reason   string      `json:"reason"`
	NewTotal money.Money `json:"new_total"`
}

func (CollateralWithdraw) EventType() Type { return TypeCollateralWithdraw }

// CollateralTimerWithdrawn is emitted when an auto-withdraw timer fires.
type CollateralTimerWithdrawn struct {
	Base
	AgentID        string      `json:"agent_id"`
	Amount         money.Money `json:"amount"`
	OriginalReason string      `json:"original_reason"`
	PostedAtTick   uint64      `json:"posted_at_tick"`
	NewTotal       money.Money `json:"new_total"`
}

func (CollateralTimerWithdrawn) EventType() Type { return TypeCollateralTimerWithdrawn }

// CostAccrual is emitted once per agent per tick with that tick's deltas
// for each cost category.
type CostAccrual struct {
	Base
	AgentID             string      `json:"agent_id"`
	LiquidityDelta      money.Money `json:"liquidity_delta"`
	CollateralDelta     money.Money `json:"collateral_delta"`
	DelayDelta          money.Money `json:"delay_delta"`
	SplitFrictionDelta  money.Money `json:"split_friction_delta"`
	DeadlinePenaltyDelta money.Money `json:"deadline_penalty_delta"`
}

func (CostAccrual) EventType() Type { return TypeCostAccrual }

// PriorityEscalated is emitted whenever a transaction's current_priority
// changes.
type PriorityEscalated struct {
	Base
	TransactionID     string `json:"transaction_id"`
	OriginalPriority  int    `json:"original_priority"`
	OldPriority       int    `json:"old_priority"`
	NewPriority       int    `json:"new_priority"`
	TicksToDeadline   int64  `json:"ticks_to_deadline"`
}

func (PriorityEscalated) EventType() Type { return TypePriorityEscalated }

// TransactionWentOverdue is emitted the first tick a transaction crosses
// its deadline while unsettled.
type TransactionWentOverdue struct {
	Base
	TransactionID  string      `json:"transaction_id"`
	Sender         string      `json:"sender"`
	Receiver       string      `json:"receiver"`
	DeadlineTick   uint64      `json:"deadline_tick"`
	RemainingAmount money.Money `json:"remaining_amount"`
	EstimatedPenalty money.Money `json:"estimated_penalty"`
}

func (TransactionWentOverdue) EventType() Type { return TypeTransactionWentOverdue }

// OverdueTransactionSettled is emitted when a previously-overdue
// transaction finally settles.
type OverdueTransactionSettled struct {
	Base
	TransactionID string      `json:"transaction_id"`
	TicksOverdue  uint64      `json:"ticks_overdue"`
	TotalPenalty  money.Money `json:"total_penalty"`
}

func (OverdueTransactionSettled) EventType() Type { return TypeOverdueTransactionSettled }

// AgentDailyMetrics is EndOfDay's per-agent payload.
type AgentDailyMetrics struct {
	AgentID             string      `json:"agent_id"`
	OpeningBalance      money.Money `json:"opening_balance"`
	ClosingBalance      money.Money `json:"closing_balance"`
	MinBalance          money.Money `json:"min_balance"`
	MaxBalance          money.Money `json:"max_balance"`
	PeakOverdraft       money.Money `json:"peak_overdraft"`
	PeakPostedCollateral money.Money `json:"peak_posted_collateral"`
	TxSettledCount      int         `json:"tx_settled_count"`
	TxDroppedCount      int         `json:"tx_dropped_count"`
	TxOverdueCount      int         `json:"tx_overdue_count"`
	Queue1Size          int         `json:"queue1_size"`
	TotalCost           money.Money `json:"total_cost"`
}

// EndOfDay is emitted at the end of each simulated day.
type EndOfDay struct {
	Base
	Day           uint32              `json:"day"`
	AgentMetrics  []AgentDailyMetrics `json:"agent_metrics"`
	IsFinalDay    bool                `json:"is_final_day"`
}

func (EndOfDay) EventType() Type { return TypeEndOfDay }

// NewBase is a small convenience for engine packages constructing events.
func NewBase(tick uint64) Base { return Base{Tick: tick} }
