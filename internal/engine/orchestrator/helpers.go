package orchestrator

import (
	"fmt"

	kyderrors "kyd/pkg/errors"
	"kyd/pkg/money"
)

func moneyFromCents(cents int64) money.Money { return money.Money(cents) }

func unknownAgentError(agentID string) error {
	return &kyderrors.SubmissionError{Err: fmt.Errorf("%w: %s", kyderrors.ErrUnknownAgent, agentID)}
}
