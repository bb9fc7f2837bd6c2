package selfevaluation

import (
	"fmt"

	"github.com/GTD-web/ems-backend-sub024/internal/core/errkind"
)

const (
	minScore = 0
	maxScore = 100
)

var (
	ErrInvalidPeriodID     = fmt.Errorf("selfevaluation: invalid period id: %w", errkind.ErrValidation)
	ErrInvalidEmployeeID   = fmt.Errorf("selfevaluation: invalid employee id: %w", errkind.ErrValidation)
	ErrInvalidItemID       = fmt.Errorf("selfevaluation: invalid item id: %w", errkind.ErrValidation)
	ErrInvalidScore        = fmt.Errorf("selfevaluation: score must be between %d and %d: %w", minScore, maxScore, errkind.ErrValidation)
	ErrNotFound            = fmt.Errorf("selfevaluation: not found: %w", errkind.ErrNotFound)
	ErrPeriodNotInProgress = fmt.Errorf("selfevaluation: period is not in progress: %w", errkind.ErrStateConflict)
	ErrWriteDisabled       = fmt.Errorf("selfevaluation: self-evaluation setting is disabled: %w", errkind.ErrStateConflict)
	ErrAlreadySubmitted    = fmt.Errorf("selfevaluation: already submitted to evaluator: %w", errkind.ErrStateConflict)
	ErrNothingToSubmit     = fmt.Errorf("selfevaluation: no self-evaluation to submit: %w", errkind.ErrStateConflict)
)
