package evaluationperiod

import (
	"fmt"

	"github.com/GTD-web/ems-backend-sub024/internal/core/errkind"
)

var (
	ErrInvalidID           = fmt.Errorf("evaluationperiod: invalid id: %w", errkind.ErrValidation)
	ErrInvalidName         = fmt.Errorf("evaluationperiod: invalid name: %w", errkind.ErrValidation)
	ErrInvalidPhase        = fmt.Errorf("evaluationperiod: invalid phase: %w", errkind.ErrValidation)
	ErrInvalidSetting      = fmt.Errorf("evaluationperiod: invalid setting name: %w", errkind.ErrValidation)
	ErrInvalidStatus       = fmt.Errorf("evaluationperiod: invalid status: %w", errkind.ErrValidation)
	ErrInvalidPageSize     = fmt.Errorf("evaluationperiod: invalid page size: %w", errkind.ErrValidation)
	ErrInvalidPageToken    = fmt.Errorf("evaluationperiod: invalid page token: %w", errkind.ErrValidation)
	ErrPeriodNotFound      = fmt.Errorf("evaluationperiod: not found: %w", errkind.ErrNotFound)
	ErrPeriodNotWaiting    = fmt.Errorf("evaluationperiod: period is not waiting: %w", errkind.ErrStateConflict)
	ErrPeriodNotInProgress = fmt.Errorf("evaluationperiod: period is not in progress: %w", errkind.ErrStateConflict)
	ErrPeriodCompleted     = fmt.Errorf("evaluationperiod: period is completed: %w", errkind.ErrStateConflict)
	ErrPhaseNotForward     = fmt.Errorf("evaluationperiod: target phase is not after current phase: %w", errkind.ErrStateConflict)
	ErrPhaseSkipNotAllowed = fmt.Errorf("evaluationperiod: skipping phases is not allowed: %w", errkind.ErrStateConflict)
	ErrVersionConflict     = fmt.Errorf("evaluationperiod: version mismatch: %w", errkind.ErrConflict)
)
