package evaluationtarget

import (
	"fmt"

	"github.com/GTD-web/ems-backend-sub024/internal/core/errkind"
)

var (
	ErrInvalidPeriodID     = fmt.Errorf("evaluationtarget: invalid period id: %w", errkind.ErrValidation)
	ErrInvalidEmployeeID   = fmt.Errorf("evaluationtarget: invalid employee id: %w", errkind.ErrValidation)
	ErrInvalidEvaluatorID  = fmt.Errorf("evaluationtarget: invalid evaluator id: %w", errkind.ErrValidation)
	ErrTargetNotFound      = fmt.Errorf("evaluationtarget: employee is not mapped into period: %w", errkind.ErrNotFound)
	ErrTargetAlreadyMapped = fmt.Errorf("evaluationtarget: employee is already mapped into period: %w", errkind.ErrConflict)
	ErrPeriodCompleted     = fmt.Errorf("evaluationtarget: period is completed: %w", errkind.ErrStateConflict)
)
