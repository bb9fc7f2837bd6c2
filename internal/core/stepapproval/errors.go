package stepapproval

import (
	"fmt"

	"github.com/GTD-web/ems-backend-sub024/internal/core/errkind"
)

var (
	ErrInvalidPeriodID         = fmt.Errorf("stepapproval: invalid period id: %w", errkind.ErrValidation)
	ErrInvalidEmployeeID       = fmt.Errorf("stepapproval: invalid employee id: %w", errkind.ErrValidation)
	ErrInvalidStep             = fmt.Errorf("stepapproval: invalid step: %w", errkind.ErrValidation)
	ErrInvalidStatus           = fmt.Errorf("stepapproval: invalid status: %w", errkind.ErrValidation)
	ErrRevisionCommentRequired = fmt.Errorf("stepapproval: revision comment is required: %w", errkind.ErrValidation)
	ErrEvaluatorRequired       = fmt.Errorf("stepapproval: evaluator id is required for secondary step: %w", errkind.ErrValidation)
	ErrEvaluatorNotAllowed     = fmt.Errorf("stepapproval: evaluator id is only allowed for secondary step: %w", errkind.ErrValidation)
	ErrRecipientUnresolved     = fmt.Errorf("stepapproval: recipient cannot be resolved: %w", errkind.ErrValidation)
	ErrDirectRevisionCompleted = fmt.Errorf("stepapproval: revision_completed cannot be set directly: %w", errkind.ErrStateConflict)
	ErrNotRevisionRequested    = fmt.Errorf("stepapproval: step is not awaiting revision: %w", errkind.ErrStateConflict)
	ErrApprovalNotFound        = fmt.Errorf("stepapproval: not found: %w", errkind.ErrNotFound)
	ErrEvaluatorNotAssigned    = fmt.Errorf("stepapproval: evaluator is not a secondary evaluator of employee: %w", errkind.ErrNotFound)
	ErrVersionConflict         = fmt.Errorf("stepapproval: version mismatch: %w", errkind.ErrConflict)
	ErrApprovalAlreadyExists   = fmt.Errorf("stepapproval: approval row already exists: %w", errkind.ErrConflict)
)
