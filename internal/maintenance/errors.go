package maintenance

import (
	"fmt"
	"strings"

	"buildingops/internal/shared"
)

// ConflictError rejects a create or update whose window overlaps existing
// non-terminal schedules for the same asset. It names every conflicting
// window so the caller can show them.
type ConflictError struct {
	Conflicts []Window
}

func (e *ConflictError) Error() string {
	ranges := make([]string, len(e.Conflicts))
	for i, w := range e.Conflicts {
		ranges[i] = w.String()
	}
	return "maintenance window overlaps existing schedules: " + strings.Join(ranges, ", ")
}

func (e *ConflictError) Is(target error) bool {
	return target == shared.ErrConflict
}

// validationf builds a caller-facing validation error.
func validationf(format string, args ...any) error {
	return shared.MarkKind(fmt.Errorf(format, args...), shared.KindValidation)
}

// notFoundf builds a caller-facing not-found error.
func notFoundf(format string, args ...any) error {
	return shared.MarkKind(fmt.Errorf(format, args...), shared.KindNotFound)
}
