package sm2

import "errors"

var (
	// ErrDueDateOverflow is returned when the next due instant cannot be
	// represented. The schedule is not advanced; the caller decides whether
	// to reject the review or retry with a smaller interval.
	ErrDueDateOverflow = errors.New("sm2: due date overflow")
	ErrInvalidScore    = errors.New("sm2: invalid score")
	ErrInvalidSchedule = errors.New("sm2: invalid schedule")
	ErrInvalidParams   = errors.New("sm2: invalid parameters")
)
