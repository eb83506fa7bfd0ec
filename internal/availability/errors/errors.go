package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidResourceKey = errors.New("invalid resource key")

	ErrInvalidStatus = errors.New("invalid availability status")

	ErrCapacityWithoutLimited = errors.New("capacity is only allowed with limited status")

	ErrReleaseTaskNotFound = errors.New("release task not found")
)

// ConflictError lists every requested day that is already held.
type ConflictError struct {
	ResourceKey string
	Dates       []time.Time
}

func (e *ConflictError) Error() string {
	days := make([]string, 0, len(e.Dates))
	for _, d := range e.Dates {
		days = append(days, d.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s unavailable on [%s]", e.ResourceKey, strings.Join(days, ", "))
}

func AsConflict(err error) (*ConflictError, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
