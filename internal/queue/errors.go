package queue

import (
	"errors"
	"fmt"

	"postline/internal/services"
)

var (
	// ErrItemNotFound is returned when a mutation targets an unknown item.
	ErrItemNotFound = fmt.Errorf("queue item %w", services.ErrNotFound)
	// ErrInvalidTransition is returned when a mutation does not apply to the item's current status.
	ErrInvalidTransition = fmt.Errorf("invalid status transition: %w", services.ErrValidation)
)

// storageError tags database failures so callers can recognise them with
// errors.Is(err, services.ErrStorage).
func storageError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, services.ErrStorage) {
		return err
	}
	return services.Wrap(services.ErrStorage, "queue", operation, "", err)
}

func transitionError(id int64, from Status, operation string) error {
	return fmt.Errorf("%w: item %d is %s, cannot %s", ErrInvalidTransition, id, from, operation)
}
