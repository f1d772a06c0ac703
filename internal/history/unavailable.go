package history

import (
	"context"
	"fmt"
)

// Unavailable stands in for a store that could not be opened. Every lookup
// fails, so each source ends as Failed and nothing is delivered blind.
type Unavailable struct {
	Err error
}

func (u Unavailable) Contains(context.Context, string) (bool, error) {
	return false, fmt.Errorf("history unavailable: %w", u.Err)
}

func (u Unavailable) Record(context.Context, string) error {
	return fmt.Errorf("history unavailable: %w", u.Err)
}

func (u Unavailable) Close() error {
	return nil
}
