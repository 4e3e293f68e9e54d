package core

import (
	"fmt"
)

// ExtractionError indicates a ticket has no usable message content. The
// caller skips the ticket and counts it as an error without aborting the
// cycle; the ticket is not marked processed.
type ExtractionError struct {
	TicketID int64
	Reason   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("ticket %d: no usable message content: %s", e.TicketID, e.Reason)
}

// ClassificationError indicates the provider call failed or returned an
// unparseable or out-of-range result. The ticket is skipped without any
// mutation and is not marked processed, so the next cycle retries it.
type ClassificationError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification failed (%s): %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("classification failed (%s): %s", e.Provider, e.Reason)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// MutationError indicates a helpdesk update failed. Remaining independent
// mutations for the ticket are still attempted, and the ticket IS marked
// processed to avoid repeated partial attempts within the same cycle.
type MutationError struct {
	TicketID int64
	Op       string
	Err      error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("ticket %d: %s failed: %v", e.TicketID, e.Op, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// ConfigurationError indicates an invalid configuration detected at
// startup. It is fatal before any processing begins.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
