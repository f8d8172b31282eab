package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnknownEntityType  = errors.New("unknown entity type")
	ErrInvalidAuthState   = errors.New("authorization state is invalid or expired")
	ErrMissingAuthCode    = errors.New("missing authorization code")
	ErrRetriesExhausted   = errors.New("retries exhausted")
	ErrNoFileURL          = errors.New("attachment has no downloadable file url")
	ErrPublicURLUnset     = errors.New("public url not configured")
	ErrTaxMasterUnloaded  = errors.New("tax master could not be loaded")
	ErrConnectionRequired = errors.New("company not connected")
)

// SlotError reports which connection slot is unconfigured.
type SlotError struct {
	Slot ConnectionSlot
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("%s company not connected", e.Slot)
}

func (e *SlotError) Unwrap() error { return ErrConnectionRequired }

// NewSlotError builds a SlotError for the given slot.
func NewSlotError(slot ConnectionSlot) error {
	return &SlotError{Slot: slot}
}
