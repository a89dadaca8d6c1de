package status

import "errors"

var (
	ErrDebugDisabled = errors.New("not_found")
	ErrInvalidSlot   = errors.New("invalid_slot")
)
