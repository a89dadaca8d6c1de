package public

import "errors"

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrMatchNotFound      = errors.New("match_not_found")
	ErrHistoryUnavailable = errors.New("history_unavailable")
)
