package match

import (
	"errors"

	"broadside/internal/protocol"
)

var (
	ErrServerFull        = errors.New("server_full")
	ErrTurnViolation     = errors.New("not_your_turn")
	ErrSessionExpired    = errors.New("session_expired")
	ErrUnexpectedReply   = errors.New("unexpected_reply")
	ErrIllegalTransition = errors.New("illegal_transition")
	ErrInvalidSlot       = errors.New("invalid_slot")
	ErrUnknownConnection = errors.New("unknown_connection")
	ErrBadMessage        = errors.New("bad_message")
)

// MapError turns a domain error into the wire error payload sent to the
// offending connection only.
func MapError(err error) protocol.ErrorPayload {
	switch {
	case errors.Is(err, ErrTurnViolation):
		return protocol.ErrorPayload{Message: "Not your turn", Code: protocol.CodeTurnError}
	case errors.Is(err, ErrServerFull):
		return protocol.ErrorPayload{Message: "Server is full", Code: protocol.CodeServerFull}
	case errors.Is(err, ErrSessionExpired):
		return protocol.ErrorPayload{Message: "Session expired, please ready up again", Code: protocol.CodeSessionExpired}
	case errors.Is(err, ErrUnexpectedReply):
		return protocol.ErrorPayload{Message: "No shot is waiting for your reply", Code: protocol.CodeUnexpectedReply}
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrInvalidSlot), errors.Is(err, ErrUnknownConnection):
		return protocol.ErrorPayload{Message: "Action not allowed right now", Code: protocol.CodeInvalidState}
	case errors.Is(err, ErrBadMessage):
		return protocol.ErrorPayload{Message: "Malformed message", Code: protocol.CodeBadMessage}
	default:
		return protocol.ErrorPayload{Message: "Internal error", Code: protocol.CodeInternal}
	}
}
