package match

import (
	"errors"
	"fmt"
	"testing"

	"broadside/internal/protocol"

	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{ErrTurnViolation, protocol.CodeTurnError},
		{ErrServerFull, protocol.CodeServerFull},
		{ErrSessionExpired, protocol.CodeSessionExpired},
		{ErrUnexpectedReply, protocol.CodeUnexpectedReply},
		{fmt.Errorf("%w: waiting_for_players -> ended", ErrIllegalTransition), protocol.CodeInvalidState},
		{ErrUnknownConnection, protocol.CodeInvalidState},
		{fmt.Errorf("%w: unknown event", ErrBadMessage), protocol.CodeBadMessage},
		{errors.New("boom"), protocol.CodeInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, MapError(tc.err).Code, tc.err.Error())
	}
}
