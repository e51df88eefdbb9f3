package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := InvalidCredentials("wrong password for reader@example.com")

	assert.True(t, Is(err, ErrInvalidCredentials))
	assert.False(t, Is(err, ErrNetwork))
}

func TestIs_ThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("login: %w", Wrap(fmt.Errorf("dial tcp: timeout"), CodeNetwork, "auth API unreachable"))

	assert.True(t, Is(err, ErrNetwork))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := Wrap(cause, CodeCatalogUnavailable, "search failed")

	assert.Equal(t, "search failed: dial tcp: connection refused", err.Error())
	assert.Equal(t, "search failed", err.UserMessage())
	assert.Equal(t, cause, Unwrap(err))
	assert.True(t, Is(err, ErrCatalogUnavailable))
}

func TestWithDetails_DoesNotMutateSentinel(t *testing.T) {
	detailed := ErrValidation.WithDetails(map[string]string{"email": "is required"})

	assert.NotNil(t, detailed.Details)
	assert.Nil(t, ErrValidation.Details)
}

func TestCode_RequiresAcknowledgement(t *testing.T) {
	tests := []struct {
		code Code
		want bool
	}{
		{CodeInvalidCredentials, true},
		{CodeEmailAlreadyExists, true},
		{CodeServerRejected, true},
		{CodeCatalogUnavailable, false},
		{CodeNoSignal, false},
		{CodeNetwork, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.RequiresAcknowledgement())
		})
	}
}
