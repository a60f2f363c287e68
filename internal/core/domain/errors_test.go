package domain

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrors_MatchSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"validation", &ValidationError{Filename: "a.gif", Reason: "bad"}, ErrValidation},
		{"network", &NetworkError{Op: "upload", Err: io.EOF}, ErrNetwork},
		{"server", &ServerError{Op: "delete", StatusCode: 500}, ErrServer},
		{"not ready", &NotReadyError{DocumentID: "d1", StatusCode: 404}, ErrNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.target))
			assert.False(t, errors.Is(wrapped, ErrNotFound))
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{Op: "list documents", Err: io.ErrUnexpectedEOF}
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "list documents")
}

func TestServerError_Message(t *testing.T) {
	assert.Equal(t, "delete: server error (status 500)",
		(&ServerError{Op: "delete", StatusCode: 500}).Error())
	assert.Equal(t, "delete: server error (status 500): boom",
		(&ServerError{Op: "delete", StatusCode: 500, Body: "boom"}).Error())
}

func TestIsUserFacing(t *testing.T) {
	assert.False(t, IsUserFacing(nil))
	assert.False(t, IsUserFacing(&NotReadyError{DocumentID: "d"}))
	assert.True(t, IsUserFacing(&ServerError{Op: "x", StatusCode: 500}))
	assert.True(t, IsUserFacing(&ValidationError{Filename: "x"}))
	assert.True(t, IsUserFacing(fmt.Errorf("poll d: %w", ErrRetryBudgetExhausted)))
	assert.False(t, IsUserFacing(ErrPollCancelled))
}
