package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

func TestError_IsMatchesKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := E("entries.load", KindRemoteRejected, cause)

	assert.ErrorIs(t, err, ErrRemoteRejected)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrDecode)
	assert.Equal(t, "entries.load: remote rejected request: boom", err.Error())
}

func TestError_MessageTakesPrecedenceInText(t *testing.T) {
	err := &Error{Op: "users.update", Kind: KindRemoteRejected, Message: "duplicate key", Err: errors.New("409")}
	assert.Equal(t, "users.update: remote rejected request: duplicate key", err.Error())
	assert.Equal(t, "duplicate key", Detail(err))
}

func TestKindOf(t *testing.T) {
	var syntaxErr error
	{
		var v any
		syntaxErr = json.Unmarshal([]byte("{bad"), &v)
	}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"typed", E("x", KindValidation, nil), KindValidation},
		{"wrapped typed", fmt.Errorf("outer: %w", E("x", KindUnauthorized, nil)), KindUnauthorized},
		{"sentinel", fmt.Errorf("ctx: %w", ErrUserNotFound), KindUserNotFound},
		{"deadline", context.DeadlineExceeded, KindTransportTimeout},
		{"dns", &net.DNSError{Err: "no such host", Name: "example.invalid"}, KindTransportUnreachable},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, KindTransportUnreachable},
		{"read", &net.OpError{Op: "read", Err: errors.New("reset")}, KindTransportOther},
		{"json", syntaxErr, KindDecodeFailure},
		{"other", errors.New("mystery"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestClassify_KeepsExistingKindAndAddsOp(t *testing.T) {
	require.NoError(t, Classify("x", nil))

	err := Classify("profile.load", &Error{Kind: KindTransportTimeout})
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "profile.load", e.Op)
	assert.Equal(t, KindTransportTimeout, e.Kind)

	err = Classify("profile.load", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrTransportTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		action Action
		err    error
		want   string
	}{
		{ActionLoadEntries, E("", KindUserNotFound, nil), "Please log in to view your entries."},
		{ActionAddEntry, E("", KindUserNotFound, nil), "Please log in to add entries."},
		{ActionAddEntry, E("", KindTransportTimeout, nil), "Request timed out. Please try again."},
		{ActionLoadEntries, E("", KindTransportUnreachable, nil), "No internet connection. Please check your network."},
		{ActionLoadEntries, E("", KindTransportOther, nil), "Network error. Please try again."},
		{ActionDeleteEntry, &Error{Kind: KindRemoteRejected, Message: "permission denied"}, "Failed to delete entry: permission denied"},
		{ActionLoadEntries, errors.New("???"), "An unexpected error occurred. Please try again."},
		{ActionAddEntry, errors.New("???"), "Failed to add entry. Please try again."},
		{ActionUpdatePrice, &Error{Kind: KindValidation, Message: "price must be greater than zero"}, "price must be greater than zero"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UserMessage(tt.action, tt.err))
	}
	assert.Empty(t, UserMessage(ActionAddEntry, nil))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "remote_rejected", KindRemoteRejected.String())
	assert.Equal(t, "kind(200)", Kind(200).String())
}
