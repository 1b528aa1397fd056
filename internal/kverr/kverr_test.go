package kverr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{"kind and message", New(NotFound, "key not found"), "NOT_FOUND: key not found"},
		{"with context", New(NotFound, "key not found").WithContext("user:1"), "NOT_FOUND: key not found (user:1)"},
		{"with cause", Wrap(Platform, io.EOF, "probe failed"), "PLATFORM: probe failed: EOF"},
		{"formatted", Newf(Validation, "key exceeds %d bytes", 511), "VALIDATION: key exceeds 511 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestWithContextDoesNotMutate(t *testing.T) {
	base := New(Engine, "client is closed")
	withCtx := base.WithContext("k")

	assert.Empty(t, base.Context)
	assert.Equal(t, "k", withCtx.Context)
}

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("read: %w", New(NotFound, "key not found").WithContext("a"))

	assert.True(t, errors.Is(err, &Error{Kind: NotFound}))
	assert.False(t, errors.Is(err, &Error{Kind: Validation}))
	assert.True(t, errors.Is(err, &Error{Kind: NotFound, Message: "key not found"}))
	assert.False(t, errors.Is(err, &Error{Kind: NotFound, Message: "other"}))
	assert.True(t, IsNotFound(err))
	assert.True(t, Is(err, NotFound))
}

func TestUnwrapKeepsCause(t *testing.T) {
	err := Wrap(Serialization, io.ErrUnexpectedEOF, "decode")
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.Equal(t, Platform, KindOf(fmt.Errorf("wrapped: %w", New(Platform, "x"))))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))

	known := New(Validation, "bad")
	assert.Same(t, known, Classify(known))

	foreign := errors.New("boom")
	classified := Classify(foreign)
	require.NotNil(t, classified)
	assert.Equal(t, Unknown, classified.Kind)
	assert.ErrorIs(t, classified, foreign)
}
