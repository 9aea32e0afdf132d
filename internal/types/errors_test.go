package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (s *ErrorTestSuite) TestNewRollError() {
	err := NewRollError(ErrNotFound, "roll not found")

	s.Equal(ErrNotFound, err.Code, "Error code should match")
	s.Equal("roll not found", err.Message, "Error message should match")
	s.Nil(err.Err, "Underlying error should be nil")
}

func (s *ErrorTestSuite) TestWrapError() {
	underlying := errors.New("connection refused")

	err := WrapError(ErrStorageUnavailable, "query last roll", underlying)

	s.Equal(ErrStorageUnavailable, err.Code)
	s.Equal("query last roll", err.Message)
	s.Equal(underlying, err.Err)
	s.ErrorIs(err, underlying, "Unwrap should expose the cause")
}

func (s *ErrorTestSuite) TestErrorString() {
	testCases := []struct {
		name     string
		err      *RollError
		expected string
	}{
		{
			name:     "Simple error",
			err:      NewRollError(ErrNotFound, "roll not found"),
			expected: "NOT_FOUND: roll not found",
		},
		{
			name:     "Wrapped error",
			err:      WrapError(ErrStorageUnavailable, "insert roll", errors.New("disk I/O error")),
			expected: "STORAGE_UNAVAILABLE: insert roll (disk I/O error)",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.expected, tc.err.Error())
		})
	}
}

func (s *ErrorTestSuite) TestIsRollError() {
	rollErr := NewRollError(ErrAlreadyRolled, "already rolled")

	testCases := []struct {
		name     string
		err      error
		code     ErrorCode
		expected bool
	}{
		{name: "Matching roll error", err: rollErr, code: ErrAlreadyRolled, expected: true},
		{name: "Non-matching roll error", err: rollErr, code: ErrNotFound, expected: false},
		{name: "Wrapped by fmt", err: fmt.Errorf("attempt: %w", rollErr), code: ErrAlreadyRolled, expected: true},
		{name: "Regular error", err: errors.New("regular error"), code: ErrNotFound, expected: false},
		{name: "Nil error", err: nil, code: ErrNotFound, expected: false},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.expected, IsRollError(tc.err, tc.code))
		})
	}
}

func (s *ErrorTestSuite) TestAs() {
	rollErr := NewRollError(ErrNotFound, "roll not found")

	var target *RollError
	s.True(As(fmt.Errorf("outer: %w", rollErr), &target))
	s.Equal(rollErr, target)

	target = nil
	s.False(As(errors.New("regular error"), &target))
	s.Nil(target)
	s.False(As(nil, &target))
	s.False(As(rollErr, nil))
}
