package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: These are core error primitives used at every trust boundary.
// Unit tests ensure invariants like "wrapped domain errors preserve original code"
// and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "photo not found"}
		s.Equal("photo not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeQuotaExceeded}
		s.Equal("quota_exceeded", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("database connection failed")
		err := &Error{Code: CodeInternal, Message: "service error", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("returns nil when no wrapped error", func() {
		err := &Error{Code: CodeNotFound, Message: "not found"}
		s.Nil(err.Unwrap())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeNotFound, Message: "photo not found"}
		err2 := &Error{Code: CodeNotFound, Message: "tenant not found"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodeNotFound}
		err2 := &Error{Code: CodeInternal}
		s.False(err1.Is(err2))
	})

	s.Run("works with errors.Is through chain", func() {
		inner := &Error{Code: CodeNotFound, Message: "original"}
		wrapped := &Error{Code: CodeInternal, Message: "wrapped", Err: inner}
		target := &Error{Code: CodeNotFound}
		s.True(errors.Is(wrapped, target))
	})
}

func (s *DomainErrorsSuite) TestWrapPreservesCode() {
	inner := New(CodeForbidden, "tenant expired")
	wrapped := Wrap(inner, CodeInternal, "resolve tenant")

	var domainErr *Error
	s.Require().True(errors.As(wrapped, &domainErr))
	s.Equal(CodeForbidden, domainErr.Code)
	s.Equal("resolve tenant", domainErr.Message)
}

func (s *DomainErrorsSuite) TestWrapNonDomainError() {
	inner := errors.New("dial tcp: connection refused")
	wrapped := Wrap(inner, CodeUnavailable, "storage backend unreachable")

	var domainErr *Error
	s.Require().True(errors.As(wrapped, &domainErr))
	s.Equal(CodeUnavailable, domainErr.Code)
	s.ErrorIs(wrapped, inner)
}

func (s *DomainErrorsSuite) TestHasCode() {
	err := New(CodeQuotaExceeded, "storage limit exceeded")
	s.True(HasCode(err, CodeQuotaExceeded))
	s.False(HasCode(err, CodeNotFound))
	s.False(HasCode(errors.New("plain"), CodeQuotaExceeded))
	s.False(HasCode(nil, CodeQuotaExceeded))
}
