package chat

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/zhouzirui/jeff-companion/backend/internal/service/ai"
)

// Kind classifies why a send failed.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindTimeout       Kind = "timeout"
	KindProvider      Kind = "provider"
	KindNetwork       Kind = "network"
	KindCanceled      Kind = "canceled"
)

// Retryable reports whether repeating the same call may succeed without a
// configuration change.
func (k Kind) Retryable() bool {
	switch k {
	case KindTimeout, KindProvider, KindNetwork:
		return true
	default:
		return false
	}
}

var (
	ErrPersonaRequired   = errors.New("persona id is required")
	ErrSessionNotFound   = errors.New("session not found")
	ErrPersonaNotFound   = errors.New("persona not found")
	ErrMissingCredential = errors.New("api key is required")
)

// Error is the typed failure recorded by a Manager.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var typed *Error
	return errors.As(err, &typed) && typed.Kind == kind
}

func configurationError(op string, err error) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

// classify maps a provider or transport failure onto the taxonomy.
func classify(op string, err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	kind := KindProvider
	var apiErr *ai.APIError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.As(err, &apiErr), errors.Is(err, ai.ErrEmptyReply):
		kind = KindProvider
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			kind = KindTimeout
		} else {
			kind = KindNetwork
		}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// reason renders err as the message shown in place of a reply.
func reason(err *Error, timeout time.Duration) string {
	switch err.Kind {
	case KindConfiguration:
		return "The assistant is not configured: " + rootMessage(err.Err) + ". Please check your API key."
	case KindTimeout:
		return fmt.Sprintf("The request timed out after %s. Please try again.", roundTimeout(timeout))
	case KindCanceled:
		return "The request was canceled."
	case KindNetwork:
		return "Could not reach the assistant service. Please check your connection and try again."
	default:
		var apiErr *ai.APIError
		if errors.As(err.Err, &apiErr) {
			return "The assistant service returned an error: " + apiErr.Message
		}
		if errors.Is(err.Err, ai.ErrEmptyReply) {
			return "The assistant returned an empty reply. Please try again."
		}
		return "Sorry, I couldn't process your message right now. Please try again."
	}
}

func roundTimeout(d time.Duration) time.Duration {
	if d >= time.Second {
		return d.Round(100 * time.Millisecond)
	}
	return d.Round(time.Millisecond)
}

func rootMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return errors.Cause(err).Error()
}
