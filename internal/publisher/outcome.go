package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"postline/internal/services"
	"postline/internal/session"
)

// Kind classifies the result of a publish attempt.
type Kind string

const (
	KindSuccess   Kind = "success"
	KindTransient Kind = "transient"
	KindPermanent Kind = "permanent"
)

// ReasonTimeout is reported when an attempt exceeds its wall-clock budget.
const ReasonTimeout = "timeout"

// ParseKind converts a result label into a Kind.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindSuccess:
		return KindSuccess, true
	case KindTransient:
		return KindTransient, true
	case KindPermanent:
		return KindPermanent, true
	default:
		return "", false
	}
}

// Outcome is the result of a single Submit call.
type Outcome struct {
	Kind   Kind
	Reason string
}

// Success reports a completed publish.
func Success() Outcome { return Outcome{Kind: KindSuccess} }

// Transient reports a failure that may succeed on retry.
func Transient(reason string) Outcome {
	return Outcome{Kind: KindTransient, Reason: strings.TrimSpace(reason)}
}

// Permanent reports a failure that retrying cannot fix.
func Permanent(reason string) Outcome {
	return Outcome{Kind: KindPermanent, Reason: strings.TrimSpace(reason)}
}

// Succeeded reports whether the outcome is a success.
func (o Outcome) Succeeded() bool { return o.Kind == KindSuccess }

func (o Outcome) String() string {
	if o.Reason == "" {
		return string(o.Kind)
	}
	return fmt.Sprintf("%s: %s", o.Kind, o.Reason)
}

// Err converts a failed outcome into an error carrying the matching marker.
func (o Outcome) Err() error {
	switch o.Kind {
	case KindSuccess:
		return nil
	case KindPermanent:
		return services.Wrap(services.ErrPermanent, "publisher", "submit", o.Reason, nil)
	default:
		if o.Reason == ReasonTimeout {
			return services.Wrap(services.ErrTimeout, "publisher", "submit", o.Reason, nil)
		}
		return services.Wrap(services.ErrTransient, "publisher", "submit", o.Reason, nil)
	}
}

// OutcomeFromError maps an error into an outcome. Deadline and timeout
// errors become Transient("timeout"); permanent, validation, and not-found
// markers become Permanent; everything else is Transient.
func OutcomeFromError(err error) Outcome {
	switch {
	case err == nil:
		return Success()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, services.ErrTimeout):
		return Transient(ReasonTimeout)
	case errors.Is(err, services.ErrPermanent),
		errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrNotFound):
		return Permanent(err.Error())
	default:
		return Transient(err.Error())
	}
}

// Request carries everything one publish attempt needs.
type Request struct {
	PayloadRef string
	Caption    string
	Session    session.Handle
	Timeout    time.Duration
}

// Adapter performs the publishing action. Implementations must honour ctx
// cancellation and must not retain the session after Submit returns.
type Adapter interface {
	Submit(ctx context.Context, req Request) Outcome
}

// Func adapts an ordinary function to the Adapter interface.
type Func func(ctx context.Context, req Request) Outcome

// Submit calls f(ctx, req).
func (f Func) Submit(ctx context.Context, req Request) Outcome {
	return f(ctx, req)
}
