// Package renderer holds the boundary to the rendering engine's tempo
// entry point and the fallback-chain applier that feeds it.
//
// The engine's accepted input shapes are not guaranteed, so a desired
// tempo is offered as an ordered candidate list: most precise first,
// most compatible last. The first candidate the setter accepts is
// authoritative.
package renderer

import (
	"context"
	"fmt"

	"github.com/cadencelab/tempolink/internal/domain/tempo"
	"github.com/cadencelab/tempolink/pkg/logger"
	"github.com/cadencelab/tempolink/pkg/metrics"
)

// TempoSetter is the consumed contract of the rendering engine. A nil
// return means the candidate shape was accepted.
type TempoSetter interface {
	SetTempo(ctx context.Context, c tempo.Candidate) error
}

// SetterFunc adapts a function to TempoSetter.
type SetterFunc func(ctx context.Context, c tempo.Candidate) error

func (f SetterFunc) SetTempo(ctx context.Context, c tempo.Candidate) error {
	return f(ctx, c)
}

// Applier walks a candidate chain against a TempoSetter.
type Applier struct {
	setter TempoSetter
	logger logger.Logger
}

// NewApplier creates an Applier for the given setter.
func NewApplier(setter TempoSetter, opts ...ApplierOption) *Applier {
	a := &Applier{setter: setter}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("applier")
	}
	return a
}

// Apply offers candidates in order and returns the first one accepted.
// If every candidate is rejected it returns ErrAllRejected wrapping the
// last rejection, and the caller must leave its tempo model untouched.
func (a *Applier) Apply(ctx context.Context, candidates []tempo.Candidate) (tempo.Candidate, error) {
	if len(candidates) == 0 {
		return tempo.Candidate{}, fmt.Errorf("%w: empty candidate list", ErrAllRejected)
	}

	var lastErr error
	for _, c := range candidates {
		err := a.setter.SetTempo(ctx, c)
		if err == nil {
			metrics.RecordTempoUpdateApplied(c.Kind.String())
			return c, nil
		}
		lastErr = err
		metrics.RecordCandidateRejection()
		a.logger.Debug(ctx, "candidate rejected",
			logger.String("candidate", c.String()),
			logger.Error(err),
		)
	}

	metrics.RecordTempoUpdateFailure()
	return tempo.Candidate{}, fmt.Errorf("%w: %v", ErrAllRejected, lastErr)
}
