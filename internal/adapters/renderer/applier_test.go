package renderer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cadencelab/tempolink/internal/adapters/renderer"
	"github.com/cadencelab/tempolink/internal/domain/tempo"
	"github.com/cadencelab/tempolink/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// recordingSetter accepts or rejects by candidate kind and remembers
// every offer.
type recordingSetter struct {
	rejectKinds map[tempo.Kind]error
	offered     []tempo.Candidate
}

func (r *recordingSetter) SetTempo(_ context.Context, c tempo.Candidate) error {
	r.offered = append(r.offered, c)
	if err, ok := r.rejectKinds[c.Kind]; ok {
		return err
	}
	return nil
}

func TestApplier(t *testing.T) {
	ctx := context.Background()
	candidates := tempo.BuildCandidates(2.0, 0, false, 100.0)

	Convey("Given a setter that accepts everything", t, func() {
		setter := &recordingSetter{}
		applier := renderer.NewApplier(setter)

		Convey("When applying the chain", func() {
			accepted, err := applier.Apply(ctx, candidates)

			Convey("Then the precise candidate wins and the chain stops", func() {
				So(err, ShouldBeNil)
				So(accepted.Kind, ShouldEqual, tempo.KindPrecise)
				So(setter.offered, ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given a setter that rejects the precise shape", t, func() {
		setter := &recordingSetter{
			rejectKinds: map[tempo.Kind]error{tempo.KindPrecise: errors.New("no rational support")},
		}
		applier := renderer.NewApplier(setter)

		Convey("When applying the chain", func() {
			accepted, err := applier.Apply(ctx, candidates)

			Convey("Then the simple candidate is the authoritative one", func() {
				So(err, ShouldBeNil)
				So(accepted.Kind, ShouldEqual, tempo.KindSimple)
				So(accepted.CPS, ShouldAlmostEqual, 2.0)
				So(setter.offered, ShouldHaveLength, 2)
			})
		})
	})

	Convey("Given a setter that rejects every shape", t, func() {
		rejection := errors.New("engine offline")
		setter := &recordingSetter{
			rejectKinds: map[tempo.Kind]error{
				tempo.KindPrecise: errors.New("no rational support"),
				tempo.KindSimple:  rejection,
			},
		}
		applier := renderer.NewApplier(setter)

		Convey("When applying the chain", func() {
			_, err := applier.Apply(ctx, candidates)

			Convey("Then the failure wraps ErrAllRejected with the last reason", func() {
				So(err, ShouldWrap, renderer.ErrAllRejected)
				So(err.Error(), ShouldContainSubstring, "engine offline")
			})
		})
	})

	Convey("Given an empty candidate list", t, func() {
		applier := renderer.NewApplier(&recordingSetter{})
		_, err := applier.Apply(ctx, nil)
		So(err, ShouldWrap, renderer.ErrAllRejected)
	})

	Convey("Given a SetterFunc adapter", t, func() {
		var got tempo.Candidate
		setter := renderer.SetterFunc(func(_ context.Context, c tempo.Candidate) error {
			got = c
			return nil
		})
		applier := renderer.NewApplier(setter)

		accepted, err := applier.Apply(ctx, candidates)
		So(err, ShouldBeNil)
		So(got.Kind, ShouldEqual, accepted.Kind)
	})
}
