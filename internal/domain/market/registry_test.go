package market

import (
	"context"
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/moodmarket/internal/adapters/repository"
	"github.com/okian/moodmarket/internal/domain/model"
)

type switchGate struct{ paused bool }

func newStore() *repository.MapStore[model.MarketID, model.Market] {
	return repository.NewMapStore[model.MarketID, model.Market]()
}

func (g *switchGate) EnsureActive() error {
	if g.paused {
		return model.ErrUnauthorized
	}
	return nil
}

func TestNewRegistry(t *testing.T) {
	Convey("Given registry construction", t, func() {
		_, err := NewRegistry(nil, newStore(), 10, 10)
		So(errors.Is(err, ErrNoGate), ShouldBeTrue)

		_, err = NewRegistry(&switchGate{}, nil, 10, 10)
		So(errors.Is(err, ErrNoStore), ShouldBeTrue)

		_, err = NewRegistry(&switchGate{}, newStore(), 0, 10)
		So(errors.Is(err, ErrInvalidSchedule), ShouldBeTrue)

		_, err = NewRegistry(&switchGate{}, newStore(), 10, 0)
		So(errors.Is(err, ErrInvalidSchedule), ShouldBeTrue)
	})
}

func TestRegistryCreate(t *testing.T) {
	Convey("Given an active registry", t, func() {
		ctx := context.Background()
		gate := &switchGate{}
		r, err := NewRegistry(gate, newStore(), 144, 72)
		So(err, ShouldBeNil)

		Convey("When markets are created", func() {
			id1, err := r.Create(ctx, "alice", 100, CreateParams{Title: "calm monday", Threshold: 60, ResolutionSource: "feed"})
			So(err, ShouldBeNil)
			id2, err := r.Create(ctx, "bob", 101, CreateParams{Title: "sunny", Threshold: 100})
			So(err, ShouldBeNil)

			Convey("Then ids increase from 1 and the schedule is derived", func() {
				So(id1, ShouldEqual, model.MarketID(1))
				So(id2, ShouldEqual, model.MarketID(2))

				m, err := r.Get(id1)
				So(err, ShouldBeNil)
				So(m.Creator, ShouldEqual, model.Identity("alice"))
				So(m.CreatedAt, ShouldEqual, 100)
				So(m.ClosesAt, ShouldEqual, 244)
				So(m.ResolvesAt, ShouldEqual, 316)
				So(m.CreatedAt, ShouldBeLessThan, m.ClosesAt)
				So(m.ClosesAt, ShouldBeLessThan, m.ResolvesAt)
				So(m.Resolved, ShouldBeFalse)
				So(m.ActualScore, ShouldBeNil)
				So(m.Phase(100), ShouldEqual, model.PhaseOpen)
				So(m.Phase(244), ShouldEqual, model.PhaseClosed)
				So(m.Phase(316), ShouldEqual, model.PhaseExpired)
			})

			Convey("Then listing returns them in id order", func() {
				list := r.List(ctx)
				So(len(list), ShouldEqual, 2)
				So(list[0].ID, ShouldEqual, id1)
				So(list[1].ID, ShouldEqual, id2)
				So(r.Count(), ShouldEqual, 2)
			})

			Convey("Then an empty market has even odds", func() {
				odds, err := r.Odds(id1)
				So(err, ShouldBeNil)
				So(odds, ShouldResemble, model.Odds{PositiveOdds: 50, NegativeOdds: 50})
			})
		})

		Convey("When creation is paused", func() {
			gate.paused = true
			_, err := r.Create(ctx, "alice", 1, CreateParams{Title: "x", Threshold: 10})
			So(errors.Is(err, model.ErrUnauthorized), ShouldBeTrue)
			So(r.Count(), ShouldEqual, 0)
		})

		Convey("When the input is invalid", func() {
			_, err := r.Create(ctx, "alice", 1, CreateParams{Title: "x", Threshold: 101})
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			_, err = r.Create(ctx, "alice", 1, CreateParams{Title: "  ", Threshold: 1})
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			_, err = r.Create(ctx, "", 1, CreateParams{Title: "x", Threshold: 1})
			So(errors.Is(err, model.ErrUnauthorized), ShouldBeTrue)
			_, err = r.Create(ctx, "alice", math.MaxUint64-10, CreateParams{Title: "x", Threshold: 1})
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			So(r.Count(), ShouldEqual, 0)
		})

		Convey("When looking up an unknown market", func() {
			_, err := r.Get(9)
			So(errors.Is(err, model.ErrInvalidMarket), ShouldBeTrue)
			_, err = r.Odds(9)
			So(errors.Is(err, model.ErrInvalidMarket), ShouldBeTrue)
		})
	})
}

func TestRegistryStakesAndResolution(t *testing.T) {
	Convey("Given a market", t, func() {
		ctx := context.Background()
		r, _ := NewRegistry(&switchGate{}, newStore(), 10, 10)
		id, _ := r.Create(ctx, "alice", 0, CreateParams{Title: "x", Threshold: 50})

		Convey("When stakes are added to both sides", func() {
			So(r.AddStake(id, model.Positive, 1), ShouldBeNil)
			So(r.AddStake(id, model.Negative, 2), ShouldBeNil)
			So(r.AddStake(id, model.Positive, 0), ShouldBeNil)

			Convey("Then the pool invariant holds and odds are floored per side", func() {
				m, _ := r.Get(id)
				So(m.TotalPool, ShouldEqual, m.PositivePool+m.NegativePool)
				So(m.TotalPool, ShouldEqual, 3)
				odds, _ := r.Odds(id)
				So(odds, ShouldResemble, model.Odds{PositiveOdds: 33, NegativeOdds: 66})
			})
		})

		Convey("When a stake would overflow the pool", func() {
			So(r.AddStake(id, model.Positive, math.MaxUint64), ShouldBeNil)
			err := r.AddStake(id, model.Negative, 1)
			So(errors.Is(err, model.ErrInvalidAmount), ShouldBeTrue)
			m, _ := r.Get(id)
			So(m.NegativePool, ShouldEqual, 0)
		})

		Convey("When the side is unknown", func() {
			So(errors.Is(r.AddStake(id, model.Side(9), 1), model.ErrInvalidInput), ShouldBeTrue)
			So(errors.Is(r.AddStake(99, model.Positive, 1), model.ErrInvalidMarket), ShouldBeTrue)
		})

		Convey("When the market is resolved", func() {
			So(r.MarkResolved(id, 50), ShouldBeNil)

			Convey("Then the score is frozen", func() {
				m, _ := r.Get(id)
				So(m.Resolved, ShouldBeTrue)
				So(*m.ActualScore, ShouldEqual, 50)
				side, ok := m.WinningSide()
				So(ok, ShouldBeTrue)
				So(side, ShouldEqual, model.Positive)
				So(errors.Is(r.MarkResolved(id, 10), model.ErrAlreadyResolved), ShouldBeTrue)
				m, _ = r.Get(id)
				So(*m.ActualScore, ShouldEqual, 50)
			})
		})

		Convey("When the score is off the scale", func() {
			So(errors.Is(r.MarkResolved(id, 101), model.ErrOracle), ShouldBeTrue)
		})
	})
}

func TestRegistryResume(t *testing.T) {
	Convey("Given a store with existing markets", t, func() {
		markets := newStore()
		markets.Put(7, model.Market{ID: 7, Title: "old", ClosesAt: 1, ResolvesAt: 2})
		r, err := NewRegistry(&switchGate{}, markets, 10, 10)
		So(err, ShouldBeNil)

		Convey("Then new ids continue after the highest", func() {
			id, err := r.Create(context.Background(), "alice", 5, CreateParams{Title: "new", Threshold: 1})
			So(err, ShouldBeNil)
			So(id, ShouldEqual, model.MarketID(8))
		})
	})
}
