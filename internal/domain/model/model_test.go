package model

import (
	"errors"
	"fmt"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMulDiv(t *testing.T) {
	Convey("Given 128-bit multiply-divide", t, func() {
		So(MulDiv(1_900_000, 4_750_000, 1_900_000), ShouldEqual, 4_750_000)
		So(MulDiv(7, 3, 2), ShouldEqual, 10)
		So(MulDiv(5, 5, 0), ShouldEqual, 0)
		So(MulDiv(math.MaxUint64, math.MaxUint64, math.MaxUint64), ShouldEqual, uint64(math.MaxUint64))
		So(MulDiv(math.MaxUint64, 2, 1), ShouldEqual, uint64(math.MaxUint64))
	})

	Convey("Given checked addition", t, func() {
		sum, ok := CheckedAdd(1, 2)
		So(ok, ShouldBeTrue)
		So(sum, ShouldEqual, 3)
		_, ok = CheckedAdd(math.MaxUint64, 1)
		So(ok, ShouldBeFalse)
	})
}

func TestOdds(t *testing.T) {
	Convey("Given markets with various pools", t, func() {
		So(OddsOf(&Market{}), ShouldResemble, Odds{PositiveOdds: 50, NegativeOdds: 50})
		So(OddsOf(&Market{TotalPool: 3, PositivePool: 1, NegativePool: 2}), ShouldResemble, Odds{PositiveOdds: 33, NegativeOdds: 66})
		So(OddsOf(&Market{TotalPool: 10, PositivePool: 10}), ShouldResemble, Odds{PositiveOdds: 100, NegativeOdds: 0})
	})
}

func TestMarketOutcome(t *testing.T) {
	Convey("Given a resolved market with threshold 60", t, func() {
		score := uint64(60)
		m := Market{Threshold: 60, Resolved: true, ActualScore: &score, ClosesAt: 10, ResolvesAt: 20}

		Convey("Then a tie favours the positive side", func() {
			side, ok := m.WinningSide()
			So(ok, ShouldBeTrue)
			So(side, ShouldEqual, Positive)
		})

		Convey("Then a lower score favours the negative side", func() {
			low := uint64(59)
			m.ActualScore = &low
			side, _ := m.WinningSide()
			So(side, ShouldEqual, Negative)
		})

		Convey("Then an unresolved market has no winner", func() {
			m.Resolved = false
			m.ActualScore = nil
			_, ok := m.WinningSide()
			So(ok, ShouldBeFalse)
			So(m.Phase(5), ShouldEqual, PhaseOpen)
			So(m.Phase(10), ShouldEqual, PhaseClosed)
			So(m.Phase(20), ShouldEqual, PhaseExpired)
		})
	})
}

func TestSides(t *testing.T) {
	Convey("Given wire side names", t, func() {
		for in, want := range map[string]Side{"positive": Positive, "ABOVE": Positive, "yes": Positive, " negative ": Negative, "below": Negative, "no": Negative} {
			got, err := ParseSide(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}
		_, err := ParseSide("sideways")
		So(errors.Is(err, ErrInvalidInput), ShouldBeTrue)
		So(Positive.String(), ShouldEqual, "positive")
		So(Side(0).Valid(), ShouldBeFalse)
	})
}

func TestErrorCodes(t *testing.T) {
	Convey("Given wrapped market errors", t, func() {
		err := fmt.Errorf("place bet: %w", ErrMarketClosed)
		So(KindOf(err), ShouldEqual, ErrMarketClosed)
		So(Code(err), ShouldEqual, "market_closed")
		So(Code(errors.New("other")), ShouldEqual, "")
		for _, k := range Kinds {
			So(Code(k), ShouldNotBeEmpty)
		}
	})
}
