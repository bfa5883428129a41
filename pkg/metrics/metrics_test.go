package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			m.marketsCreated.Inc()
			m.fundBalance.Set(42)

			Convey("Then collectors are registered under the namespace", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				created := findFamily(families, "test_unit_markets_created_total")
				So(created, ShouldNotBeNil)
				So(created.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 1)
				So(created.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")

				fund := findFamily(families, "test_unit_fund_balance")
				So(fund, ShouldNotBeNil)
				So(fund.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 42)
			})
		})

		Convey("When empty options are passed", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "moodmarket")
				So(m.subsystem, ShouldEqual, "market")
				So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording market activity", func() {
			RecordBetPlaced("positive", 1000, 50)
			RecordBetPlaced("positive", 1000, 50)
			UpdatePaused(true)

			Convey("Then the custom registry exposes the values", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)

				bets := findFamily(families, "moodmarket_market_bets_placed_total")
				So(bets, ShouldNotBeNil)
				So(bets.GetMetric()[0].GetCounter().GetValue(), ShouldBeGreaterThanOrEqualTo, 2)

				paused := findFamily(families, "moodmarket_market_paused")
				So(paused, ShouldNotBeNil)
				So(paused.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 1)
			})
		})

		Convey("When calling every recorder", func() {
			So(func() {
				RecordMarketCreated()
				UpdateMarketsTotal(3)
				RecordSampleSubmitted(55)
				RecordMarketResolved("negative")
				RecordClaim(10)
				RecordWithdrawal()
				UpdateFundBalance(7)
				UpdatePaused(false)
				RecordRejection("place_bet", "market_closed")
				RecordCommand("place_bet", "ok", 0.3)
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				RecordQueueEnqueue()
				RecordQueueRejected("full")
				UpdateBlockHeight(100)
				RecordLedgerTransfer("memory", "ok")
				UpdateStandingsSize(2)
				RecordRepositoryUpdateLatency(0.1)
				RecordIdempotentReplay()
				RecordHTTPRequest("/markets", "GET", "200")
				RecordHTTPRequestDuration("/markets", "GET", "200", 1.5)
				RecordErrorByEndpoint("/markets", "POST", "invalid_input")
				RecordRateLimited("/markets")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.5)
			}, ShouldNotPanic)
		})
	})
}
