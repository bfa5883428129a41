package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	dedupe "github.com/okian/moodmarket/internal/domain/dedupe"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When a key is recorded twice", func() {
			d := dedupe.NewInMemoryDeduper()
			first := d.SeenAndRecord(ctx, "alice:bet-1")
			second := d.SeenAndRecord(ctx, "alice:bet-1")

			Convey("Then only the second call reports it as seen", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a failed request is unrecorded", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(ctx, "alice:bet-1")
			d.Unrecord(ctx, "alice:bet-1")
			d.Unrecord(ctx, "missing")

			Convey("Then the key can be used again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "alice:bet-1"), ShouldBeFalse)
			})
		})

		Convey("When the bounded deduper is full", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for _, k := range []string{"k1", "k2", "k3"} {
				So(d.SeenAndRecord(ctx, k), ShouldBeFalse)
			}
			So(d.SeenAndRecord(ctx, "k4"), ShouldBeFalse)

			Convey("Then the oldest key is evicted first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "k4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "k3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "k2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "k1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 3)
			})

			Convey("Then unrecording the middle key keeps the order intact", func() {
				d.Unrecord(ctx, "k3")
				So(d.SeenAndRecord(ctx, "k5"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "k6"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "k5"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "k6"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "k4"), ShouldBeTrue)
			})
		})

		Convey("When the deduper is unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := 0; i < 1000; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("key-%d", i)), ShouldBeFalse)
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, 1000)
				So(d.SeenAndRecord(ctx, "key-0"), ShouldBeTrue)
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper shared by goroutines", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(10000))
		const workers = 10
		const perWorker = 100

		Convey("When every worker submits the same keys", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < perWorker; j++ {
						if !d.SeenAndRecord(ctx, fmt.Sprintf("key-%d", j)) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each key is admitted exactly once", func() {
				So(fresh, ShouldEqual, perWorker)
				So(d.Size(), ShouldEqual, perWorker)
			})
		})
	})
}
