package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the logger package", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
			So(Sync(), ShouldBeNil)
		})

		Convey("When initialized with an unknown format", func() {
			So(Init(WithFormat("xml")), ShouldNotBeNil)
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat("json"), WithWriter(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging through a named logger", func() {
			Named("ledger").Info(ctx, "bet placed",
				Uint64("market_id", 7), Bool("positive", true), Error(errors.New("boom")))

			Convey("Then fields and component are emitted", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "bet placed")
				So(rec["component"], ShouldEqual, "ledger")
				So(rec["market_id"], ShouldEqual, float64(7))
				So(rec["positive"], ShouldBeTrue)
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level filters a message", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			So(buf.Len(), ShouldEqual, 0)

			Get().Error(ctx, "shown")
			So(strings.Contains(buf.String(), "shown"), ShouldBeTrue)
			So(SetLevelString("info"), ShouldBeNil)
		})

		Convey("When parsing an unknown level", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})
	})
}
