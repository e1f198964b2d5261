package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When it is initialized with a known format", func() {
			So(Init(), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
			So(InitWithFormat(FormatJSON), ShouldBeNil)
			So(Named("engine"), ShouldNotBeNil)
			So(Sync(), ShouldBeNil)
		})

		Convey("When it is initialized with an unknown format", func() {
			So(InitWithFormat("xml"), ShouldNotBeNil)
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		So(SetLevelString("info"), ShouldBeNil)
		var buf bytes.Buffer
		l, err := New(&buf, FormatJSON)
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("When a named logger writes fields", func() {
			l.Named("scoring").Warn(ctx, "model unavailable",
				String("farmer_id", "f-1"),
				Bool("fallback", true),
				Duration("took", 2*time.Millisecond),
				Error(errors.New("artifact missing")),
			)

			Convey("Then the record carries them as attributes", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "model unavailable")
				So(rec["level"], ShouldEqual, "WARN")
				So(rec["component"], ShouldEqual, "scoring")
				So(rec["farmer_id"], ShouldEqual, "f-1")
				So(rec["fallback"], ShouldEqual, true)
				So(rec["error"], ShouldEqual, "artifact missing")
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the context carries fields", func() {
			scoped := WithFields(ctx, String("request_id", "req-7"))
			scoped = WithFields(scoped, String("farmer_id", "f-2"))
			l.Info(scoped, "scored", Float64("score", 58.1))

			Convey("Then every record written with it includes them", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["request_id"], ShouldEqual, "req-7")
				So(rec["farmer_id"], ShouldEqual, "f-2")
				So(rec["score"], ShouldEqual, 58.1)
				So(len(FieldsFrom(scoped)), ShouldEqual, 2)
				So(FieldsFrom(ctx), ShouldBeEmpty)
				So(WithFields(ctx), ShouldEqual, ctx)
			})
		})

		Convey("When the level is raised above the message", func() {
			So(SetLevelString("error"), ShouldBeNil)
			l.Info(ctx, "quiet")
			So(buf.Len(), ShouldEqual, 0)
			So(SetLevelString("info"), ShouldBeNil)
		})

		Convey("When an unknown level is set", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})
	})

	Convey("Given a discard logger", t, func() {
		Convey("Then writing never panics", func() {
			So(func() { Discard().Error(context.Background(), "dropped", Int("n", 1)) }, ShouldNotPanic)
		})
	})

	Convey("Given a text logger", t, func() {
		var buf bytes.Buffer
		l, err := New(&buf, FormatText)
		So(err, ShouldBeNil)
		l.Info(context.Background(), "hello", Float64("score", 61.5))
		So(strings.Contains(buf.String(), "score=61.5"), ShouldBeTrue)
	})
}
