package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eduguard/eduguard/internal/adapters/datastore"
	"github.com/eduguard/eduguard/internal/adapters/http/api"
	service "github.com/eduguard/eduguard/internal/app"
	"github.com/eduguard/eduguard/internal/client"
	"github.com/eduguard/eduguard/internal/domain/attendance"
	"github.com/eduguard/eduguard/internal/domain/model"
	"github.com/eduguard/eduguard/internal/domain/risk"
	"github.com/eduguard/eduguard/internal/domain/types"
	"github.com/eduguard/eduguard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const seedFile = "../adapters/datastore/testdata/school.json"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newServer() *httptest.Server {
	snap, err := datastore.LoadSnapshot(seedFile)
	So(err, ShouldBeNil)
	svc := service.New(service.WithStore(datastore.NewMemoryStore(datastore.WithSnapshot(snap))))
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestClient(t *testing.T) {
	Convey("Given a client against a running API", t, func() {
		srv := newServer()
		defer srv.Close()
		ctx := context.Background()

		c, err := client.New(srv.URL+"/", client.WithHTTPClient(srv.Client()))
		So(err, ShouldBeNil)

		Convey("When fetching a student", func() {
			out, err := c.StudentRisk(ctx, "s3", "")

			Convey("Then the evaluation is decoded", func() {
				So(err, ShouldBeNil)
				So(out.Risk.Score, ShouldEqual, 60)
				So(out.Risk.Level, ShouldEqual, risk.LevelMedium)
			})
		})

		Convey("When fetching a class with the logistic variant", func() {
			out, err := c.ClassRisk(ctx, "c10A", risk.VariantLogistic)

			Convey("Then the variant is passed through", func() {
				So(err, ShouldBeNil)
				So(out.Variant, ShouldEqual, risk.VariantLogistic)
				So(out.Students[0].Name, ShouldEqual, "Ravi")
			})
		})

		Convey("When fetching attendance and the overview", func() {
			att, err := c.ClassAttendance(ctx, "c10A", attendance.Month(2024, 3))
			So(err, ShouldBeNil)
			ov, err := c.Overview(ctx, "")
			So(err, ShouldBeNil)

			Convey("Then both are decoded", func() {
				So(att.Summary.Percent, ShouldEqual, 33)
				So(ov.Counts, ShouldResemble, types.LevelCounts{High: 1, Medium: 1, Low: 2})
			})
		})

		Convey("When scoring and rendering levels", func() {
			out, err := c.Score(ctx, types.ScoreRequest{Name: "Kiran", Marks: model.Float(20), Attendance: model.Float(25), Homework: model.Float(80)})
			So(err, ShouldBeNil)
			p, err := c.Level(ctx, out.Risk.Level, "Kiran", out.Risk.Score)
			So(err, ShouldBeNil)

			Convey("Then the presentation matches the score", func() {
				So(out.Risk.Score, ShouldEqual, 34)
				So(p.ActionPlan, ShouldContainSubstring, "Critical intervention required for Kiran (score 34).")
			})
		})

		Convey("When writing attendance and homework", func() {
			err := c.MarkAttendance(ctx, "c9B", "2024-04-02", model.DayRecord{"s4": model.Late})
			So(err, ShouldBeNil)
			hw, err := c.AddHomework(ctx, model.Homework{ClassID: "c9B", Subject: "History"})
			So(err, ShouldBeNil)

			Convey("Then the writes are visible", func() {
				So(hw.ID, ShouldNotBeEmpty)
				att, err := c.ClassAttendance(ctx, "c9B", attendance.Period{From: "2024-04-02", To: "2024-04-02"})
				So(err, ShouldBeNil)
				So(att.Summary, ShouldResemble, attendance.Summary{PresentCount: 1, TotalCount: 1, Percent: 100})
			})
		})

		Convey("When the student is unknown", func() {
			_, err := c.StudentRisk(ctx, "ghost", "")

			Convey("Then an APIError carries the status and code", func() {
				var apiErr *client.APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Status, ShouldEqual, http.StatusNotFound)
				So(apiErr.Code, ShouldEqual, "not_found")
			})
		})

		Convey("When stats are fetched", func() {
			stats, err := c.Stats(ctx)

			Convey("Then the backend is reported", func() {
				So(err, ShouldBeNil)
				So(stats.Backend, ShouldEqual, datastore.BackendMemory)
			})
		})
	})

	Convey("Given an empty base URL", t, func() {
		_, err := client.New("  ")

		Convey("Then New fails", func() {
			So(errors.Is(err, client.ErrEmptyBaseURL), ShouldBeTrue)
		})
	})
}
