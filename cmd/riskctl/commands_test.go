package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/eduguard/eduguard/internal/adapters/datastore"
	"github.com/eduguard/eduguard/internal/adapters/http/api"
	service "github.com/eduguard/eduguard/internal/app"
	"github.com/eduguard/eduguard/internal/domain/risk"
	"github.com/eduguard/eduguard/internal/domain/types"
	"github.com/eduguard/eduguard/pkg/logger"
)

const seedFile = "../../internal/adapters/datastore/testdata/school.json"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func run(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func apiServer() *httptest.Server {
	snap, err := datastore.LoadSnapshot(seedFile)
	convey.So(err, convey.ShouldBeNil)
	svc := service.New(service.WithStore(datastore.NewMemoryStore(datastore.WithSnapshot(snap))))
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestScoreCommand(t *testing.T) {
	convey.Convey("Given the score command", t, func() {
		convey.Convey("When scoring locally with the linear variant", func() {
			out, err := run("score", "--marks", "20", "--attendance", "25", "--homework", "80", "-o", "json")

			convey.Convey("Then the score and action plan are printed", func() {
				convey.So(err, convey.ShouldBeNil)
				var resp types.ScoreResponse
				convey.So(json.Unmarshal([]byte(out), &resp), convey.ShouldBeNil)
				convey.So(resp.Risk.Score, convey.ShouldEqual, 34)
				convey.So(resp.Risk.Level, convey.ShouldEqual, risk.LevelHigh)
			})
		})

		convey.Convey("When scoring locally with the logistic variant and missing inputs", func() {
			out, err := run("score", "--variant", "logistic", "--marks", "50")

			convey.Convey("Then absent signals take the neutral default", func() {
				convey.So(err, convey.ShouldBeNil)
				// z = 5 - 2 - 1.5 - 1 = 0.5
				convey.So(out, convey.ShouldContainSubstring, "62")
				convey.So(out, convey.ShouldContainSubstring, "MEDIUM")
			})
		})

		convey.Convey("When the reject policy meets an out-of-range input", func() {
			_, err := run("score", "--marks", "140", "--policy", "reject")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When no signal is given", func() {
			_, err := run("score")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldEqual, errNoSignals)
			})
		})

		convey.Convey("When the output format is unknown", func() {
			_, err := run("score", "--marks", "10", "-o", "xml")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestLevelCommand(t *testing.T) {
	convey.Convey("Given the level command", t, func() {
		out, err := run("level", "medium", "--name", "Meera", "--score", "60")

		convey.Convey("Then the action plan is rendered", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "Meera needs focused improvement (score 60).")
		})
	})
}

func TestRemoteCommands(t *testing.T) {
	convey.Convey("Given a running API", t, func() {
		srv := apiServer()
		defer srv.Close()

		convey.Convey("When evaluating several students", func() {
			out, err := run("--url", srv.URL, "student", "s1", "s2", "s4", "--workers", "2", "-o", "json")

			convey.Convey("Then results keep the argument order", func() {
				convey.So(err, convey.ShouldBeNil)
				var list []types.StudentRisk
				convey.So(json.Unmarshal([]byte(out), &list), convey.ShouldBeNil)
				convey.So(len(list), convey.ShouldEqual, 3)
				convey.So(list[0].StudentID, convey.ShouldEqual, "s1")
				convey.So(list[1].Risk.Score, convey.ShouldEqual, 34)
				convey.So(list[2].Risk.Score, convey.ShouldEqual, 76)
			})
		})

		convey.Convey("When listing a class as text", func() {
			out, err := run("--url", srv.URL, "class", "c10A")

			convey.Convey("Then the table is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "HIGH 1  MEDIUM 1  LOW 1")
				convey.So(out, convey.ShouldContainSubstring, "Ravi")
			})
		})

		convey.Convey("When reading attendance for a month", func() {
			out, err := run("--url", srv.URL, "attendance", "c10A", "--month", "2024-03")

			convey.Convey("Then the summary is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "33%")
			})
		})

		convey.Convey("When requesting the overview", func() {
			out, err := run("--url", srv.URL, "overview", "-o", "json")

			convey.Convey("Then the counts are printed", func() {
				convey.So(err, convey.ShouldBeNil)
				var ov types.Overview
				convey.So(json.Unmarshal([]byte(out), &ov), convey.ShouldBeNil)
				convey.So(ov.Counts.Low, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When marking attendance and posting homework", func() {
			out, err := run("--url", srv.URL, "mark", "c9B", "--date", "2024-04-03", "--present", "s4")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "marked 1 students in c9B on 2024-04-03")

			out, err = run("--url", srv.URL, "homework", "c9B", "--subject", "Geography")

			convey.Convey("Then both writes succeed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Geography")
			})
		})

		convey.Convey("When scoring remotely", func() {
			out, err := run("--url", srv.URL, "score", "--remote", "--marks", "82", "--attendance", "91", "--homework", "70")

			convey.Convey("Then the server answers", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "83")
			})
		})

		convey.Convey("When the student is unknown", func() {
			_, err := run("--url", srv.URL, "student", "ghost")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "not_found")
			})
		})
	})
}
