package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eduguard/eduguard/internal/adapters/datastore"
	"github.com/eduguard/eduguard/internal/adapters/http/api"
	service "github.com/eduguard/eduguard/internal/app"
	"github.com/eduguard/eduguard/internal/domain/attendance"
	"github.com/eduguard/eduguard/internal/domain/model"
	"github.com/eduguard/eduguard/internal/domain/presentation"
	"github.com/eduguard/eduguard/internal/domain/risk"
	"github.com/eduguard/eduguard/internal/domain/types"
	"github.com/eduguard/eduguard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const seedFile = "../../datastore/testdata/school.json"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// unavailableDeps fails every call the way an unreachable backend would.
type unavailableDeps struct{}

func (unavailableDeps) err() error {
	return fmt.Errorf("firebase: %w", datastore.ErrUnavailable)
}

func (d unavailableDeps) EvaluateStudent(context.Context, string, risk.Variant) (types.StudentRisk, error) {
	return types.StudentRisk{}, d.err()
}

func (d unavailableDeps) ClassRisk(context.Context, string, risk.Variant) (types.ClassRisk, error) {
	return types.ClassRisk{}, d.err()
}

func (d unavailableDeps) ClassAttendance(context.Context, string, attendance.Period) (types.ClassAttendance, error) {
	return types.ClassAttendance{}, d.err()
}

func (d unavailableDeps) Overview(context.Context, risk.Variant) (types.Overview, error) {
	return types.Overview{}, d.err()
}

func (d unavailableDeps) Score(context.Context, types.ScoreRequest) (types.ScoreResponse, error) {
	return types.ScoreResponse{}, d.err()
}

func (d unavailableDeps) MarkAttendance(context.Context, string, string, model.DayRecord) error {
	return d.err()
}

func (d unavailableDeps) AddHomework(context.Context, model.Homework) (model.Homework, error) {
	return model.Homework{}, d.err()
}

type staticStats struct{}

func (staticStats) GetStats() types.Stats { return types.Stats{Backend: "stub"} }

func newMux(opts ...service.Option) http.Handler {
	snap, err := datastore.LoadSnapshot(seedFile)
	So(err, ShouldBeNil)
	if len(opts) == 0 {
		opts = []service.Option{service.WithStore(datastore.NewMemoryStore(datastore.WithSnapshot(snap)))}
	}
	svc := service.New(opts...)
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return api.RequestID(mux)
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API over the seeded school", t, func() {
		h := newMux()

		Convey("Then the health endpoint serves metrics", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
		})

		Convey("And the stats endpoint reports the backend", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			stats := decode[types.Stats](w)
			So(stats.Backend, ShouldEqual, datastore.BackendMemory)
			So(stats.DefaultVariant, ShouldEqual, risk.VariantLinear)
		})

		Convey("And unknown paths are not found", func() {
			So(do(h, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And the wrong method is rejected", func() {
			So(do(h, http.MethodDelete, "/overview", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestRequestID(t *testing.T) {
	Convey("Given a request carrying an id", t, func() {
		h := api.RequestID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set(api.RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		Convey("Then it is echoed", func() {
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})
	})
}

func TestRiskEndpoints(t *testing.T) {
	Convey("Given the risk endpoints", t, func() {
		h := newMux()

		Convey("When evaluating a student", func() {
			w := do(h, http.MethodGet, "/students/s1/risk", "")

			Convey("Then the linear score and presentation are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				out := decode[types.StudentRisk](w)
				So(out.Risk.Score, ShouldEqual, 83)
				So(out.Risk.Level, ShouldEqual, risk.LevelLow)
				So(out.Presentation.Color, ShouldEqual, presentation.ColorSuccess)
			})
		})

		Convey("When evaluating a student with the logistic variant", func() {
			w := do(h, http.MethodGet, "/students/s2/risk?variant=logistic", "")

			Convey("Then the risk polarity applies", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				out := decode[types.StudentRisk](w)
				So(out.Risk.Score, ShouldEqual, 86)
				So(out.Risk.Level, ShouldEqual, risk.LevelHigh)
			})
		})

		Convey("When the student does not exist", func() {
			w := do(h, http.MethodGet, "/students/ghost/risk", "")

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode[map[string]string](w)["code"], ShouldEqual, "not_found")
			})
		})

		Convey("When the variant is unknown", func() {
			w := do(h, http.MethodGet, "/students/s1/risk?variant=quadratic", "")

			Convey("Then 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When listing a class", func() {
			w := do(h, http.MethodGet, "/classes/c10A/risk", "")

			Convey("Then students are ordered most severe first", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				out := decode[types.ClassRisk](w)
				So(len(out.Students), ShouldEqual, 3)
				So(out.Students[0].Name, ShouldEqual, "Ravi")
				So(out.Students[1].Name, ShouldEqual, "Meera")
				So(out.Students[2].Name, ShouldEqual, "Asha")
				So(out.Counts, ShouldResemble, types.LevelCounts{High: 1, Medium: 1, Low: 1})
			})
		})

		Convey("When requesting the overview", func() {
			w := do(h, http.MethodGet, "/overview", "")

			Convey("Then level counts cover the school", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				out := decode[types.Overview](w)
				So(out.Students, ShouldEqual, 4)
				So(out.Counts, ShouldResemble, types.LevelCounts{High: 1, Medium: 1, Low: 2})
			})
		})

		Convey("When scoring ad-hoc signals", func() {
			w := do(h, http.MethodPost, "/risk/score", `{"name":"Asha","marks":80,"attendance":90,"homework":70}`)

			Convey("Then the default variant scores them", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				out := decode[types.ScoreResponse](w)
				So(out.Risk.Score, ShouldEqual, 82)
				So(out.Risk.Level, ShouldEqual, risk.LevelLow)
				So(out.Presentation.ActionPlan, ShouldContainSubstring, "Great work, Asha! (score 82)")
			})
		})

		Convey("When the variant is spelled in upper case", func() {
			body := do(h, http.MethodPost, "/risk/score", `{"variant":"LOGISTIC","marks":50}`)
			query := do(h, http.MethodGet, "/students/s1/risk?variant=LOGISTIC", "")

			Convey("Then the body and the query accept it alike", func() {
				So(body.Code, ShouldEqual, http.StatusOK)
				out := decode[types.ScoreResponse](body)
				So(out.Risk.Variant, ShouldEqual, risk.VariantLogistic)
				So(out.Risk.Score, ShouldEqual, 62)
				So(query.Code, ShouldEqual, http.StatusOK)
				So(decode[types.StudentRisk](query).Risk.Variant, ShouldEqual, risk.VariantLogistic)
			})
		})

		Convey("When the score body is malformed", func() {
			So(do(h, http.MethodPost, "/risk/score", `{"marks":`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodPost, "/risk/score", `{"marks":50,"grade":"A"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodPost, "/risk/score", `{"variant":"cubic"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When rendering a level", func() {
			w := do(h, http.MethodGet, "/risk/levels/high?name=Ravi&score=34", "")

			Convey("Then the presentation is filled in", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				out := decode[presentation.Presentation](w)
				So(out.Label, ShouldEqual, "HIGH")
				So(out.Color, ShouldEqual, presentation.ColorDanger)
				So(out.ActionPlan, ShouldContainSubstring, "Critical intervention required for Ravi (score 34).")
			})
		})

		Convey("When rendering an unknown level", func() {
			w := do(h, http.MethodGet, "/risk/levels/severe", "")

			Convey("Then the neutral presentation is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[presentation.Presentation](w).Label, ShouldEqual, presentation.LabelUnknown)
			})
		})

		Convey("When the level score is not a number", func() {
			So(do(h, http.MethodGet, "/risk/levels/low?score=lots", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("Given a service that rejects out-of-range inputs", t, func() {
		engine := risk.NewEngine(risk.WithEnginePolicy(risk.PolicyReject))
		snap, err := datastore.LoadSnapshot(seedFile)
		So(err, ShouldBeNil)
		h := newMux(
			service.WithStore(datastore.NewMemoryStore(datastore.WithSnapshot(snap))),
			service.WithEngine(engine),
		)

		Convey("When marks exceed 100", func() {
			w := do(h, http.MethodPost, "/risk/score", `{"marks":120,"attendance":90,"homework":70}`)

			Convey("Then 422 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decode[map[string]string](w)["code"], ShouldEqual, "input_out_of_range")
			})
		})
	})
}

func TestAttendanceEndpoints(t *testing.T) {
	Convey("Given the attendance endpoints", t, func() {
		h := newMux()

		Convey("When reading a class month", func() {
			w := do(h, http.MethodGet, "/classes/c10A/attendance?month=2024-03", "")

			Convey("Then the summary and days are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				out := decode[types.ClassAttendance](w)
				So(out.Summary.Percent, ShouldEqual, 33)
				So(len(out.Days), ShouldEqual, 3)
			})
		})

		Convey("When month and range are combined", func() {
			w := do(h, http.MethodGet, "/classes/c10A/attendance?month=2024-03&from=2024-03-01", "")

			Convey("Then 400 is returned naming the conflict", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decode[map[string]string](w)
				So(body["code"], ShouldEqual, "bad_request")
				So(body["message"], ShouldEqual, "api.class_attendance: "+api.ErrPeriodConflict.Error())
			})
		})

		Convey("When the range is inverted", func() {
			So(do(h, http.MethodGet, "/classes/c10A/attendance?from=2024-03-10&to=2024-03-01", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When marking a new day", func() {
			w := do(h, http.MethodPost, "/classes/c10A/attendance", `{"date":"2024-04-01","marks":{"s1":"Present","s2":false}}`)
			So(w.Code, ShouldEqual, http.StatusCreated)

			Convey("Then the day is readable", func() {
				r := do(h, http.MethodGet, "/classes/c10A/attendance?month=2024-04", "")
				So(r.Code, ShouldEqual, http.StatusOK)
				out := decode[types.ClassAttendance](r)
				So(out.Summary, ShouldResemble, attendance.Summary{PresentCount: 1, TotalCount: 2, Percent: 50})
			})
		})

		Convey("When marking attendance for an unknown class", func() {
			w := do(h, http.MethodPost, "/classes/c99/attendance", `{"date":"2024-04-01","marks":{"s1":true}}`)

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the mark body is invalid", func() {
			So(do(h, http.MethodPost, "/classes/c10A/attendance", `{"date":"April 1","marks":{"s1":true}}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodPost, "/classes/c10A/attendance", `{"date":"2024-04-01","marks":{}}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHomeworkEndpoint(t *testing.T) {
	Convey("Given the homework endpoint", t, func() {
		h := newMux()

		Convey("When posting an assignment", func() {
			w := do(h, http.MethodPost, "/classes/c9B/homework", `{"subject":"Maths","dueDate":"2024-04-10"}`)

			Convey("Then it is stored with an id and number", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				hw := decode[model.Homework](w)
				So(hw.ID, ShouldNotBeEmpty)
				So(hw.ClassID, ShouldEqual, "c9B")
				So(hw.AssignmentNo, ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When the subject is missing", func() {
			So(do(h, http.MethodPost, "/classes/c9B/homework", `{"dueDate":"2024-04-10"}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("Given a read-only service", t, func() {
		snap, err := datastore.LoadSnapshot(seedFile)
		So(err, ShouldBeNil)
		h := newMux(service.WithSource(datastore.NewMemoryStore(datastore.WithSnapshot(snap))))

		Convey("When posting an assignment", func() {
			w := do(h, http.MethodPost, "/classes/c9B/homework", `{"subject":"Maths"}`)

			Convey("Then 403 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusForbidden)
				So(decode[map[string]string](w)["code"], ShouldEqual, "read_only")
			})
		})
	})
}

func TestUnavailableBackend(t *testing.T) {
	Convey("Given dependencies whose backend is down", t, func() {
		mux := http.NewServeMux()
		api.NewServer(unavailableDeps{}, staticStats{}).Register(context.Background(), mux)

		Convey("When any read is made", func() {
			w := do(mux, http.MethodGet, "/overview", "")

			Convey("Then 502 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(decode[map[string]string](w)["code"], ShouldEqual, "datastore_unavailable")
			})
		})

		Convey("When stats are requested", func() {
			w := do(mux, http.MethodGet, "/stats", "")

			Convey("Then the provider answers", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[types.Stats](w).Backend, ShouldEqual, "stub")
			})
		})
	})
}
