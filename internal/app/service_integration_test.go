package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/eduguard/eduguard/internal/adapters/datastore"
	service "github.com/eduguard/eduguard/internal/app"
	"github.com/eduguard/eduguard/internal/domain/homework"
	"github.com/eduguard/eduguard/internal/domain/risk"
	. "github.com/smartystreets/goconvey/convey"
)

// rtdbFromFile serves a JSON export the way the Realtime Database REST API
// does: GET /a/b.json returns the subtree at a/b, or null.
func rtdbFromFile(path string) (http.Handler, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var node any = root
		for _, seg := range strings.Split(strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".json"), "/") {
			m, ok := node.(map[string]any)
			if !ok {
				node = nil
				break
			}
			node = m[seg]
		}
		_ = json.NewEncoder(w).Encode(node)
	}), nil
}

func TestService_FirebaseBackend(t *testing.T) {
	Convey("Given a service reading from a Realtime Database", t, func() {
		handler, err := rtdbFromFile(seedFile)
		So(err, ShouldBeNil)
		srv := httptest.NewServer(handler)
		defer srv.Close()

		fb, err := datastore.NewFirebaseStore(srv.URL)
		So(err, ShouldBeNil)
		svc := service.New(
			service.WithStore(datastore.Instrument(fb, nil)),
			service.WithHomeworkDeriver(homework.Deriver{Policy: homework.PolicySubmissions}),
		)
		ctx := context.Background()

		Convey("When evaluating the same student as over the memory store", func() {
			r, err := svc.EvaluateStudent(ctx, "s1", risk.VariantLinear)

			Convey("Then the result matches", func() {
				So(err, ShouldBeNil)
				So(r.Risk.Score, ShouldEqual, 83)
				So(r.Risk.Level, ShouldEqual, risk.LevelLow)
				So(svc.GetStats().Backend, ShouldEqual, datastore.BackendFirebase)
			})
		})

		Convey("When building the overview", func() {
			o, err := svc.Overview(ctx, risk.VariantLinear)

			Convey("Then status records are fetched over HTTP", func() {
				So(err, ShouldBeNil)
				So(o.Students, ShouldEqual, 4)
				So(o.Counts.High, ShouldEqual, 1)
				So(o.Counts.Medium, ShouldEqual, 1)
				So(o.Counts.Low, ShouldEqual, 2)
			})
		})
	})
}

func TestService_ConcurrentEvaluations(t *testing.T) {
	Convey("Given a service shared by many callers", t, func() {
		svc := service.New(service.WithStore(seededStore()))
		ids := []string{"s1", "s2", "s3", "s4"}

		Convey("When students are evaluated concurrently", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 100)
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					variant := risk.VariantLinear
					if i%2 == 1 {
						variant = risk.VariantLogistic
					}
					if _, err := svc.EvaluateStudent(context.Background(), ids[i%len(ids)], variant); err != nil {
						errs <- err
					}
				}(i)
			}
			wg.Wait()
			close(errs)

			Convey("Then every evaluation succeeds and is counted", func() {
				So(len(errs), ShouldEqual, 0)
				stats := svc.GetStats()
				So(stats.Evaluations["linear"]+stats.Evaluations["logistic"], ShouldEqual, uint64(100))
			})
		})
	})
}
