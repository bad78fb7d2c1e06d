package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/eduguard/eduguard/internal/config"
	"github.com/eduguard/eduguard/internal/domain/homework"
	"github.com/eduguard/eduguard/internal/domain/risk"
	"github.com/eduguard/eduguard/internal/domain/types"
	"github.com/eduguard/eduguard/pkg/logger"
	"github.com/eduguard/eduguard/pkg/metrics"
)

const seedFile = "../../internal/adapters/datastore/testdata/school.json"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("EDUGUARD_ADDR", ":8081")
			_ = os.Setenv("EDUGUARD_RISK_VARIANT", "logistic")
			defer func() {
				_ = os.Unsetenv("EDUGUARD_ADDR")
				_ = os.Unsetenv("EDUGUARD_RISK_VARIANT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8081")
				convey.So(cfg.RiskVariant, convey.ShouldEqual, "logistic")
			})
		})

		convey.Convey("When translating the scoring configuration", func() {
			cfg := config.New(config.WithRiskVariant("logistic"))
			cfg.InputPolicy = "clamp"
			cfg.HomeworkPolicy = "submissions"
			cfg.HomeworkFallback = 75

			engine, deriver, err := scoring(cfg)

			convey.Convey("Then the engine and deriver follow it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(engine.DefaultVariant(), convey.ShouldEqual, risk.VariantLogistic)
				convey.So(engine.Policy(), convey.ShouldEqual, risk.PolicyClamp)
				convey.So(deriver.Policy, convey.ShouldEqual, homework.PolicySubmissions)
				convey.So(deriver.AssignedFallback, convey.ShouldEqual, 75.0)
			})
		})

		convey.Convey("When the scoring configuration names an unknown variant", func() {
			cfg := config.New()
			cfg.RiskVariant = "quadratic"

			_, _, err := scoring(cfg)

			convey.Convey("Then it is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager()
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should return once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the wired application over the seed file", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cfg := config.New(config.WithDatastore("memory", seedFile))
		a, err := newApp(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		defer func() { _ = a.Close() }()

		srv := httptest.NewServer(a.handler)
		defer srv.Close()

		convey.Convey("When requesting a student's risk", func() {
			resp, err := http.Get(srv.URL + "/students/s1/risk")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then the seeded score comes back with a request id", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(resp.Header.Get("X-Request-ID"), convey.ShouldNotBeEmpty)
				var out types.StudentRisk
				convey.So(json.NewDecoder(resp.Body).Decode(&out), convey.ShouldBeNil)
				convey.So(out.Risk.Score, convey.ShouldEqual, 83)
				convey.So(out.Risk.Level, convey.ShouldEqual, risk.LevelLow)
			})
		})

		convey.Convey("When requesting the API documentation", func() {
			resp, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then it is served", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When the seed file is missing", func() {
			bad := config.New(config.WithDatastore("memory", "does-not-exist.json"))
			_, err := newApp(ctx, bad, logger.Get())

			convey.Convey("Then the application fails to start", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
