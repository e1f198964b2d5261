package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/okian/fasal/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"FASAL_CONFIG",
	"FASAL_ADDR",
	"FASAL_QUEUE_SIZE",
	"FASAL_WORKER_COUNT",
	"FASAL_USE_MODEL",
	"FASAL_MODEL_PATH",
	"FASAL_LOG_FORMAT",
	"FASAL_MIN_ELIGIBLE_SCORE",
	"FASAL_BASE_LOAN_LIMIT",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "fasal.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigDefaults(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New()

		convey.Convey("Then it has sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.UseModel, convey.ShouldBeTrue)
			convey.So(cfg.ModelPath, convey.ShouldBeEmpty)
			convey.So(cfg.HistoryDB, convey.ShouldBeEmpty)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MinEligibleScore, convey.ShouldEqual, 40)
			convey.So(cfg.BaseLoanLimit, convey.ShouldEqual, 250_000)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When only defaults apply", func() {
			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
		})

		convey.Convey("When environment variables are set", func() {
			_ = os.Setenv("FASAL_ADDR", ":8080")
			_ = os.Setenv("FASAL_QUEUE_SIZE", "500")
			_ = os.Setenv("FASAL_USE_MODEL", "false")
			_ = os.Setenv("FASAL_MIN_ELIGIBLE_SCORE", "45.5")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.UseModel, convey.ShouldBeFalse)
				convey.So(cfg.MinEligibleScore, convey.ShouldEqual, 45.5)
			})
		})

		convey.Convey("When a YAML file and env vars are both set", func() {
			path := writeConfigFile(t, `
addr: ":9090"
worker_count: 24
model_path: /var/lib/fasal/model.json
history_db: /var/lib/fasal/history.db
base_loan_limit: 300000
`)
			_ = os.Setenv("FASAL_CONFIG", path)
			_ = os.Setenv("FASAL_WORKER_COUNT", "32")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env beats file and file beats defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.ModelPath, convey.ShouldEqual, "/var/lib/fasal/model.json")
				convey.So(cfg.HistoryDB, convey.ShouldEqual, "/var/lib/fasal/history.db")
				convey.So(cfg.BaseLoanLimit, convey.ShouldEqual, 300_000)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			})
		})

		convey.Convey("When the file is missing or malformed", func() {
			_ = os.Setenv("FASAL_CONFIG", "/non/existent/fasal.yaml")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)

			_ = os.Setenv("FASAL_CONFIG", writeConfigFile(t, `invalid: yaml: content: [`))
			_, err = config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a setting is invalid", func() {
			cases := []struct {
				env, value, msg string
			}{
				{"FASAL_ADDR", "", "addr must not be empty"},
				{"FASAL_LOG_FORMAT", "xml", "log_format"},
				{"FASAL_MIN_ELIGIBLE_SCORE", "120", "min_eligible_score"},
				{"FASAL_BASE_LOAN_LIMIT", "0", "base_loan_limit"},
			}
			for _, tc := range cases {
				clearConfigEnvVars()
				_ = os.Setenv(tc.env, tc.value)
				cfg, err := config.Load(ctx)

				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, tc.msg)
			}
		})
	})
}
