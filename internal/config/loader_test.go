package config_test

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DatabasePath, convey.ShouldBeEmpty)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.SearchRateLimit, convey.ShouldEqual, 10)
			convey.So(cfg.SearchRateWindow(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.PreschoolNameMode, convey.ShouldEqual, "full")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
				convey.So(cfg.RecomputeSchedule, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("KIROKUKAI_ADDR", ":8080")
			_ = os.Setenv("KIROKUKAI_DATABASE_PATH", "/tmp/kirokukai.db")
			_ = os.Setenv("KIROKUKAI_WORKER_COUNT", "16")
			_ = os.Setenv("KIROKUKAI_SEARCH_RATE_LIMIT", "5")
			_ = os.Setenv("KIROKUKAI_PRESCHOOL_NAME_MODE", "kanaOnly")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DatabasePath, convey.ShouldEqual, "/tmp/kirokukai.db")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.SearchRateLimit, convey.ShouldEqual, 5)
				convey.So(cfg.PreschoolNameMode, convey.ShouldEqual, "kanaOnly")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
# nightly full recompute
addr: ":9090"
queue_size: 300
worker_count: 24
recompute_schedule: "0 3 * * *"
log_format: json
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("KIROKUKAI_CONFIG", tmpFile)
			_ = os.Setenv("KIROKUKAI_WORKER_COUNT", "32")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.RecomputeSchedule, convey.ShouldEqual, "0 3 * * *")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("KIROKUKAI_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("KIROKUKAI_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("KIROKUKAI_QUEUE_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		ok     bool
	}{
		{"defaults", func(*config.Config) {}, true},
		{"empty addr", func(c *config.Config) { c.Addr = "" }, false},
		{"unknown log format", func(c *config.Config) { c.LogFormat = "xml" }, false},
		{"zero upload cap", func(c *config.Config) { c.MaxUploadBytes = 0 }, false},
		{"rate window missing", func(c *config.Config) { c.SearchRateWindowSeconds = 0 }, false},
		{"rate limit disabled without window", func(c *config.Config) {
			c.SearchRateLimit = 0
			c.SearchRateWindowSeconds = 0
		}, true},
		{"unknown name mode", func(c *config.Config) { c.PreschoolNameMode = "romaji" }, false},
		{"bad cron", func(c *config.Config) { c.RecomputeSchedule = "every day" }, false},
		{"descriptor cron", func(c *config.Config) { c.RecomputeSchedule = "@daily" }, true},
		{"sweep disabled", func(c *config.Config) { c.RateLimitSweepSchedule = "" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.New(context.Background())
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.ok && !errors.Is(err, config.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

// Helper functions.

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"KIROKUKAI_CONFIG",
		"KIROKUKAI_ADDR",
		"KIROKUKAI_DATABASE_PATH",
		"KIROKUKAI_QUEUE_SIZE",
		"KIROKUKAI_WORKER_COUNT",
		"KIROKUKAI_SEARCH_RATE_LIMIT",
		"KIROKUKAI_PRESCHOOL_NAME_MODE",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "kirokukai-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
