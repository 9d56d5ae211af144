package config_test

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/okian/pitchside/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.SaveQueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.SaveWorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DragThresholdPX, convey.ShouldEqual, 5)
			convey.So(cfg.ArrowMinLength, convey.ShouldEqual, 2)
			convey.So(cfg.HomeFormation, convey.ShouldEqual, "4-4-2")
			convey.So(cfg.AwayFormation, convey.ShouldEqual, "4-3-3")
			convey.So(cfg.SaveTimeout().Seconds(), convey.ShouldEqual, 10)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PITCHSIDE_ADDR", ":8080")
			_ = os.Setenv("PITCHSIDE_SAVE_QUEUE_SIZE", "64")
			_ = os.Setenv("PITCHSIDE_SAVE_WORKER_COUNT", "2")
			_ = os.Setenv("PITCHSIDE_SAVE_LATENCY_MIN_MS", "10")
			_ = os.Setenv("PITCHSIDE_SAVE_LATENCY_MAX_MS", "20")
			_ = os.Setenv("PITCHSIDE_DRAG_THRESHOLD_PX", "7.5")
			_ = os.Setenv("PITCHSIDE_HOME_FORMATION", "3-5-2")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SaveQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.SaveWorkerCount, convey.ShouldEqual, 2)
				convey.So(cfg.SaveLatencyMinMS, convey.ShouldEqual, 10)
				convey.So(cfg.SaveLatencyMaxMS, convey.ShouldEqual, 20)
				convey.So(cfg.DragThresholdPX, convey.ShouldEqual, 7.5)
				convey.So(cfg.HomeFormation, convey.ShouldEqual, "3-5-2")
				convey.So(cfg.AwayFormation, convey.ShouldEqual, "4-3-3")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# board defaults for the demo
addr: ":9090"
log_format: json
save_worker_count: 3
away_formation: 5-3-2
arrow_min_length: 4
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PITCHSIDE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should merge the file with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.SaveWorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.AwayFormation, convey.ShouldEqual, "5-3-2")
				convey.So(cfg.ArrowMinLength, convey.ShouldEqual, 4)
				convey.So(cfg.SaveQueueSize, convey.ShouldEqual, 1024)
			})

			convey.Convey("And env should override the file", func() {
				_ = os.Setenv("PITCHSIDE_SAVE_WORKER_COUNT", "9")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SaveWorkerCount, convey.ShouldEqual, 9)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PITCHSIDE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("PITCHSIDE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("PITCHSIDE_SAVE_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":        func(c *config.Config) { c.Addr = "" },
			"log format":        func(c *config.Config) { c.LogFormat = "xml" },
			"zero queue":        func(c *config.Config) { c.SaveQueueSize = 0 },
			"negative workers":  func(c *config.Config) { c.SaveWorkerCount = -1 },
			"inverted latency":  func(c *config.Config) { c.SaveLatencyMinMS, c.SaveLatencyMaxMS = 50, 10 },
			"zero timeout":      func(c *config.Config) { c.SaveTimeoutMS = 0 },
			"negative drag":     func(c *config.Config) { c.DragThresholdPX = -1 },
			"negative arrow":    func(c *config.Config) { c.ArrowMinLength = -0.5 },
			"zero dedupe":       func(c *config.Config) { c.DedupeSize = 0 },
			"unknown formation": func(c *config.Config) { c.HomeFormation = "2-3-5" },
		}

		for name, mutate := range cases {
			convey.Convey("Then "+name+" is rejected", func() {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})

	convey.Convey("Given an empty addr from the environment", t, func() {
		clearConfigEnvVars()
		_ = os.Setenv("PITCHSIDE_ADDR", "")
		defer clearConfigEnvVars()

		cfg, err := config.Load(context.Background())

		convey.So(err, convey.ShouldNotBeNil)
		convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
		convey.So(cfg, convey.ShouldBeNil)
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "pitchside-config-*.yaml")
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
