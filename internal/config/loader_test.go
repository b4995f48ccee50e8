package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/mmo/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8501")
				convey.So(cfg.SessionTTLSeconds, convey.ShouldEqual, 8*60*60)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("MMO_ADDR", ":9000")
			_ = os.Setenv("MMO_MODEL_PATH", "/models/mmm.json")
			_ = os.Setenv("MMO_VOCABULARY", "trained")
			_ = os.Setenv("MMO_CACHE_MODEL", "false")
			_ = os.Setenv("MMO_MAX_UPLOAD_BYTES", "1024")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9000")
				convey.So(cfg.ModelPath, convey.ShouldEqual, "/models/mmm.json")
				convey.So(cfg.Vocabulary, convey.ShouldEqual, config.VocabularyTrained)
				convey.So(cfg.CacheModel, convey.ShouldBeFalse)
				convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, 1024)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
ranking_policy: dense
recommendation_guard: "group.roi > 0.0"
model_endpoint: http://kserve:8080
model_features: [Marketplace_MKT_A, Ad_group_Grp1, Spend]
users:
  analyst: s3cret
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("MMO_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.RankingPolicy, convey.ShouldEqual, config.RankingDense)
				convey.So(cfg.RecommendationGuard, convey.ShouldEqual, "group.roi > 0.0")
				convey.So(cfg.Users["analyst"], convey.ShouldEqual, "s3cret")
				convey.So(cfg.ModelFeatures, convey.ShouldResemble, []string{"Marketplace_MKT_A", "Ad_group_Grp1", "Spend"})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nhistory_limit: 20\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("MMO_CONFIG", tmpFile)
			_ = os.Setenv("MMO_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.HistoryLimit, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("MMO_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("MMO_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("MMO_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown ranking policy", func() {
			_ = os.Setenv("MMO_RANKING_POLICY", "average")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should reject it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("MMO_HISTORY_LIMIT", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"MMO_CONFIG",
		"MMO_ADDR",
		"MMO_MODEL_PATH",
		"MMO_VOCABULARY",
		"MMO_CACHE_MODEL",
		"MMO_MAX_UPLOAD_BYTES",
		"MMO_RANKING_POLICY",
		"MMO_HISTORY_LIMIT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "mmo-config-*.yaml")
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
