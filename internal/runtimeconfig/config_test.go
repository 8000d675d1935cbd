package runtimeconfig_test

import (
	"errors"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-freeze/internal/runtimeconfig"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned unexpected error: %v", err)
	}
	if len(cfg.Routes) != 5 || cfg.Collections[0].Name != "news" {
		t.Fatalf("unexpected default layout %+v", cfg)
	}
}

func TestLoadDecodesFileOverDefaults(t *testing.T) {
	cfg, err := runtimeconfig.Load("testdata/freeze.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Site.Name != "Field Notes" || cfg.Site.Origin != "https://notes.example.org" {
		t.Fatalf("unexpected site %+v", cfg.Site)
	}
	if cfg.Site.StaticDir != "static" {
		t.Fatalf("expected default static dir to survive, got %q", cfg.Site.StaticDir)
	}
	if len(cfg.Collections) != 1 || cfg.Collections[0].Name != "journal" || cfg.Collections[0].PageSize != 10 {
		t.Fatalf("unexpected collections %+v", cfg.Collections)
	}
	if cfg.Publish.OutputDir != "public" || cfg.Publish.CleanBuild {
		t.Fatalf("unexpected publish config %+v", cfg.Publish)
	}
	if !cfg.Publish.Sitemap {
		t.Fatal("expected default sitemap flag to survive")
	}
	if cfg.Server.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected request timeout %v", cfg.Server.RequestTimeout)
	}
	if len(cfg.Markdown.Extensions) != 2 {
		t.Fatalf("unexpected markdown extensions %v", cfg.Markdown.Extensions)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := runtimeconfig.Load("testdata/absent.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"FREEZE_ORIGIN":     "https://env.example.com",
		"FREEZE_OUTPUT_DIR": " out ",
		"FREEZE_MODE":       "live",
		"FREEZE_SITEMAP":    "false",
		"FREEZE_LOG_LEVEL":  "warn",
	}
	cfg := runtimeconfig.DefaultConfig()
	err := cfg.ApplyEnv(func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	})
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Site.Origin != "https://env.example.com" || cfg.Publish.OutputDir != "out" || cfg.Publish.Mode != "live" {
		t.Fatalf("unexpected overrides %+v %+v", cfg.Site, cfg.Publish)
	}
	if cfg.Publish.Sitemap {
		t.Fatal("expected sitemap disabled by env")
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("unexpected level %q", cfg.Logging.Level)
	}
}

func TestApplyEnvRejectsBadBool(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	err := cfg.ApplyEnv(func(key string) (string, bool) {
		if key == "FREEZE_FEEDS" {
			return "maybe", true
		}
		return "", false
	})
	if err == nil {
		t.Fatal("expected error for invalid boolean")
	}
}

func TestConfigValidateSentinels(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*runtimeconfig.Config)
		want   error
	}{
		{"output dir", func(c *runtimeconfig.Config) { c.Publish.OutputDir = " " }, runtimeconfig.ErrOutputDirRequired},
		{"template dir", func(c *runtimeconfig.Config) { c.Site.TemplateDir = "" }, runtimeconfig.ErrTemplateDirRequired},
		{"nothing to publish", func(c *runtimeconfig.Config) {
			c.Collections = nil
			c.Routes = nil
		}, runtimeconfig.ErrCollectionsRequired},
		{"mode", func(c *runtimeconfig.Config) { c.Publish.Mode = "hybrid" }, runtimeconfig.ErrPublishModeInvalid},
		{"origin", func(c *runtimeconfig.Config) { c.Site.Origin = "example.com" }, runtimeconfig.ErrOriginInvalid},
		{"server addr", func(c *runtimeconfig.Config) { c.Server.Addr = "" }, runtimeconfig.ErrServerAddrRequired},
		{"output is content dir", func(c *runtimeconfig.Config) { c.Publish.OutputDir = "content/news/" }, runtimeconfig.ErrOutputDirOverlap},
		{"output contains sources", func(c *runtimeconfig.Config) { c.Publish.OutputDir = "." }, runtimeconfig.ErrOutputDirOverlap},
		{"output inside templates", func(c *runtimeconfig.Config) { c.Publish.OutputDir = "templates/out" }, runtimeconfig.ErrOutputDirOverlap},
		{"output is static dir", func(c *runtimeconfig.Config) { c.Publish.OutputDir = "./static" }, runtimeconfig.ErrOutputDirOverlap},
		{"duplicate collection", func(c *runtimeconfig.Config) {
			c.Collections = append(c.Collections, c.Collections[0])
		}, runtimeconfig.ErrDuplicateCollection},
		{"duplicate route", func(c *runtimeconfig.Config) {
			c.Routes = append(c.Routes, runtimeconfig.RouteConfig{Path: "/team", Template: "other.html"})
		}, runtimeconfig.ErrDuplicateRoute},
		{"logging provider", func(c *runtimeconfig.Config) { c.Logging.Provider = "" }, runtimeconfig.ErrLoggingProviderRequired},
		{"unknown provider", func(c *runtimeconfig.Config) { c.Logging.Provider = "syslog" }, runtimeconfig.ErrLoggingProviderUnknown},
		{"level", func(c *runtimeconfig.Config) { c.Logging.Level = "loud" }, runtimeconfig.ErrLoggingLevelInvalid},
		{"format", func(c *runtimeconfig.Config) {
			c.Logging.Provider = "gologger"
			c.Logging.Format = "xml"
		}, runtimeconfig.ErrLoggingFormatInvalid},
	}
	for _, tc := range cases {
		cfg := runtimeconfig.DefaultConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestConfigValidateCollectionFields(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Collections[0].SlugStrategy = "random"
	cfg.Collections[0].PageSize = -1

	err := cfg.Validate()
	if !errors.Is(err, runtimeconfig.ErrInvalidCollection) {
		t.Fatalf("expected ErrInvalidCollection, got %v", err)
	}
	var fields validation.Errors
	if !errors.As(err, &fields) {
		t.Fatalf("expected field errors, got %T", err)
	}
	if _, ok := fields["SlugStrategy"]; !ok {
		t.Fatalf("expected slug strategy error, got %v", fields)
	}
	if _, ok := fields["PageSize"]; !ok {
		t.Fatalf("expected page size error, got %v", fields)
	}
}

func TestConfigValidateRouteFields(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Routes[1].Path = "overview"

	err := cfg.Validate()
	if !errors.Is(err, runtimeconfig.ErrInvalidRoute) {
		t.Fatalf("expected ErrInvalidRoute, got %v", err)
	}
}
