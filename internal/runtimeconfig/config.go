package runtimeconfig

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-freeze/internal/frontmatter"
	"github.com/goliatone/go-freeze/internal/generator"
	"github.com/goliatone/go-freeze/internal/normalize"
	"github.com/goliatone/go-freeze/internal/posts"
	"github.com/goliatone/go-freeze/pkg/interfaces"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FREEZE_"

var ErrOutputDirRequired = errors.New("freeze config: publish output directory is required")
var ErrTemplateDirRequired = errors.New("freeze config: site template directory is required")
var ErrCollectionsRequired = errors.New("freeze config: at least one collection or route is required")
var ErrDuplicateCollection = errors.New("freeze config: collection names must be unique")
var ErrDuplicateRoute = errors.New("freeze config: route paths must be unique")
var ErrInvalidCollection = errors.New("freeze config: collection is invalid")
var ErrInvalidRoute = errors.New("freeze config: route is invalid")
var ErrPublishModeInvalid = errors.New("freeze config: publish mode is invalid")
var ErrOriginInvalid = errors.New("freeze config: site origin must be an absolute http(s) URL")
var ErrOutputDirOverlap = errors.New("freeze config: publish output directory overlaps a source directory")
var ErrServerAddrRequired = errors.New("freeze config: server address is required")
var ErrLoggingProviderRequired = errors.New("freeze config: logging provider is required")
var ErrLoggingProviderUnknown = errors.New("freeze config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("freeze config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("freeze config: logging format is invalid")

// Config aggregates everything needed to publish or serve a site.
type Config struct {
	Site        SiteConfig                 `yaml:"site"`
	Collections []CollectionConfig         `yaml:"collections"`
	Routes      []RouteConfig              `yaml:"routes"`
	Publish     PublishConfig              `yaml:"publish"`
	Server      ServerConfig               `yaml:"server"`
	Markdown    interfaces.MarkdownOptions `yaml:"markdown"`
	Logging     LoggingConfig              `yaml:"logging"`
}

// SiteConfig describes the site and where its inputs live.
type SiteConfig struct {
	Name        string         `yaml:"name"`
	Origin      string         `yaml:"origin"`
	TemplateDir string         `yaml:"template_dir"`
	StaticDir   string         `yaml:"static_dir"`
	DataDir     string         `yaml:"data_dir"`
	AssetRoot   string         `yaml:"asset_root"`
	Metadata    map[string]any `yaml:"metadata"`
}

// CollectionConfig configures one directory of Markdown posts and the pages
// generated from it.
type CollectionConfig struct {
	Name            string `yaml:"name"`
	ContentDir      string `yaml:"content_dir"`
	RoutePrefix     string `yaml:"route_prefix"`
	ParseMode       string `yaml:"parse_mode"`
	SlugStrategy    string `yaml:"slug_strategy"`
	CleanSlugs      bool   `yaml:"clean_slugs"`
	Collisions      string `yaml:"collisions"`
	Extension       string `yaml:"extension"`
	Reserved        string `yaml:"reserved"`
	Recursive       bool   `yaml:"recursive"`
	AutoCreate      bool   `yaml:"auto_create"`
	PermissiveDates bool   `yaml:"permissive_dates"`
	WordsPerMinute  int    `yaml:"words_per_minute"`
	TeaserLimit     int    `yaml:"teaser_limit"`
	ListingTemplate string `yaml:"listing_template"`
	PostTemplate    string `yaml:"post_template"`
	PageSize        int    `yaml:"page_size"`
	DisableListing  bool   `yaml:"disable_listing"`
	Feed            bool   `yaml:"feed"`
}

// RouteConfig is a static page rendered from a template.
type RouteConfig struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Template string `yaml:"template"`
	Data     string `yaml:"data"`
}

// PublishConfig controls the frozen output tree.
type PublishConfig struct {
	OutputDir           string `yaml:"output_dir"`
	Mode                string `yaml:"mode"`
	DirectoryIndexLinks bool   `yaml:"directory_index_links"`
	CleanBuild          bool   `yaml:"clean_build"`
	CopyAssets          bool   `yaml:"copy_assets"`
	Sitemap             bool   `yaml:"sitemap"`
	Robots              bool   `yaml:"robots"`
	Feeds               bool   `yaml:"feeds"`
	Manifest            bool   `yaml:"manifest"`
}

// ServerConfig controls the live preview server.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	LiveRoot       string        `yaml:"live_root"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Metrics        bool          `yaml:"metrics"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider"`
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// DefaultConfig returns the layout of a small organisation site: five static
// pages plus a news collection.
func DefaultConfig() Config {
	return Config{
		Site: SiteConfig{
			Name:        "Site",
			TemplateDir: "templates",
			StaticDir:   "static",
			DataDir:     "static/data",
			AssetRoot:   generator.DefaultAssetRoot,
			Metadata:    map[string]any{},
		},
		Collections: []CollectionConfig{
			{
				Name:            "news",
				ContentDir:      "content/news",
				RoutePrefix:     "news",
				ParseMode:       string(frontmatter.ModeLenient),
				SlugStrategy:    string(normalize.SlugDerived),
				Collisions:      string(posts.CollisionSuffix),
				AutoCreate:      true,
				WordsPerMinute:  normalize.DefaultWordsPerMinute,
				TeaserLimit:     normalize.DefaultTeaserLimit,
				ListingTemplate: "news.html",
				PostTemplate:    "post.html",
			},
		},
		Routes: []RouteConfig{
			{Name: "home", Path: "/", Template: "index.html"},
			{Name: "overview", Path: "/overview/", Template: "overview.html"},
			{Name: "team", Path: "/team/", Template: "team.html", Data: "team.json"},
			{Name: "resources", Path: "/resources/", Template: "resources.html"},
			{Name: "contact", Path: "/contact/", Template: "contact.html"},
		},
		Publish: PublishConfig{
			OutputDir:           "docs",
			Mode:                string(generator.ModeOffline),
			DirectoryIndexLinks: true,
			CleanBuild:          true,
			CopyAssets:          true,
			Sitemap:             true,
			Robots:              true,
			Feeds:               true,
			Manifest:            true,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 30 * time.Second,
			Metrics:        true,
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// Load decodes the YAML file at path over DefaultConfig and applies the
// FREEZE_* environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("freeze config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("freeze config: decode %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides scalar settings from the environment. lookup is usually
// os.LookupEnv.
func (cfg *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	strs := map[string]*string{
		"SITE_NAME":    &cfg.Site.Name,
		"ORIGIN":       &cfg.Site.Origin,
		"TEMPLATE_DIR": &cfg.Site.TemplateDir,
		"STATIC_DIR":   &cfg.Site.StaticDir,
		"DATA_DIR":     &cfg.Site.DataDir,
		"OUTPUT_DIR":   &cfg.Publish.OutputDir,
		"MODE":         &cfg.Publish.Mode,
		"SERVER_ADDR":  &cfg.Server.Addr,
		"LIVE_ROOT":    &cfg.Server.LiveRoot,
		"LOG_PROVIDER": &cfg.Logging.Provider,
		"LOG_LEVEL":    &cfg.Logging.Level,
		"LOG_FORMAT":   &cfg.Logging.Format,
	}
	for key, target := range strs {
		if value, ok := lookup(EnvPrefix + key); ok {
			*target = strings.TrimSpace(value)
		}
	}

	bools := map[string]*bool{
		"CLEAN_BUILD": &cfg.Publish.CleanBuild,
		"SITEMAP":     &cfg.Publish.Sitemap,
		"FEEDS":       &cfg.Publish.Feeds,
		"METRICS":     &cfg.Server.Metrics,
	}
	for key, target := range bools {
		value, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("freeze config: %s%s: %w", EnvPrefix, key, err)
		}
		*target = parsed
	}
	return nil
}

// Validate performs cross-field checks with sentinel errors and per-entry
// field checks with ozzo-validation.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Publish.OutputDir) == "" {
		return ErrOutputDirRequired
	}
	if strings.TrimSpace(cfg.Site.TemplateDir) == "" {
		return ErrTemplateDirRequired
	}
	if len(cfg.Collections) == 0 && len(cfg.Routes) == 0 {
		return ErrCollectionsRequired
	}
	if _, err := generator.ParseMode(cfg.Publish.Mode); err != nil {
		return fmt.Errorf("%w: %s", ErrPublishModeInvalid, cfg.Publish.Mode)
	}
	if origin := strings.TrimSpace(cfg.Site.Origin); origin != "" &&
		!strings.HasPrefix(origin, "https://") && !strings.HasPrefix(origin, "http://") {
		return fmt.Errorf("%w: %s", ErrOriginInvalid, origin)
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return ErrServerAddrRequired
	}

	names := map[string]struct{}{}
	for _, collection := range cfg.Collections {
		if err := collection.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidCollection, collection.Name, err)
		}
		key := strings.ToLower(strings.TrimSpace(collection.Name))
		if _, dup := names[key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateCollection, collection.Name)
		}
		names[key] = struct{}{}
	}
	if err := cfg.checkOutputOverlap(); err != nil {
		return err
	}

	paths := map[string]struct{}{}
	for _, route := range cfg.Routes {
		if err := route.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidRoute, route.Path, err)
		}
		key := strings.Trim(strings.TrimSpace(route.Path), "/")
		if _, dup := paths[key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateRoute, route.Path)
		}
		paths[key] = struct{}{}
	}

	return cfg.Logging.validate()
}

// checkOutputOverlap rejects an output directory that equals or nests with a
// directory the build reads from, since clean builds wipe the output first.
func (cfg Config) checkOutputOverlap() error {
	sources := map[string]string{
		"site.template_dir": cfg.Site.TemplateDir,
		"site.static_dir":   cfg.Site.StaticDir,
		"site.data_dir":     cfg.Site.DataDir,
	}
	for _, collection := range cfg.Collections {
		sources["collections."+collection.Name+".content_dir"] = collection.ContentDir
	}

	for field, dir := range sources {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		overlaps, err := generator.DirsOverlap(cfg.Publish.OutputDir, dir)
		if err != nil {
			return fmt.Errorf("freeze config: %s: %w", field, err)
		}
		if overlaps {
			return fmt.Errorf("%w: %s %q and publish.output_dir %q", ErrOutputDirOverlap, field, dir, cfg.Publish.OutputDir)
		}
	}
	return nil
}

// Validate checks the fields of a single collection.
func (c CollectionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.By(notBlank)),
		validation.Field(&c.ContentDir, validation.Required, validation.By(notBlank)),
		validation.Field(&c.ParseMode, validation.By(parsesWith(func(v string) error {
			_, err := frontmatter.ParseMode(v)
			return err
		}))),
		validation.Field(&c.SlugStrategy, validation.By(parsesWith(func(v string) error {
			_, err := normalize.ParseSlugStrategy(v)
			return err
		}))),
		validation.Field(&c.Collisions, validation.By(parsesWith(func(v string) error {
			_, err := posts.ParseCollisionPolicy(v)
			return err
		}))),
		validation.Field(&c.WordsPerMinute, validation.Min(0)),
		validation.Field(&c.TeaserLimit, validation.Min(0)),
		validation.Field(&c.PageSize, validation.Min(0)),
	)
}

// Validate checks the fields of a single static route.
func (r RouteConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required, validation.By(rootRelative)),
		validation.Field(&r.Template, validation.Required, validation.By(notBlank)),
	)
}

func (l LoggingConfig) validate() error {
	provider := normalizeProvider(l.Provider)
	if provider == "" {
		return ErrLoggingProviderRequired
	}
	if !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(l.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(l.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

func notBlank(value any) error {
	if s, _ := value.(string); strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "must not be blank")
	}
	return nil
}

func rootRelative(value any) error {
	s, _ := value.(string)
	if !strings.HasPrefix(strings.TrimSpace(s), "/") {
		return validation.NewError("validation_route_path", "must start with /")
	}
	return nil
}

func parsesWith(parse func(string) error) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if err := parse(s); err != nil {
			return validation.NewError("validation_unknown_value", err.Error())
		}
		return nil
	}
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
