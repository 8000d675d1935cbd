package freeze

import "github.com/goliatone/go-freeze/internal/runtimeconfig"

var (
	ErrOutputDirRequired       = runtimeconfig.ErrOutputDirRequired
	ErrTemplateDirRequired     = runtimeconfig.ErrTemplateDirRequired
	ErrCollectionsRequired     = runtimeconfig.ErrCollectionsRequired
	ErrDuplicateCollection     = runtimeconfig.ErrDuplicateCollection
	ErrDuplicateRoute          = runtimeconfig.ErrDuplicateRoute
	ErrInvalidCollection       = runtimeconfig.ErrInvalidCollection
	ErrInvalidRoute            = runtimeconfig.ErrInvalidRoute
	ErrPublishModeInvalid      = runtimeconfig.ErrPublishModeInvalid
	ErrOriginInvalid           = runtimeconfig.ErrOriginInvalid
	ErrServerAddrRequired      = runtimeconfig.ErrServerAddrRequired
	ErrOutputDirOverlap        = runtimeconfig.ErrOutputDirOverlap
	ErrLoggingProviderRequired = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown  = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid     = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid    = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config           = runtimeconfig.Config
	SiteConfig       = runtimeconfig.SiteConfig
	CollectionConfig = runtimeconfig.CollectionConfig
	RouteConfig      = runtimeconfig.RouteConfig
	PublishConfig    = runtimeconfig.PublishConfig
	ServerConfig     = runtimeconfig.ServerConfig
	LoggingConfig    = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads a YAML config file over the defaults and applies FREEZE_*
// environment overrides.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.Load(path)
}
