// Package config holds the build configuration and its validation
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/cherry/cherry/pkg/types"
)

// Defaults for the external tools
const (
	DefaultUglifyJS = "uglifyjs"
	DefaultLessc    = "lessc"
	DefaultJava     = "java"
	DefaultSoyDir   = "/opt/soy"
	DefaultLessJS   = "/usr/share/javascript/less/less.min.js"
)

// Names accepted by --set NAME=VALUE
const (
	ParamUglifyJS = "uglifyjs"
	ParamLessc    = "lessc"
	ParamJava     = "java"
	ParamSoyDir   = "soy_dir"
	ParamLessJS   = "less.js"
)

// BuildConfig is the complete configuration of one build. It is built and
// validated once, then only read.
type BuildConfig struct {
	Clean    bool           `yaml:"clean"`
	Dev      bool           `yaml:"dev"`
	Pretty   bool           `yaml:"pretty"`
	Output   string         `yaml:"output,omitempty"`
	LogLevel types.LogLevel `yaml:"verbose"`
	Notify   bool           `yaml:"notify"`
	Cache    CacheConfig    `yaml:"cache"`
	Tools    ToolConfig     `yaml:"tools"`
}

// CacheConfig controls the local mirror of remote files
type CacheConfig struct {
	Enabled  bool                `yaml:"enabled"`
	Clean    bool                `yaml:"clean"`
	Dir      string              `yaml:"dir,omitempty"`
	Download types.CacheDownload `yaml:"download"`
}

// ToolConfig locates the external compilers and runtime files
type ToolConfig struct {
	UglifyJS string `yaml:"uglifyjs"`
	Lessc    string `yaml:"lessc"`
	Java     string `yaml:"java"`
	SoyDir   string `yaml:"soy_dir"`
	LessJS   string `yaml:"less_js"`
}

// Default returns the configuration used when nothing is set
func Default() BuildConfig {
	return BuildConfig{
		LogLevel: types.LogLevelDefault,
		Cache: CacheConfig{
			Download: types.CacheDownloadAuto,
		},
		Tools: ToolConfig{
			UglifyJS: DefaultUglifyJS,
			Lessc:    DefaultLessc,
			Java:     DefaultJava,
			SoyDir:   DefaultSoyDir,
			LessJS:   DefaultLessJS,
		},
	}
}

// Mode returns the kind of build this configuration produces
func (c BuildConfig) Mode() types.BuildMode {
	switch {
	case c.Clean:
		return types.BuildModeClean
	case c.Dev:
		return types.BuildModeDev
	default:
		return types.BuildModeProduction
	}
}

// Validate checks the configuration before any handler runs
func (c BuildConfig) Validate() error {
	if c.Cache.Enabled && !c.Dev {
		return configError("the cache cannot be used without dev mode")
	}
	if err := c.LogLevel.Validate(); err != nil {
		return configError("%v", err)
	}
	switch c.Cache.Download {
	case types.CacheDownloadAuto, types.CacheDownloadForce, types.CacheDownloadLocal:
	default:
		return configError("unknown cache download policy: %q", c.Cache.Download)
	}

	tools := map[string]string{
		ParamUglifyJS: c.Tools.UglifyJS,
		ParamLessc:    c.Tools.Lessc,
		ParamJava:     c.Tools.Java,
		ParamSoyDir:   c.Tools.SoyDir,
		ParamLessJS:   c.Tools.LessJS,
	}
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.TrimSpace(tools[name]) == "" {
			return configError("tool %s has an empty path", name)
		}
	}
	return nil
}

// ForManifest returns the configuration for building one manifest. The output
// base name defaults to the manifest path without its extension and the cache
// lives next to the manifest. c itself is left untouched.
func (c BuildConfig) ForManifest(manifestPath string) BuildConfig {
	out := c
	if out.Output == "" {
		out.Output = strings.TrimSuffix(manifestPath, filepath.Ext(manifestPath))
	}
	if out.Cache.Dir == "" {
		dir, base := filepath.Split(manifestPath)
		out.Cache.Dir = filepath.Join(dir, "."+base+".cache")
	}
	return out
}

// ParseCacheOptions applies a comma-separated --cache-options value. Both
// settings are reset first: no "clean" means "noclean", no policy means "auto".
func (c *BuildConfig) ParseCacheOptions(value string) error {
	c.Cache.Clean = false
	c.Cache.Download = types.CacheDownloadAuto

	for _, part := range strings.Split(value, ",") {
		switch strings.TrimSpace(part) {
		case "":
		case "clean":
			c.Cache.Clean = true
		case "noclean":
			c.Cache.Clean = false
		case "force":
			c.Cache.Download = types.CacheDownloadForce
		case "local":
			c.Cache.Download = types.CacheDownloadLocal
		case "auto":
			c.Cache.Download = types.CacheDownloadAuto
		default:
			return configError("unknown flag for --cache-options: %s", part)
		}
	}
	return nil
}

// ApplyParameters applies NAME=VALUE overrides for the tool settings
func (c *BuildConfig) ApplyParameters(params []string) error {
	for _, param := range params {
		name, value, ok := strings.Cut(param, "=")
		if !ok {
			return configError("parameter %q is not of the form NAME=VALUE", param)
		}
		switch name {
		case ParamUglifyJS:
			c.Tools.UglifyJS = value
		case ParamLessc:
			c.Tools.Lessc = value
		case ParamJava:
			c.Tools.Java = value
		case ParamSoyDir:
			c.Tools.SoyDir = value
		case ParamLessJS:
			c.Tools.LessJS = value
		default:
			return configError("unknown parameter: %s", name)
		}
	}
	return nil
}

// Viper keys shared by the CLI flags, the CHERRY_* environment and the config file
const (
	KeyClean        = "clean"
	KeyDev          = "dev"
	KeyPretty       = "pretty"
	KeyOutput       = "output"
	KeyVerbose      = "verbose"
	KeyNotify       = "notify"
	KeyCache        = "cache"
	KeyCacheOptions = "cache-options"
	KeySet          = "set"
	KeyToolUglifyJS = "tools.uglifyjs"
	KeyToolLessc    = "tools.lessc"
	KeyToolJava     = "tools.java"
	KeyToolSoyDir   = "tools.soy_dir"
	KeyToolLessJS   = "tools.less_js"
)

// SetDefaults registers the defaults of every key on v
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyVerbose, int(d.LogLevel))
	v.SetDefault(KeyToolUglifyJS, d.Tools.UglifyJS)
	v.SetDefault(KeyToolLessc, d.Tools.Lessc)
	v.SetDefault(KeyToolJava, d.Tools.Java)
	v.SetDefault(KeyToolSoyDir, d.Tools.SoyDir)
	v.SetDefault(KeyToolLessJS, d.Tools.LessJS)
}

// FromViper builds and validates a configuration from v. --set parameters are
// applied last so they win over the config file and the environment.
func FromViper(v *viper.Viper) (BuildConfig, error) {
	cfg := Default()
	cfg.Clean = v.GetBool(KeyClean)
	cfg.Dev = v.GetBool(KeyDev)
	cfg.Pretty = v.GetBool(KeyPretty)
	cfg.Output = v.GetString(KeyOutput)
	cfg.Notify = v.GetBool(KeyNotify)
	cfg.Cache.Enabled = v.GetBool(KeyCache)
	if v.IsSet(KeyVerbose) {
		cfg.LogLevel = types.LogLevel(v.GetInt(KeyVerbose))
	}

	if s := v.GetString(KeyToolUglifyJS); s != "" {
		cfg.Tools.UglifyJS = s
	}
	if s := v.GetString(KeyToolLessc); s != "" {
		cfg.Tools.Lessc = s
	}
	if s := v.GetString(KeyToolJava); s != "" {
		cfg.Tools.Java = s
	}
	if s := v.GetString(KeyToolSoyDir); s != "" {
		cfg.Tools.SoyDir = s
	}
	if s := v.GetString(KeyToolLessJS); s != "" {
		cfg.Tools.LessJS = s
	}

	if err := cfg.ParseCacheOptions(v.GetString(KeyCacheOptions)); err != nil {
		return BuildConfig{}, err
	}
	if err := cfg.ApplyParameters(v.GetStringSlice(KeySet)); err != nil {
		return BuildConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return BuildConfig{}, err
	}
	return cfg, nil
}

// String renders the configuration on one line for debug logs
func (c BuildConfig) String() string {
	return fmt.Sprintf("mode=%s pretty=%t output=%q cache=%t", c.Mode(), c.Pretty, c.Output, c.Cache.Enabled)
}
