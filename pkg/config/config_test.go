package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cherry/cherry/pkg/config"
	"github.com/cherry/cherry/pkg/types"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	if cfg.Mode() != types.BuildModeProduction {
		t.Errorf("expected production mode, got %s", cfg.Mode())
	}
	if cfg.LogLevel != types.LogLevelDefault {
		t.Errorf("expected default log level, got %d", cfg.LogLevel)
	}
	if cfg.Cache.Download != types.CacheDownloadAuto {
		t.Errorf("expected auto download, got %s", cfg.Cache.Download)
	}
	if cfg.Tools.SoyDir != "/opt/soy" {
		t.Errorf("expected /opt/soy, got %s", cfg.Tools.SoyDir)
	}
	if cfg.Tools.LessJS != "/usr/share/javascript/less/less.min.js" {
		t.Errorf("unexpected less.js default %s", cfg.Tools.LessJS)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestMode(t *testing.T) {
	cfg := config.Default()
	cfg.Dev = true
	if cfg.Mode() != types.BuildModeDev {
		t.Errorf("expected dev, got %s", cfg.Mode())
	}
	cfg.Clean = true
	if cfg.Mode() != types.BuildModeClean {
		t.Errorf("clean wins over dev, got %s", cfg.Mode())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.BuildConfig)
		wantErr bool
	}{
		{name: "default", mutate: func(c *config.BuildConfig) {}},
		{name: "cache with dev", mutate: func(c *config.BuildConfig) { c.Dev = true; c.Cache.Enabled = true }},
		{name: "cache without dev", mutate: func(c *config.BuildConfig) { c.Cache.Enabled = true }, wantErr: true},
		{name: "log level too high", mutate: func(c *config.BuildConfig) { c.LogLevel = 3 }, wantErr: true},
		{name: "negative log level", mutate: func(c *config.BuildConfig) { c.LogLevel = -1 }, wantErr: true},
		{name: "empty tool path", mutate: func(c *config.BuildConfig) { c.Tools.Lessc = " " }, wantErr: true},
		{name: "unknown download policy", mutate: func(c *config.BuildConfig) { c.Cache.Download = "sometimes" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, config.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestParseCacheOptions(t *testing.T) {
	tests := []struct {
		value        string
		wantClean    bool
		wantDownload types.CacheDownload
		wantErr      bool
	}{
		{value: "", wantDownload: types.CacheDownloadAuto},
		{value: "clean", wantClean: true, wantDownload: types.CacheDownloadAuto},
		{value: "clean,noclean", wantDownload: types.CacheDownloadAuto},
		{value: "force", wantDownload: types.CacheDownloadForce},
		{value: "clean,local", wantClean: true, wantDownload: types.CacheDownloadLocal},
		{value: "local,auto", wantDownload: types.CacheDownloadAuto},
		{value: "clean,,force", wantClean: true, wantDownload: types.CacheDownloadForce},
		{value: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg := config.Default()
			cfg.Cache.Clean = true
			cfg.Cache.Download = types.CacheDownloadLocal

			err := cfg.ParseCacheOptions(tt.value)
			if tt.wantErr {
				if !errors.Is(err, config.ErrConfiguration) {
					t.Fatalf("expected ErrConfiguration, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCacheOptions() error = %v", err)
			}
			if cfg.Cache.Clean != tt.wantClean {
				t.Errorf("Clean = %v, want %v", cfg.Cache.Clean, tt.wantClean)
			}
			if cfg.Cache.Download != tt.wantDownload {
				t.Errorf("Download = %s, want %s", cfg.Cache.Download, tt.wantDownload)
			}
		})
	}
}

func TestApplyParameters(t *testing.T) {
	cfg := config.Default()
	err := cfg.ApplyParameters([]string{
		"uglifyjs=/usr/local/bin/uglifyjs",
		"lessc=/usr/local/bin/lessc",
		"java=/usr/lib/jvm/bin/java",
		"soy_dir=/srv/soy",
		"less.js=/srv/less.js",
	})
	if err != nil {
		t.Fatalf("ApplyParameters() error = %v", err)
	}

	want := config.ToolConfig{
		UglifyJS: "/usr/local/bin/uglifyjs",
		Lessc:    "/usr/local/bin/lessc",
		Java:     "/usr/lib/jvm/bin/java",
		SoyDir:   "/srv/soy",
		LessJS:   "/srv/less.js",
	}
	if cfg.Tools != want {
		t.Errorf("Tools = %+v, want %+v", cfg.Tools, want)
	}
}

func TestApplyParameters_ValueMayContainEquals(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ApplyParameters([]string{"java=/opt/java=8/bin/java"}); err != nil {
		t.Fatalf("ApplyParameters() error = %v", err)
	}
	if cfg.Tools.Java != "/opt/java=8/bin/java" {
		t.Errorf("Java = %s", cfg.Tools.Java)
	}
}

func TestApplyParameters_Errors(t *testing.T) {
	for _, param := range []string{"closure=/opt/closure", "uglifyjs"} {
		cfg := config.Default()
		if err := cfg.ApplyParameters([]string{param}); !errors.Is(err, config.ErrConfiguration) {
			t.Errorf("ApplyParameters(%q) = %v, want ErrConfiguration", param, err)
		}
	}
}

func TestForManifest(t *testing.T) {
	base := config.Default()
	cfg := base.ForManifest(filepath.Join("web", "app.cherry"))

	if cfg.Output != filepath.Join("web", "app") {
		t.Errorf("Output = %s", cfg.Output)
	}
	if cfg.Cache.Dir != filepath.Join("web", ".app.cherry.cache") {
		t.Errorf("Cache.Dir = %s", cfg.Cache.Dir)
	}
	if base.Output != "" || base.Cache.Dir != "" {
		t.Error("ForManifest must not modify the receiver")
	}

	base.Output = "dist/bundle"
	if got := base.ForManifest("web/app.cherry").Output; got != "dist/bundle" {
		t.Errorf("explicit output overridden: %s", got)
	}
}

func TestFromViper(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set(config.KeyDev, true)
	v.Set(config.KeyCache, true)
	v.Set(config.KeyCacheOptions, "clean,force")
	v.Set(config.KeyVerbose, 2)
	v.Set(config.KeyToolLessc, "/from/file/lessc")
	v.Set(config.KeySet, []string{"lessc=/from/flag/lessc"})

	cfg, err := config.FromViper(v)
	if err != nil {
		t.Fatalf("FromViper() error = %v", err)
	}
	if cfg.Mode() != types.BuildModeDev || !cfg.Cache.Enabled || !cfg.Cache.Clean {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Cache.Download != types.CacheDownloadForce {
		t.Errorf("Download = %s", cfg.Cache.Download)
	}
	if cfg.LogLevel != types.LogLevelVerbose {
		t.Errorf("LogLevel = %d", cfg.LogLevel)
	}
	if cfg.Tools.Lessc != "/from/flag/lessc" {
		t.Errorf("--set should win, got %s", cfg.Tools.Lessc)
	}
	if cfg.Tools.Java != config.DefaultJava {
		t.Errorf("Java = %s", cfg.Tools.Java)
	}
}

func TestFromViper_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cherry.config.yaml")
	content := "dev: true\npretty: true\ntools:\n  soy_dir: /srv/soy\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		t.Fatalf("FromViper() error = %v", err)
	}
	if !cfg.Dev || !cfg.Pretty {
		t.Errorf("flags from file not applied: %+v", cfg)
	}
	if cfg.Tools.SoyDir != "/srv/soy" {
		t.Errorf("SoyDir = %s", cfg.Tools.SoyDir)
	}
}

func TestFromViper_CacheWithoutDev(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set(config.KeyCache, true)

	if _, err := config.FromViper(v); !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestYAMLRendering(t *testing.T) {
	cfg := config.Default()
	cfg.Dev = true

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}

	var back map[string]interface{}
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if back["dev"] != true {
		t.Errorf("dev not rendered: %s", data)
	}
	tools, ok := back["tools"].(map[string]interface{})
	if !ok || tools["soy_dir"] != "/opt/soy" {
		t.Errorf("tools not rendered: %s", data)
	}
}
