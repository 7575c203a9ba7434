// Package config loads sbom-enricher settings from a YAML file, a .env file,
// SBOMIFY_* environment variables and command line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/StinkyLord/sbom-enricher/internal/sources"
	"github.com/StinkyLord/sbom-enricher/internal/upload"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = ".sbom-enricher.yaml"

// EnvPrefix prefixes every environment variable, e.g. SBOMIFY_HASHES_OVERWRITE.
const EnvPrefix = "SBOMIFY"

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Hashes   HashesConfig   `mapstructure:"hashes"`
	Discover DiscoverConfig `mapstructure:"discover"`
	Upload   UploadConfig   `mapstructure:"upload"`
}

// APIConfig addresses the sbomify service, used both as a metadata source
// and as an upload destination.
type APIConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Token       string `mapstructure:"token"`
	ComponentID string `mapstructure:"component_id"`
}

type SourcesConfig struct {
	LocalConfig   string `mapstructure:"local_config"`
	ComponentName string `mapstructure:"component_name"`
	Ecosystem     string `mapstructure:"ecosystem"`
	CatalogFile   string `mapstructure:"catalog_file"`
	// CacheSize bounds the catalog lookup cache; 0 means unbounded.
	CacheSize  int  `mapstructure:"cache_size"`
	FirstMatch bool `mapstructure:"first_match"`
}

type HashesConfig struct {
	Lockfiles []string `mapstructure:"lockfiles"`
	Overwrite bool     `mapstructure:"overwrite"`
}

type DiscoverConfig struct {
	TreeFile string        `mapstructure:"tree_file"`
	Command  string        `mapstructure:"command"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// Output receives the discovered dependencies as JSON when set.
	Output string `mapstructure:"output"`
}

type UploadConfig struct {
	// Destinations restricts uploads to the named destinations; empty means
	// every configured one.
	Destinations    []string              `mapstructure:"destinations"`
	DependencyTrack DependencyTrackConfig `mapstructure:"dependency_track"`
	S3              S3Config              `mapstructure:"s3"`
	Directory       string                `mapstructure:"directory"`
}

type DependencyTrackConfig struct {
	URL            string `mapstructure:"url"`
	APIKey         string `mapstructure:"api_key"`
	ProjectUUID    string `mapstructure:"project_uuid"`
	ProjectName    string `mapstructure:"project_name"`
	ProjectVersion string `mapstructure:"project_version"`
	AutoCreate     bool   `mapstructure:"auto_create"`
}

type S3Config struct {
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	CreateBucket bool   `mapstructure:"create_bucket"`
}

var defaults = map[string]any{
	"api.base_url":                            upload.DefaultSbomifyURL,
	"api.token":                               "",
	"api.component_id":                        "",
	"sources.local_config":                    "",
	"sources.component_name":                  "",
	"sources.ecosystem":                       "",
	"sources.catalog_file":                    "",
	"sources.cache_size":                      0,
	"sources.first_match":                     false,
	"hashes.lockfiles":                        []string{},
	"hashes.overwrite":                        false,
	"discover.tree_file":                      "",
	"discover.command":                        "pipdeptree --json-tree",
	"discover.timeout":                        2 * time.Minute,
	"discover.output":                         "",
	"upload.destinations":                     []string{},
	"upload.dependency_track.url":             "",
	"upload.dependency_track.api_key":         "",
	"upload.dependency_track.project_uuid":    "",
	"upload.dependency_track.project_name":    "",
	"upload.dependency_track.project_version": "",
	"upload.dependency_track.auto_create":     false,
	"upload.s3.endpoint":                      "",
	"upload.s3.region":                        "us-east-1",
	"upload.s3.access_key":                    "",
	"upload.s3.secret_key":                    "",
	"upload.s3.bucket":                        "",
	"upload.s3.prefix":                        "",
	"upload.s3.use_ssl":                       true,
	"upload.s3.create_bucket":                 false,
	"upload.directory":                        "",
}

// envAliases are the short variable names used by CI integrations, checked
// before the prefixed structured name.
var envAliases = map[string][]string{
	"api.token":                       {"SBOMIFY_TOKEN"},
	"api.component_id":                {"SBOMIFY_COMPONENT_ID"},
	"api.base_url":                    {"SBOMIFY_API_BASE_URL"},
	"upload.dependency_track.url":     {"DTRACK_URL"},
	"upload.dependency_track.api_key": {"DTRACK_API_KEY"},
}

// FlagKeys maps command line flag names to config keys. Flags absent from the
// flag set passed to Load are ignored.
var FlagKeys = map[string]string{
	"token":          "api.token",
	"component-id":   "api.component_id",
	"api-url":        "api.base_url",
	"local-config":   "sources.local_config",
	"component-name": "sources.component_name",
	"ecosystem":      "sources.ecosystem",
	"catalog":        "sources.catalog_file",
	"first-match":    "sources.first_match",
	"lockfile":       "hashes.lockfiles",
	"overwrite":      "hashes.overwrite",
	"tree-file":      "discover.tree_file",
	"pipdeptree":     "discover.command",
	"timeout":        "discover.timeout",
	"deps-output":    "discover.output",
	"destination":    "upload.destinations",
	"upload-dir":     "upload.directory",
}

// Load reads the configuration. path may be empty, in which case DefaultFile
// in workDir is used when it exists. A .env file in workDir is loaded into the
// process environment first without overriding variables already set.
func Load(path, workDir string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(filepath.Join(workDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key}, append(names, prefixed)...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	file := path
	if file == "" {
		candidate := filepath.Join(workDir, DefaultFile)
		if _, err := os.Stat(candidate); err == nil {
			file = candidate
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Hashes.Lockfiles = splitList(cfg.Hashes.Lockfiles)
	cfg.Upload.Destinations = splitList(cfg.Upload.Destinations)
	return &cfg, nil
}

// splitList accepts both repeated values and comma separated ones.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// SourceContext builds the context handed to metadata sources.
func (c *Config) SourceContext(workDir string) sources.Context {
	values := map[string]string{
		sources.KeyToken:         c.API.Token,
		sources.KeyComponentID:   c.API.ComponentID,
		sources.KeyAPIBaseURL:    c.API.BaseURL,
		sources.KeyLocalConfig:   c.Sources.LocalConfig,
		sources.KeyComponentName: c.Sources.ComponentName,
		sources.KeyEcosystem:     c.Sources.Ecosystem,
		sources.KeyCatalogFile:   c.Sources.CatalogFile,
	}
	cfg := map[string]string{}
	for k, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			cfg[k] = v
		}
	}
	return sources.Context{WorkDir: workDir, Config: cfg}
}

// SourceOptions returns the options for sources.Default.
func (c *Config) SourceOptions() ([]sources.Option, error) {
	if c.Sources.CacheSize <= 0 {
		return nil, nil
	}
	cache, err := sources.NewBoundedCache(c.Sources.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("cache size %d: %w", c.Sources.CacheSize, err)
	}
	return []sources.Option{sources.WithCache(cache)}, nil
}

// S3 converts the S3 section into the destination settings.
func (c *Config) S3() upload.S3Config {
	s := c.Upload.S3
	return upload.S3Config{
		Endpoint:     s.Endpoint,
		Region:       s.Region,
		AccessKey:    s.AccessKey,
		SecretKey:    s.SecretKey,
		Bucket:       s.Bucket,
		Prefix:       s.Prefix,
		UseSSL:       s.UseSSL,
		CreateBucket: s.CreateBucket,
	}
}
