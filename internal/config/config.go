// Package config loads the spine's runtime configuration: the enumerated
// options in spec.md §6. It mirrors the teacher's internal/config package —
// a single package-level viper.Viper, the same project/user/home precedence
// walk, and the same env-var-prefix convention (renamed BD_ -> SPINE_).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tjpilant/idse-spine/internal/debug"
)

var v = viper.New()

// ToolNames maps the generic remote capability verbs to concrete adapter
// tool names (spec.md §6, remote.tool_names).
type ToolNames struct {
	Query  string
	Create string
	Update string
	Fetch  string
}

// PropertyMode controls whether a SchemaMap field is written on create,
// every sync, or only when source data exists.
type PropertyMode string

const (
	ModeCreateOnly PropertyMode = "create_only"
	ModeAlwaysSync PropertyMode = "always_sync"
	ModeOptional   PropertyMode = "optional"
)

// PropertyMapping is one entry of remote.properties: a spine field mapped to
// a remote property name/type with a write mode.
type PropertyMapping struct {
	SpineField string
	RemoteName string
	RemoteType string
	Mode       PropertyMode
}

// Initialize sets up the package-level viper instance. Call once at startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	// 1. Walk up from CWD looking for .spine/config.yaml, so commands work
	// from any subdirectory of a workspace.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			candidate := filepath.Join(dir, ".spine", "config.yaml")
			if _, err := os.Stat(candidate); err == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
				break
			}
		}
	}

	// 2. User config directory.
	if !configFileSet {
		if dir, err := os.UserConfigDir(); err == nil {
			candidate := filepath.Join(dir, "spine", "config.yaml")
			if _, err := os.Stat(candidate); err == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
			}
		}
	}

	// 3. Home directory.
	if !configFileSet {
		if dir, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(dir, ".spine", "config.yaml")
			if _, err := os.Stat(candidate); err == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("SPINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("storage_backend", "embedded")
	v.SetDefault("sync_backend", "")
	v.SetDefault("remote.anchor", "")
	v.SetDefault("remote.credentials_dir", "")
	v.SetDefault("remote.endpoint", "")
	v.SetDefault("validation.required_sections", map[string][]string{
		"intent":         {"Goal", "Success Criteria"},
		"implementation": {"Component Impact Report"},
	})
	v.SetDefault("promotion.temporal_stability_days", 7)
	v.SetDefault("promotion.duplicate_similarity_threshold", 0.98)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		debug.Logf("loaded config from %s", v.ConfigFileUsed())
	} else {
		debug.Logf("no .spine/config.yaml found; using defaults and environment variables")
	}

	return nil
}

// StorageBackend returns the storage_backend selector (default "embedded",
// the only core backend per spec.md §6).
func StorageBackend() string { return v.GetString("storage_backend") }

// SyncBackend returns the sync_backend selector (default "", meaning none).
func SyncBackend() string { return v.GetString("sync_backend") }

// RemoteAnchor returns the opaque remote container anchor.
func RemoteAnchor() string { return v.GetString("remote.anchor") }

// RemoteCredentialsDir returns the read-only credentials directory path.
func RemoteCredentialsDir() string { return v.GetString("remote.credentials_dir") }

// RemoteEndpoint returns the configured remote adapter HTTP endpoint.
func RemoteEndpoint() string { return v.GetString("remote.endpoint") }

// RequiredSections returns the configured required-section list for a stage,
// overrideable via validation.required_sections.
func RequiredSections(stage string) []string {
	key := "validation.required_sections." + stage
	if v.IsSet(key) {
		return v.GetStringSlice(key)
	}
	raw := v.Get("validation.required_sections")
	m, ok := raw.(map[string][]string)
	if !ok {
		return nil
	}
	return m[stage]
}

// TemporalStabilityWindow returns the INSUFFICIENT_TEMPORAL_STABILITY gate's
// minimum evidence age span (default 7 days).
func TemporalStabilityWindow() time.Duration {
	days := v.GetInt("promotion.temporal_stability_days")
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

// DuplicateSimilarityThreshold returns the DUPLICATE_STATEMENT gate's
// admission threshold (default 0.98).
func DuplicateSimilarityThreshold() float64 {
	t := v.GetFloat64("promotion.duplicate_similarity_threshold")
	if t <= 0 {
		t = 0.98
	}
	return t
}

// ToolNamesFor loads remote.tool_names for a configured sync backend.
func ToolNamesFor() ToolNames {
	return ToolNames{
		Query:  v.GetString("remote.tool_names.query"),
		Create: v.GetString("remote.tool_names.create"),
		Update: v.GetString("remote.tool_names.update"),
		Fetch:  v.GetString("remote.tool_names.fetch"),
	}
}

// Raw exposes the underlying viper instance for callers (e.g. the CLI) that
// need direct flag-binding access.
func Raw() *viper.Viper { return v }
