package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (PAGETRANSFORM_LOG_LEVEL...).
const EnvPrefix = "PAGETRANSFORM"

// Run is the process-level configuration read by the CLI.
type Run struct {
	Log      LogConfig      `mapstructure:"log"`
	Defaults Request        `mapstructure:"defaults"`
	LDAP     LDAPConfig     `mapstructure:"ldap"`
	Taxonomy TaxonomyConfig `mapstructure:"taxonomy"`
	Sink     SinkConfig     `mapstructure:"sink"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Batch    BatchConfig    `mapstructure:"batch"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// LDAPConfig drives the directory lookups of the identity resolver.
type LDAPConfig struct {
	// ConnectionString overrides the connection string computed from the
	// account's domain, e.g. "LDAP://dc01.contoso.com/DC=contoso,DC=com".
	ConnectionString string `mapstructure:"connection_string"`
	BindUser         string `mapstructure:"bind_user"`
	BindPassword     string `mapstructure:"bind_password"`

	// Domains maps NetBIOS names to fully qualified names (CONTOSO -> contoso.com).
	Domains map[string]string `mapstructure:"domains"`

	// DefaultSuffix is appended to unknown short domain names.
	DefaultSuffix string `mapstructure:"default_suffix"`
	// CurrentDomain is assumed for accounts given without a domain.
	CurrentDomain string `mapstructure:"current_domain"`
}

type TaxonomyConfig struct {
	// LegacyServiceURL is the base URL of the legacy term discovery service.
	LegacyServiceURL string `mapstructure:"legacy_service_url"`
	SourceTermSetID  string `mapstructure:"source_term_set_id"`
	TargetTermSetID  string `mapstructure:"target_term_set_id"`
	TargetGroupID    string `mapstructure:"target_group_id"`
	IncludeChildren  bool   `mapstructure:"include_children"`

	// SnapshotFile is a JSON export of terms used when no live store is configured.
	SourceSnapshotFile string `mapstructure:"source_snapshot_file"`
	TargetSnapshotFile string `mapstructure:"target_snapshot_file"`

	// FieldSchemaFile holds the schema XML of a taxonomy field. The legacy
	// service is addressed by the group id read from it.
	SourceFieldSchemaFile string `mapstructure:"source_field_schema_file"`
	TargetFieldSchemaFile string `mapstructure:"target_field_schema_file"`
}

type SinkConfig struct {
	// Kind is "file", "memory", or a registered storage kind (sqlite, postgres, mssql).
	Kind  string `mapstructure:"kind"`
	Dir   string `mapstructure:"dir"`
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

type MetricsConfig struct {
	Backend    string        `mapstructure:"backend"`
	JobName    string        `mapstructure:"job_name"`
	Tags       []string      `mapstructure:"tags"`
	FlushEvery time.Duration `mapstructure:"flush_every"`
}

type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// NewViper returns a viper instance with the search paths and env binding
// used by every command.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pagetransform")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "warn")
	v.SetDefault("sink.kind", "file")
	v.SetDefault("sink.dir", "out")
	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.flush_every", 60*time.Second)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("defaults.source_pages_library", "pages")
	return v
}

// LoadRun reads the configuration. A missing config file is not an error
// when path is empty; defaults and environment still apply.
func LoadRun(v *viper.Viper, path string) (Run, error) {
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return Run{}, fmt.Errorf("read config: %w", err)
		}
	}
	var r Run
	if err := v.Unmarshal(&r); err != nil {
		return Run{}, fmt.Errorf("decode config: %w", err)
	}
	if r.Batch.Concurrency <= 0 {
		r.Batch.Concurrency = 1
	}
	return r, nil
}

func sortedKeys(o Options) []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
