package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ColdbConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		Workdir     string `mapstructure:"workdir"`
		Persistence bool   `mapstructure:"persistence"`
	} `mapstructure:"storage"`

	Index struct {
		TreeDegree int `mapstructure:"tree_degree"`
	} `mapstructure:"index"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		SeqURL string `mapstructure:"seq_url"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "coldb")
	v.SetDefault("storage.workdir", "./data")
	v.SetDefault("storage.persistence", true)
	v.SetDefault("index.tree_degree", 32)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.seq_url", "")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("COLDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// DefaultConfig returns the built-in defaults without reading a file or the
// environment.
func DefaultConfig() *ColdbConfig {
	var cfg ColdbConfig
	cfg.AppName = "coldb"
	cfg.Storage.Workdir = "./data"
	cfg.Storage.Persistence = true
	cfg.Index.TreeDegree = 32
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return &cfg
}

// LoadConfig reads a YAML file on top of the defaults. An empty path skips
// the file. COLDB_STORAGE_WORKDIR style variables override both.
func LoadConfig(path string) (*ColdbConfig, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*ColdbConfig, error) {
	var cfg ColdbConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Index.TreeDegree < 2 {
		return nil, fmt.Errorf("config: index.tree_degree must be at least 2, got %d", cfg.Index.TreeDegree)
	}
	return &cfg, nil
}
