package config

import (
	"os"
	"reflect"
	"strings"

	"workspace-sync/core/database"
	"workspace-sync/core/logger"
	"workspace-sync/core/reconcile"
	"workspace-sync/core/server"
	"workspace-sync/core/storage"
	"workspace-sync/core/utils"
	"workspace-sync/core/workspace"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// PreWorkPrefix names env vars holding statements run before a sync.
	PreWorkPrefix = "SYNC_PREWORK_"
	// PostWorkPrefix names env vars holding statements run after a sync.
	PostWorkPrefix = "SYNC_POSTWORK_"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage archiving run reports.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the tabular store connection.
	Database database.Config `mapstructure:"database"`
	// Workspace holds configuration for the workspace API.
	Workspace workspace.Config `mapstructure:"workspace"`
	// Sync holds configuration for the reconciliation engine.
	Sync reconcile.Config `mapstructure:"sync"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Database.Biscuits = utils.SplitList(strings.Join(config.Database.Biscuits, ","))
	collectRunConfig(&config.Sync, os.Environ())

	return &config, nil
}

// collectRunConfig fills the bindings and the pre/post work statements from
// prefixed environment entries, in name order.
func collectRunConfig(cfg *reconcile.Config, environ []string) {
	cfg.Bindings = nil
	cfg.PreWork = nil
	cfg.PostWork = nil

	if cfg.TablePrefix != "" {
		for _, kv := range utils.EnvWithPrefix(environ, cfg.TablePrefix) {
			cfg.Bindings = append(cfg.Bindings, reconcile.Binding{Table: kv.Key, ContainerID: strings.TrimSpace(kv.Value)})
		}
	}
	for _, kv := range utils.EnvWithPrefix(environ, PreWorkPrefix) {
		cfg.PreWork = append(cfg.PreWork, reconcile.Statement{Name: strings.TrimPrefix(kv.Key, PreWorkPrefix), SQL: kv.Value})
	}
	for _, kv := range utils.EnvWithPrefix(environ, PostWorkPrefix) {
		cfg.PostWork = append(cfg.PostWork, reconcile.Statement{Name: strings.TrimPrefix(kv.Key, PostWorkPrefix), SQL: kv.Value})
	}
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip untagged and explicitly ignored fields
		if tag == "" || tag == "-" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
