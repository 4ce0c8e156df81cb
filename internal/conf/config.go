// config.go: settings struct for PetalNet-Go and the functions to load it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/petalnet/petalnet-go/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Tensor layouts accepted by model.layout
const (
	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"
)

// ModelSettings describes the classifier checkpoint and its label file.
type ModelSettings struct {
	Path       string // path to the .tflite checkpoint
	LabelPath  string // JSON object of class id -> display name
	ClassCount int    // class count used for synthetic labels when the label file is unusable
	Threads    int    // interpreter threads, 0 means runtime.NumCPU
	Layout     string // input tensor layout, nhwc or nchw
}

// WebServerSettings contains settings for the web server
type WebServerSettings struct {
	Listen      string // address the HTTP server binds to
	UploadDir   string // directory uploaded photos are stored in
	MaxUploadMB int    // upload size cap in MiB
}

// EnrichmentSettings tunes the text and image enrichment pipeline.
type EnrichmentSettings struct {
	CachePath     string        // JSON file backing the description cache
	LookupTimeout time.Duration // per-attempt timeout for external lookups
	MaxAttempts   int           // attempts per text lookup
	Pause         time.Duration // pause between successive text lookups, 0 disables
	RelatedImages int           // related photos shown for the top prediction
}

// WikipediaSettings configures the page summary endpoint.
type WikipediaSettings struct {
	Endpoint string // summary endpoint, the query term is appended
	Contact  string // contact address added to the User-Agent
}

// UnsplashSettings configures the image search API.
type UnsplashSettings struct {
	Endpoint        string
	AccessKey       string        // empty disables searches
	CatalogCacheTTL time.Duration // how long catalog image lookups are memoized
	RateLimit       float64       // catalog searches per second
}

// SQLiteSettings contains settings for the identification history store
type SQLiteSettings struct {
	Enabled bool
	Path    string
}

// OutputSettings groups persistent outputs
type OutputSettings struct {
	SQLite SQLiteSettings
}

// MQTTSettings contains settings for identification event publication
type MQTTSettings struct {
	Enabled  bool
	Broker   string
	Topic    string
	Username string
	Password string
	ClientID string
}

// SentrySettings contains settings for opt-in error telemetry
type SentrySettings struct {
	Enabled bool
	DSN     string
}

// Settings contains all configuration options for PetalNet-Go
type Settings struct {
	Main struct {
		Name  string // name shown in page titles and the User-Agent
		Debug bool
	}

	Model      ModelSettings
	WebServer  WebServerSettings
	Enrichment EnrichmentSettings
	Wikipedia  WikipediaSettings
	Unsplash   UnsplashSettings
	Output     OutputSettings
	MQTT       MQTTSettings
	Sentry     SentrySettings
	Logging    logger.LoggingConfig
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into the settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings, err := unmarshalSettings(viper.GetViper())
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// unmarshalSettings decodes and validates an already populated viper instance.
func unmarshalSettings(v *viper.Viper) (*Settings, error) {
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

// initViper sets defaults and env bindings and reads the configuration file,
// writing a default one when none exists.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig(viper.GetViper())

	if err := bindEnvVars(viper.GetViper()); err != nil {
		// Invalid env values are reported but do not stop startup
		fmt.Fprintln(os.Stderr, err)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml to dir and reads it back.
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, loading them on first use.
func Setting() *Settings {
	if s := GetSettings(); s != nil {
		return s
	}
	s, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading settings: %v\n", err)
		os.Exit(1)
	}
	return s
}

// MaxUploadBytes returns the upload cap in bytes
func (s *Settings) MaxUploadBytes() int64 {
	return int64(s.WebServer.MaxUploadMB) << 20
}
