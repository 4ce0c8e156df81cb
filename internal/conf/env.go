// env.go - environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"main.debug", "PETALNET_DEBUG", validateEnvBool},

		{"model.path", "PETALNET_MODEL_PATH", nil},
		{"model.labelpath", "PETALNET_MODEL_LABELPATH", nil},
		{"model.threads", "PETALNET_MODEL_THREADS", validateEnvNonNegativeInt},
		{"model.layout", "PETALNET_MODEL_LAYOUT", validateEnvLayout},

		{"webserver.listen", "PETALNET_LISTEN", nil},
		{"webserver.uploaddir", "PETALNET_UPLOAD_DIR", nil},
		{"webserver.maxuploadmb", "PETALNET_MAX_UPLOAD_MB", validateEnvNonNegativeInt},

		{"enrichment.cachepath", "PETALNET_CACHE_PATH", nil},
		{"enrichment.pause", "PETALNET_LOOKUP_PAUSE", validateEnvDuration},

		// Same variable name as the original deployment scripts use
		{"unsplash.accesskey", "UNSPLASH_API_KEY", nil},

		{"output.sqlite.path", "PETALNET_SQLITE_PATH", nil},

		{"mqtt.enabled", "PETALNET_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "PETALNET_MQTT_BROKER", validateEnvBrokerURL},
		{"mqtt.username", "PETALNET_MQTT_USERNAME", nil},
		{"mqtt.password", "PETALNET_MQTT_PASSWORD", nil},

		{"sentry.enabled", "PETALNET_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "PETALNET_SENTRY_DSN", nil},
	}
}

// bindEnvVars binds every environment variable and validates the ones that are set
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

func validateEnvDuration(value string) error {
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	return nil
}

func validateEnvLayout(value string) error {
	switch strings.ToLower(value) {
	case LayoutNHWC, LayoutNCHW:
		return nil
	}
	return fmt.Errorf("layout must be %s or %s", LayoutNHWC, LayoutNCHW)
}

func validateEnvBrokerURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("broker URL must look like tcp://host:port")
	}
	return nil
}
