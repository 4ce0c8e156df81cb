// conf/validate.go

package conf

import (
	"fmt"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, err := range []error{
		validateModelSettings(&settings.Model),
		validateWebServerSettings(&settings.WebServer),
		validateEnrichmentSettings(&settings.Enrichment),
		validateUnsplashSettings(&settings.Unsplash),
		validateMQTTSettings(&settings.MQTT),
		validateSentrySettings(&settings.Sentry),
	} {
		if err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateModelSettings(settings *ModelSettings) error {
	var errs []string

	if settings.ClassCount <= 0 {
		errs = append(errs, "model.classcount must be positive")
	}
	if settings.Threads < 0 {
		errs = append(errs, "model.threads must not be negative")
	}
	settings.Layout = strings.ToLower(settings.Layout)
	if settings.Layout == "" {
		settings.Layout = LayoutNHWC
	}
	if settings.Layout != LayoutNHWC && settings.Layout != LayoutNCHW {
		errs = append(errs, fmt.Sprintf("model.layout must be %s or %s, got %q", LayoutNHWC, LayoutNCHW, settings.Layout))
	}

	return joinErrs("model settings", errs)
}

func validateWebServerSettings(settings *WebServerSettings) error {
	var errs []string

	if settings.Listen == "" {
		errs = append(errs, "webserver.listen must not be empty")
	}
	if settings.MaxUploadMB <= 0 {
		errs = append(errs, "webserver.maxuploadmb must be positive")
	}
	if settings.UploadDir == "" {
		errs = append(errs, "webserver.uploaddir must not be empty")
	}

	return joinErrs("webserver settings", errs)
}

func validateEnrichmentSettings(settings *EnrichmentSettings) error {
	var errs []string

	if settings.MaxAttempts < 1 {
		errs = append(errs, "enrichment.maxattempts must be at least 1")
	}
	if settings.LookupTimeout <= 0 {
		errs = append(errs, "enrichment.lookuptimeout must be positive")
	}
	if settings.Pause < 0 {
		errs = append(errs, "enrichment.pause must not be negative")
	}
	if settings.RelatedImages < 1 {
		errs = append(errs, "enrichment.relatedimages must be at least 1")
	}

	return joinErrs("enrichment settings", errs)
}

func validateUnsplashSettings(settings *UnsplashSettings) error {
	if settings.RateLimit <= 0 {
		return fmt.Errorf("unsplash settings: unsplash.ratelimit must be positive")
	}
	return nil
}

func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}
	var errs []string
	if settings.Broker == "" {
		errs = append(errs, "mqtt.broker is required when mqtt is enabled")
	}
	if settings.Topic == "" {
		errs = append(errs, "mqtt.topic is required when mqtt is enabled")
	}
	return joinErrs("mqtt settings", errs)
}

func validateSentrySettings(settings *SentrySettings) error {
	if settings.Enabled && settings.DSN == "" {
		return fmt.Errorf("sentry settings: sentry.dsn is required when sentry is enabled")
	}
	return nil
}

func joinErrs(section string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %s", section, strings.Join(errs, "; "))
}
