// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("main.name", "PetalNet-Go")
	v.SetDefault("main.debug", false)

	v.SetDefault("model.path", "model/flower_classifier.tflite")
	v.SetDefault("model.labelpath", "model/flower_names.json")
	v.SetDefault("model.classcount", 102)
	v.SetDefault("model.threads", 0)
	v.SetDefault("model.layout", LayoutNHWC)

	v.SetDefault("webserver.listen", ":8080")
	v.SetDefault("webserver.uploaddir", "uploads")
	v.SetDefault("webserver.maxuploadmb", 5)

	v.SetDefault("enrichment.cachepath", "flower_info_cache.json")
	v.SetDefault("enrichment.lookuptimeout", 5*time.Second)
	v.SetDefault("enrichment.maxattempts", 3)
	v.SetDefault("enrichment.pause", time.Second)
	v.SetDefault("enrichment.relatedimages", 4)

	v.SetDefault("wikipedia.endpoint", "https://en.wikipedia.org/api/rest_v1/page/summary/")
	v.SetDefault("wikipedia.contact", "")

	v.SetDefault("unsplash.endpoint", "https://api.unsplash.com/search/photos")
	v.SetDefault("unsplash.accesskey", "")
	v.SetDefault("unsplash.catalogcachettl", 24*time.Hour)
	v.SetDefault("unsplash.ratelimit", 2.0)

	v.SetDefault("output.sqlite.enabled", true)
	v.SetDefault("output.sqlite.path", "petalnet.db")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "petalnet/identifications")
	v.SetDefault("mqtt.clientid", "petalnet-go")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")

	v.SetDefault("logging.defaultlevel", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.fileoutput.enabled", false)
	v.SetDefault("logging.fileoutput.path", "logs/petalnet.log")
	v.SetDefault("logging.fileoutput.level", "info")
}
