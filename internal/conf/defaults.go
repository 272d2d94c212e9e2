// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "ARNutri-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "arnutri.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)
	viper.SetDefault("main.log.rotationday", time.Sunday.String())

	viper.SetDefault("scanner.debug", false)
	viper.SetDefault("scanner.camera.facing", "back")
	viper.SetDefault("scanner.rearmdelay", 5*time.Second)
	viper.SetDefault("scanner.rearmonerror", 3*time.Second)
	viper.SetDefault("scanner.vision.enabled", true)
	viper.SetDefault("scanner.vision.captureevery", 2*time.Second)
	viper.SetDefault("scanner.vision.mininterval", time.Second)

	viper.SetDefault("lookup.debug", false)
	viper.SetDefault("lookup.baseurl", "https://world.openfoodfacts.org")
	viper.SetDefault("lookup.timeout", 30*time.Second)
	viper.SetDefault("lookup.ratelimitms", 100)
	viper.SetDefault("lookup.useragent", "ARNutri-Go/1.0")

	viper.SetDefault("display.mode", "screen")
	viper.SetDefault("display.viewportw", 1280.0)
	viper.SetDefault("display.viewporth", 720.0)
	viper.SetDefault("display.panel.width", 300.0)
	viper.SetDefault("display.panel.height", 390.0)
	viper.SetDefault("display.margin", 10.0)
	viper.SetDefault("display.jitter", 50.0)
	viper.SetDefault("display.verticalratio", 0.4)
	viper.SetDefault("display.ardistance", 2.0)
	viper.SetDefault("display.removalfade", 300*time.Millisecond)

	viper.SetDefault("orientation.debug", false)
	viper.SetDefault("orientation.sensitivity", 2.5)
	viper.SetDefault("orientation.noisethreshold", 0.5)

	viper.SetDefault("compare.scale", 0.85)
	viper.SetDefault("compare.rowheight", 420.0)
	viper.SetDefault("compare.topoffset", 100.0)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.debug", false)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")
}
