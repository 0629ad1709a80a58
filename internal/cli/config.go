package cli

import (
	"github.com/spf13/viper"
)

var v *viper.Viper

func init() {
	v = viper.New()

	// Capture defaults; a zero width/height/rate lets the backend pick.
	v.SetDefault("capture.width", 0)
	v.SetDefault("capture.height", 0)
	v.SetDefault("capture.fps", 0)
	v.SetDefault("capture.duration", "3s")
	v.SetDefault("capture.output", "")
	v.SetDefault("capture.cursor", false)
	v.SetDefault("capture.audio", false)

	v.SetEnvPrefix("miniav")
	v.AutomaticEnv()

	v.SetConfigName("miniav")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/miniav")

	// Config file is optional.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
	}
}
