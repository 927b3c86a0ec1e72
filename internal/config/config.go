package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode          string        `mapstructure:"mode"`
	ConsoleAddr   string        `mapstructure:"console_addr"`
	StaticPath    string        `mapstructure:"static_path"`
	STUNServers   []string      `mapstructure:"stun_servers"`
	ChannelLabel  string        `mapstructure:"channel_label"`
	GatherTimeout time.Duration `mapstructure:"gather_timeout"`

	CameraAudioAddr string `mapstructure:"camera_audio_addr"`
	CameraVideoAddr string `mapstructure:"camera_video_addr"`
	ScreenVideoAddr string `mapstructure:"screen_video_addr"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("console_addr", "127.0.0.1:8422")
	v.SetDefault("static_path", "./web")
	v.SetDefault("stun_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("channel_label", "chat")
	v.SetDefault("gather_timeout", "30s")
	v.SetDefault("camera_audio_addr", "127.0.0.1:5002")
	v.SetDefault("camera_video_addr", "127.0.0.1:5004")
	v.SetDefault("screen_video_addr", "127.0.0.1:5006")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
