package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	TCPAddr  string
	HTTPAddr string

	IdleTimeout   time.Duration
	SweepInterval time.Duration
	CallGrace     time.Duration

	ChunkSize        int
	SilenceThreshold float64
}

func defaults(v *viper.Viper) {
	v.SetDefault("tcp_addr", ":9077")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("session.idle_timeout", 5*time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)
	v.SetDefault("call.grace", 30*time.Second)
	v.SetDefault("audio.chunk_size", 4096)
	v.SetDefault("audio.silence_threshold", 0.02)
}

// Load reads the optional config file and environment, falling back to
// defaults. An empty path means defaults plus environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("LYRA")
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}
	return Config{
		TCPAddr:          v.GetString("tcp_addr"),
		HTTPAddr:         v.GetString("http_addr"),
		IdleTimeout:      v.GetDuration("session.idle_timeout"),
		SweepInterval:    v.GetDuration("session.sweep_interval"),
		CallGrace:        v.GetDuration("call.grace"),
		ChunkSize:        v.GetInt("audio.chunk_size"),
		SilenceThreshold: v.GetFloat64("audio.silence_threshold"),
	}, nil
}
