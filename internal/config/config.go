package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel             string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort             string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort           string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Redis                Redis  `yaml:"redis"`
	SQLiteStoragePath    string `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"connectquatro.db"`
	JWTSecretKey         string `yaml:"jwt-secret-key" env:"JWT_SECRET_KEY"`
	CountdownPollSeconds int    `yaml:"countdown-poll-seconds" env:"COUNTDOWN_POLL_SECONDS" env-default:"1"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

// CountdownPollInterval - how often the turn watchdog publishes countdown
// updates.
func (that *Config) CountdownPollInterval() time.Duration {
	return time.Duration(that.CountdownPollSeconds) * time.Second
}
