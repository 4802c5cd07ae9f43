package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment EnvironmentConfig
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	RateLimit   RateLimitConfig
}

type EnvironmentConfig struct {
	Current string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	SecretKey string
}

type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

func LoadConfig() (config Config, err error) {
	viper.SetConfigName("app")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config, err
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("environment.current", "development")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.readtimeout", 15)
	viper.SetDefault("server.writetimeout", 15)
	viper.SetDefault("server.idletimeout", 60)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "relay")
	viper.SetDefault("database.password", "relay")
	viper.SetDefault("database.dbname", "relay")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secretkey", "your_default_secret_change_in_production")
	viper.SetDefault("ratelimit.maxrequests", 100)
	viper.SetDefault("ratelimit.window", time.Minute)

	err = viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.JWT.SecretKey == "your_default_secret_change_in_production" {
		log.Println("WARNING: Using default JWT secret key. This is insecure for production.")
	}

	return config, nil
}
