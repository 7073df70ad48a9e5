package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Platforms PlatformsConfig `mapstructure:"platforms"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // memory or sqlite
	Path   string `mapstructure:"path"`   // sqlite file path
}

type PlatformsConfig struct {
	WhatsApp  PlatformConfig `mapstructure:"whatsapp"`
	Facebook  PlatformConfig `mapstructure:"facebook"`
	Instagram PlatformConfig `mapstructure:"instagram"`
}

// PlatformConfig holds the per-platform credentials. AppSecret signs webhook
// bodies, VerifyToken answers the subscription handshake, AccessToken
// authorizes outbound Graph API calls. AllowUnverified disables signature
// checking when no secret is configured; it exists for local development
// only and is logged loudly at startup.
type PlatformConfig struct {
	AppSecret       string `mapstructure:"app_secret"`
	VerifyToken     string `mapstructure:"verify_token"`
	AccessToken     string `mapstructure:"access_token"`
	PhoneNumberID   string `mapstructure:"phone_number_id"` // WhatsApp only
	AllowUnverified bool   `mapstructure:"allow_unverified"`
}

type GraphConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIVersion string        `mapstructure:"api_version"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type AdminConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Graph.BaseURL == "" {
		config.Graph.BaseURL = "https://graph.facebook.com"
	}
	if config.Graph.APIVersion == "" {
		config.Graph.APIVersion = "v21.0"
	}
	if config.Graph.Timeout == 0 {
		config.Graph.Timeout = 10 * time.Second
	}
	if config.Storage.Driver == "" {
		config.Storage.Driver = "memory"
	}

	return &config, nil
}
