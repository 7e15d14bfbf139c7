package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Assets    AssetsConfig    `yaml:"assets"`
	AWS       AWSConfig       `yaml:"aws"`
	Twilio    TwilioConfig    `yaml:"twilio"`
	Notify    NotifyConfig    `yaml:"notify"`
	FaceMatch FaceMatchConfig `yaml:"face_match"`
	Gallery   GalleryConfig   `yaml:"gallery"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// StorageConfig selects where registry state is persisted
type StorageConfig struct {
	Driver    string `yaml:"driver"` // file, postgres or memory
	StateFile string `yaml:"state_file"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// AssetsConfig selects where selfies and media are stored
type AssetsConfig struct {
	Driver         string `yaml:"driver"` // local or s3
	LocalDir       string `yaml:"local_dir"`
	MediaURLPrefix string `yaml:"media_url_prefix"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region    string `yaml:"region"`
	S3Bucket  string `yaml:"s3_bucket"`
	S3Prefix  string `yaml:"s3_prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`
}

// TwilioConfig holds the message transport credentials. Notifications
// are only logged when AccountSID is empty.
type TwilioConfig struct {
	AccountSID   string `yaml:"account_sid"`
	AuthToken    string `yaml:"auth_token"`
	BaseURL      string `yaml:"base_url"`
	SMSFrom      string `yaml:"sms_from"`
	WhatsAppFrom string `yaml:"whatsapp_from"`
}

// NotifyConfig holds the channel rule and message templates
type NotifyConfig struct {
	RichPrefix       string `yaml:"rich_prefix"`
	SMSTemplate      string `yaml:"sms_template"`
	WhatsAppTemplate string `yaml:"whatsapp_template"`
}

// FaceMatchConfig selects the face recognition provider
type FaceMatchConfig struct {
	Driver         string `yaml:"driver"` // none, sample or http
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	SampleMax      int    `yaml:"sample_max"`
}

// GalleryConfig holds attendee-facing URLs and defaults
type GalleryConfig struct {
	BaseURL               string `yaml:"base_url"`
	DefaultExpirationDays int    `yaml:"default_expiration_days"`
}

// AuthConfig holds the dashboard accounts and token signing secret
type AuthConfig struct {
	Secret string      `yaml:"secret"`
	Admins []AdminUser `yaml:"admins"`
}

// AdminUser is a dashboard account
type AdminUser struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Storage: StorageConfig{
			Driver:    "file",
			StateFile: "data/state.json",
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "gallery",
			DBName:  "gallery",
			SSLMode: "disable",
		},
		Assets: AssetsConfig{
			Driver:         "local",
			LocalDir:       "uploads",
			MediaURLPrefix: "/api/media",
			MaxUploadBytes: 200 << 20,
		},
		AWS: AWSConfig{Region: "us-east-1"},
		Notify: NotifyConfig{
			RichPrefix: "+55",
		},
		FaceMatch: FaceMatchConfig{
			Driver:         "none",
			TimeoutSeconds: 30,
			SampleMax:      2,
		},
		Gallery: GalleryConfig{
			BaseURL:               "http://localhost:3000",
			DefaultExpirationDays: 30,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file on top of the defaults,
// then applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the config file location, honouring CONFIG_PATH
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

// applyEnv lets secrets stay out of the config file
func (c *Config) applyEnv() {
	setFromEnv(&c.Auth.Secret, "AUTH_SECRET")
	setFromEnv(&c.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	setFromEnv(&c.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	setFromEnv(&c.AWS.AccessKey, "AWS_ACCESS_KEY_ID")
	setFromEnv(&c.AWS.SecretKey, "AWS_SECRET_ACCESS_KEY")
	setFromEnv(&c.Database.Password, "DATABASE_PASSWORD")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks the driver selections
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "file", "postgres", "memory":
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}
	switch c.Assets.Driver {
	case "local", "s3":
	default:
		return fmt.Errorf("unsupported assets driver: %s", c.Assets.Driver)
	}
	if c.Assets.Driver == "s3" && c.AWS.S3Bucket == "" {
		return fmt.Errorf("aws.s3_bucket is required for the s3 assets driver")
	}
	switch c.FaceMatch.Driver {
	case "none", "sample", "http":
	default:
		return fmt.Errorf("unsupported face_match driver: %s", c.FaceMatch.Driver)
	}
	if c.FaceMatch.Driver == "http" && c.FaceMatch.Endpoint == "" {
		return fmt.Errorf("face_match.endpoint is required for the http driver")
	}
	if c.Gallery.DefaultExpirationDays <= 0 {
		return fmt.Errorf("gallery.default_expiration_days must be positive")
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
