package config

import (
	"os"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type SystemConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
}

type WebConfig struct {
	Host      string        `yaml:"host" json:"host"`
	Port      int           `yaml:"port" json:"port"`
	Secret    string        `yaml:"secret" json:"secret"`
	JwtExpiry time.Duration `yaml:"jwt_expiry" json:"jwt_expiry"`
}

type DBConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type LoggerConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type SmtpConfig struct {
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	User   string `yaml:"user" json:"user"`
	Passwd string `yaml:"passwd" json:"passwd"`
	From   string `yaml:"from" json:"from"`
	// To receives one message per confirmed catalog mutation.
	To string `yaml:"to" json:"to"`
}

type CatalogConfig struct {
	// PlaceholderImage is written to created products that carry no image.
	PlaceholderImage string `yaml:"placeholder_image" json:"placeholder_image"`
	SeedSamples      bool   `yaml:"seed_samples" json:"seed_samples"`
	WebhookURL       string `yaml:"webhook_url" json:"webhook_url"`
}

type AppConfig struct {
	System   SystemConfig  `yaml:"system" json:"system"`
	Web      WebConfig     `yaml:"web" json:"web"`
	Database DBConfig      `yaml:"database" json:"database"`
	Logger   LoggerConfig  `yaml:"logger" json:"logger"`
	Smtp     SmtpConfig    `yaml:"smtp" json:"smtp"`
	Catalog  CatalogConfig `yaml:"catalog" json:"catalog"`
}

var DefaultAppConfig = AppConfig{
	System: SystemConfig{
		Appid:    "catalogd",
		Location: "America/Argentina/Buenos_Aires",
		Workdir:  "/var/catalogd",
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1816,
		Secret:    "9b6de5cc-catalogd-0768-4bdb-9331-4b9f683ea722",
		JwtExpiry: 24 * time.Hour,
	},
	Database: DBConfig{
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "catalogd",
		User:     "postgres",
		Passwd:   "",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LoggerConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/catalogd/catalogd.log",
	},
	Smtp: SmtpConfig{
		Port: 587,
	},
	Catalog: CatalogConfig{
		PlaceholderImage: "https://images.unsplash.com/photo-1542838132-92c53300491e?w=400",
		SeedSamples:      false,
	},
}

func setEnvValue(name string, f func(v string)) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		f(v)
	}
}

// LoadConfig reads the yaml file when present and applies environment
// overrides on top. A missing file yields the defaults.
func LoadConfig(cfile string) *AppConfig {
	cfg := DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			_ = yaml.Unmarshal(data, &cfg)
		}
	}

	setEnvValue("CATALOGD_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue("CATALOGD_WEB_HOST", func(v string) { cfg.Web.Host = v })
	setEnvValue("CATALOGD_WEB_PORT", func(v string) { cfg.Web.Port = cast.ToInt(v) })
	setEnvValue("CATALOGD_WEB_SECRET", func(v string) { cfg.Web.Secret = v })
	setEnvValue("CATALOGD_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvValue("CATALOGD_DB_PORT", func(v string) { cfg.Database.Port = cast.ToInt(v) })
	setEnvValue("CATALOGD_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("CATALOGD_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("CATALOGD_DB_PWD", func(v string) { cfg.Database.Passwd = v })
	setEnvValue("CATALOGD_DB_DEBUG", func(v string) { cfg.Database.Debug = cast.ToBool(v) })
	setEnvValue("CATALOGD_SMTP_HOST", func(v string) { cfg.Smtp.Host = v })
	setEnvValue("CATALOGD_SMTP_PORT", func(v string) { cfg.Smtp.Port = cast.ToInt(v) })
	setEnvValue("CATALOGD_SMTP_USER", func(v string) { cfg.Smtp.User = v })
	setEnvValue("CATALOGD_SMTP_PWD", func(v string) { cfg.Smtp.Passwd = v })
	setEnvValue("CATALOGD_SMTP_FROM", func(v string) { cfg.Smtp.From = v })
	setEnvValue("CATALOGD_SMTP_TO", func(v string) { cfg.Smtp.To = v })
	setEnvValue("CATALOGD_LOGGER_MODE", func(v string) { cfg.Logger.Mode = v })
	setEnvValue("CATALOGD_LOGGER_FILE_ENABLE", func(v string) { cfg.Logger.FileEnable = cast.ToBool(v) })
	setEnvValue("CATALOGD_CATALOG_PLACEHOLDER_IMAGE", func(v string) { cfg.Catalog.PlaceholderImage = v })
	setEnvValue("CATALOGD_CATALOG_SEED_SAMPLES", func(v string) { cfg.Catalog.SeedSamples = cast.ToBool(v) })
	setEnvValue("CATALOGD_CATALOG_WEBHOOK_URL", func(v string) { cfg.Catalog.WebhookURL = v })

	return &cfg
}
