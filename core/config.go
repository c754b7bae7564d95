package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (default), TEST, QA, PROD
		Build    string
		AppName  string
		WorkDir  string

		SecretKey       string
		RollbarToken    string
		SendgridApiKey  string
		DefaultFromName string
		DefaultFromAddr string

		Server  ServerConfig
		Storage StorageConfig
	}

	ServerConfig struct {
		Host               string
		Port               string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	// StorageConfig selects and configures the snapshot backend.
	// Backend is one of: memory, file, redis, database.
	StorageConfig struct {
		Backend string

		FilePath string

		Redis struct {
			Addr     string
			Password string
			DB       int
		}

		Database struct {
			Engine     string
			Host       string
			Port       string
			User       string
			Password   string
			Name       string
			DisableTLS bool
		}
	}
)

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddr}
}

func (c StorageConfig) DatabaseAddress() string {
	return net.JoinHostPort(c.Database.Host, c.Database.Port)
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "ClassPulse")
	conf.SetDefault("secretKey", "v3ry-s3cr3t-k3y-ch4ng3-m3-1n-pr0d")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("defaultFromName", "ClassPulse")
	conf.SetDefault("defaultFromAddr", "noreply@localhost")

	conf.SetDefault("serverHost", "0.0.0.0")
	conf.SetDefault("serverPort", "8000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)

	conf.SetDefault("storageBackend", "file")
	conf.SetDefault("storageFilePath", "classpulse.json")
	conf.SetDefault("redisAddr", "127.0.0.1:6379")
	conf.SetDefault("redisPassword", "")
	conf.SetDefault("redisDB", 0)
	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbUser", "classpulse")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbName", "classpulse")
	conf.SetDefault("dbDisableTLS", true)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	c := &Config{
		Debug:           conf.GetBool("debug"),
		TestMode:        conf.GetBool("testMode"),
		Env:             env,
		Build:           conf.GetString("build"),
		AppName:         conf.GetString("appName"),
		WorkDir:         wd,
		SecretKey:       conf.GetString("secretKey"),
		RollbarToken:    conf.GetString("rollbarToken"),
		SendgridApiKey:  conf.GetString("sendgridApiKey"),
		DefaultFromName: conf.GetString("defaultFromName"),
		DefaultFromAddr: conf.GetString("defaultFromAddr"),
		Server: ServerConfig{
			Host:               conf.GetString("serverHost"),
			Port:               conf.GetString("serverPort"),
			ShutdownTimeout:    conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
		},
	}

	c.Storage.Backend = conf.GetString("storageBackend")
	c.Storage.FilePath = conf.GetString("storageFilePath")
	if !filepath.IsAbs(c.Storage.FilePath) {
		c.Storage.FilePath = filepath.Join(wd, c.Storage.FilePath)
	}
	c.Storage.Redis.Addr = conf.GetString("redisAddr")
	c.Storage.Redis.Password = conf.GetString("redisPassword")
	c.Storage.Redis.DB = conf.GetInt("redisDB")
	c.Storage.Database.Engine = conf.GetString("dbEngine")
	c.Storage.Database.Host = conf.GetString("dbHost")
	c.Storage.Database.Port = conf.GetString("dbPort")
	c.Storage.Database.User = conf.GetString("dbUser")
	c.Storage.Database.Password = conf.GetString("dbPassword")
	c.Storage.Database.Name = conf.GetString("dbName")
	c.Storage.Database.DisableTLS = conf.GetBool("dbDisableTLS")

	return c
}
