package core

import (
	"fmt"
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
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		Server       serverConfig
		Store        storeConfig
		Database     databaseConfig
		Admin        adminConfig
		Registration registrationConfig
		Sample       sampleConfig
	}

	serverConfig struct {
		Address         string
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
		SessionTTL      time.Duration
		CSRF            bool
	}

	storeConfig struct {
		Backend     string // memory | redis | postgres
		RedisAddr   string
		RedisPrefix string
	}

	databaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	adminConfig struct {
		Username string
		Password string
	}

	registrationConfig struct {
		// AllowUpdate makes a registration with a known MSSV replace the existing record.
		AllowUpdate bool
	}

	sampleConfig struct {
		Rooms      int
		Facilities []string
		MaxCount   int
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

func (dc databaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` and the environment.
// ENV selects the environment: DEV (default), TEST, QA, PROD.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "develop")
	conf.SetDefault("appName", "KTX")
	conf.SetDefault("secretKey", "f0x8-kq2)tu$+13=lm&dorm(ktx)#*b9(#zz4h^$aqe1")
	conf.SetDefault("frontendBaseURL", "http://localhost:8000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")

	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.sessionTTL", 30*24*time.Hour)
	conf.SetDefault("server.csrf", true)

	conf.SetDefault("store.backend", "memory")
	conf.SetDefault("store.redisAddr", "localhost:6379")
	conf.SetDefault("store.redisPrefix", "ktx:")

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "ktx")
	conf.SetDefault("database.user", "ktx")
	conf.SetDefault("database.password", "ktx")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("admin.username", "admin")
	conf.SetDefault("admin.password", "admin123")

	conf.SetDefault("registration.allowUpdate", true)

	conf.SetDefault("sample.rooms", 5)
	conf.SetDefault("sample.facilities", []string{"Bed", "Wardrobe", "Desk", "Chair", "Fan"})
	conf.SetDefault("sample.maxCount", 4)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	conf.Set("env", env)
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            conf.GetString("build"),
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		RollbarToken:     conf.GetString("rollbarToken"),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		defaultFromEmail: conf.GetString("defaultFromEmail"),
		Server: serverConfig{
			Address:         conf.GetString("server.address"),
			Host:            conf.GetString("server.host"),
			DebugHost:       conf.GetString("server.debugHost"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
			SessionTTL:      conf.GetDuration("server.sessionTTL"),
			CSRF:            conf.GetBool("server.csrf"),
		},
		Store: storeConfig{
			Backend:     strings.ToLower(conf.GetString("store.backend")),
			RedisAddr:   conf.GetString("store.redisAddr"),
			RedisPrefix: conf.GetString("store.redisPrefix"),
		},
		Database: databaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Admin: adminConfig{
			Username: conf.GetString("admin.username"),
			Password: conf.GetString("admin.password"),
		},
		Registration: registrationConfig{
			AllowUpdate: conf.GetBool("registration.allowUpdate"),
		},
		Sample: sampleConfig{
			Rooms:      conf.GetInt("sample.rooms"),
			Facilities: conf.GetStringSlice("sample.facilities"),
			MaxCount:   conf.GetInt("sample.maxCount"),
		},
	}
}

// String is used when logging the configuration at startup; secrets are left out.
func (c *Config) String() string {
	return fmt.Sprintf(
		"env=%s build=%s debug=%v addr=%s store=%s allowUpdate=%v",
		c.Env, c.Build, c.Debug, c.Server.Address, c.Store.Backend, c.Registration.AllowUpdate,
	)
}
