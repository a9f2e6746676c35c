package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	serverConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
		AccessTokenTTL  time.Duration
		RefreshTokenTTL time.Duration
		CORSOrigins     []string
		CookieSecure    bool
		CookieSameSite  string
		ThrottleWindow  time.Duration
		StaticDir       string
	}

	dbConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	redisConfig struct {
		Addr     string
		Password string
		DB       int
		StatsTTL time.Duration
	}

	adminConfig struct {
		Username string
		Password string
		Email    string
		FullName string
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		WorkDir          string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		DefaultFromEmail mail.Address
		ReminderSchedule string

		Server   serverConfig
		Database dbConfig
		Redis    redisConfig
		Admin    adminConfig
	}
)

func (c dbConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewConfig reads the configuration from defaults, the optional config/.env.<env> file
// and the environment, in increasing order of precedence.
func NewConfig() *Config {
	vpr := viper.New()

	// defaults
	vpr.SetTypeByDefaultValue(true)
	vpr.SetDefault("debug", true)
	vpr.SetDefault("testMode", false)
	vpr.SetDefault("appName", "ProfPay")
	vpr.SetDefault("build", "dev")
	vpr.SetDefault("secretKey", "change-me-nf2$k0v=ub8r!x4q+z7m@pa9(ty6hd3w")
	vpr.SetDefault("frontendBaseURL", "http://localhost:5173")
	vpr.SetDefault("rollbarToken", "")
	vpr.SetDefault("sendgridApiKey", "")
	vpr.SetDefault("defaultFromEmail", "ProfPay <noreply@localhost>")
	vpr.SetDefault("reminderSchedule", "")

	vpr.SetDefault("server.host", "localhost")
	vpr.SetDefault("server.address", ":8000")
	vpr.SetDefault("server.debugHost", ":4000")
	vpr.SetDefault("server.shutdownTimeout", 5*time.Second)
	vpr.SetDefault("server.accessTokenTTL", 60*time.Minute)
	vpr.SetDefault("server.refreshTokenTTL", 7*24*time.Hour)
	vpr.SetDefault("server.corsOrigins", "http://localhost:5173,http://localhost:3000")
	vpr.SetDefault("server.cookieSecure", false)
	vpr.SetDefault("server.cookieSameSite", "lax")
	vpr.SetDefault("server.throttleWindow", 300*time.Millisecond)
	vpr.SetDefault("server.staticDir", "")

	vpr.SetDefault("database.engine", "postgres")
	vpr.SetDefault("database.host", "localhost")
	vpr.SetDefault("database.port", 5432)
	vpr.SetDefault("database.name", "profpay")
	vpr.SetDefault("database.user", "profpay")
	vpr.SetDefault("database.password", "profpay")
	vpr.SetDefault("database.adminUser", "")
	vpr.SetDefault("database.adminPassword", "")
	vpr.SetDefault("database.disableTLS", true)

	vpr.SetDefault("redis.addr", "")
	vpr.SetDefault("redis.password", "")
	vpr.SetDefault("redis.db", 0)
	vpr.SetDefault("redis.statsTTL", time.Minute)

	vpr.SetDefault("admin.username", "admin")
	vpr.SetDefault("admin.password", "admin123")
	vpr.SetDefault("admin.email", "admin@profpay.local")
	vpr.SetDefault("admin.fullName", "Administrator")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		vpr.SetDefault("testMode", true)
	}
	vpr.SetEnvPrefix(env)
	vpr.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	vpr.AutomaticEnv()

	conf := &Config{
		Env:              env,
		Build:            vpr.GetString("build"),
		Debug:            vpr.GetBool("debug"),
		TestMode:         vpr.GetBool("testMode"),
		AppName:          vpr.GetString("appName"),
		SecretKey:        vpr.GetString("secretKey"),
		WorkDir:          wd,
		FrontendBaseURL:  vpr.GetString("frontendBaseURL"),
		RollbarToken:     vpr.GetString("rollbarToken"),
		SendgridApiKey:   vpr.GetString("sendgridApiKey"),
		ReminderSchedule: vpr.GetString("reminderSchedule"),
		Server: serverConfig{
			Host:            vpr.GetString("server.host"),
			Address:         vpr.GetString("server.address"),
			DebugHost:       vpr.GetString("server.debugHost"),
			ShutdownTimeout: vpr.GetDuration("server.shutdownTimeout"),
			AccessTokenTTL:  vpr.GetDuration("server.accessTokenTTL"),
			RefreshTokenTTL: vpr.GetDuration("server.refreshTokenTTL"),
			CORSOrigins:     splitList(vpr.GetString("server.corsOrigins")),
			CookieSecure:    vpr.GetBool("server.cookieSecure"),
			CookieSameSite:  vpr.GetString("server.cookieSameSite"),
			ThrottleWindow:  vpr.GetDuration("server.throttleWindow"),
			StaticDir:       vpr.GetString("server.staticDir"),
		},
		Database: dbConfig{
			Engine:        vpr.GetString("database.engine"),
			Host:          vpr.GetString("database.host"),
			Port:          vpr.GetInt("database.port"),
			Name:          vpr.GetString("database.name"),
			User:          vpr.GetString("database.user"),
			Password:      vpr.GetString("database.password"),
			AdminUser:     vpr.GetString("database.adminUser"),
			AdminPassword: vpr.GetString("database.adminPassword"),
			DisableTLS:    vpr.GetBool("database.disableTLS"),
		},
		Redis: redisConfig{
			Addr:     vpr.GetString("redis.addr"),
			Password: vpr.GetString("redis.password"),
			DB:       vpr.GetInt("redis.db"),
			StatsTTL: vpr.GetDuration("redis.statsTTL"),
		},
		Admin: adminConfig{
			Username: vpr.GetString("admin.username"),
			Password: vpr.GetString("admin.password"),
			Email:    vpr.GetString("admin.email"),
			FullName: vpr.GetString("admin.fullName"),
		},
	}

	from, err := mail.ParseAddress(vpr.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}
	conf.DefaultFromEmail = *from
	return conf
}

// NewTestConfig returns the configuration used by tests: no .env lookup, no external services.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          "ProfPay",
		SecretKey:        "test-secret",
		WorkDir:          Getwd(),
		FrontendBaseURL:  "http://localhost:5173",
		DefaultFromEmail: mail.Address{Name: "ProfPay", Address: "noreply@localhost"},
		Server: serverConfig{
			Host:            "localhost",
			ShutdownTimeout: time.Second,
			AccessTokenTTL:  60 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			CORSOrigins:     []string{"http://localhost:5173"},
			CookieSameSite:  "lax",
			ThrottleWindow:  300 * time.Millisecond,
		},
		Redis: redisConfig{StatsTTL: time.Minute},
		Admin: adminConfig{Username: "admin", Password: "admin123", Email: "admin@profpay.local", FullName: "Administrator"},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
