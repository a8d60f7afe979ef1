package core

import (
	"fmt"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Build            string
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendURL      string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridApiKey   string
		Server           ServerConfig
		Database         DatabaseConfig
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
		LoginRateLimit            float64 // requests per second per IP
		Tracing                   bool
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite3
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite3 only
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, strconv.Itoa(dbc.Port))
}

// NewConfig loads the configuration from `config/.env.<env>` (if present) and the environment.
// Environment variables are prefixed with the ENV name, eg. `PROD_DATABASE_HOST`.
func NewConfig() (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v := viper.New()
	setDefaults(v, env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return configFromViper(v, env)
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Darasa")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "kf8-wxd)enb$+29=dq&uoab2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Darasa <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("server.loginRateLimit", 5.0)
	v.SetDefault("server.tracing", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "darasa")
	v.SetDefault("database.user", "darasa")
	v.SetDefault("database.password", "darasa")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")
	v.SetDefault("database.path", "darasa.db")
}

func configFromViper(v *viper.Viper, env string) (*Config, error) {
	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing defaultFromEmail")
	}

	conf := &Config{
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		FrontendURL:      strings.TrimSuffix(v.GetString("frontendURL"), "/"),
		DefaultFromEmail: *from,
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Addr:                      v.GetString("server.addr"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: v.GetDuration("server.passwordResetTimeoutDelta"),
			LoginRateLimit:            v.GetFloat64("server.loginRateLimit"),
			Tracing:                   v.GetBool("server.tracing"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
	}

	switch conf.Database.Engine {
	case "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported database engine %q", conf.Database.Engine)
	}
	if !conf.Debug && len(conf.SecretKey) < 32 {
		return nil, errors.New("secretKey must contain at least 32 characters")
	}
	return conf, nil
}
