package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/shortener/internal/logger"
)

const (
	defaultListenAddr       = "localhost:8000"
	defaultLoggingLevel     = logger.LevelInfo
	defaultEnvironment      = logger.EnvProduction
	defaultAuthRateLimitRPM = 20
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to: postgres://... or sqlite://path/to/file.db
	DatabaseDSN string

	// Environment: dev renders error details to clients and logs text, prod does not and logs JSON
	Environment string

	// Token secrets and lifetimes. Required, no defaults
	AccessTokenSecret  string
	AccessTokenTTL     time.Duration
	RefreshTokenSecret string
	RefreshTokenTTL    time.Duration

	// Cookie names. Required, no defaults
	AccessCookieName  string
	RefreshCookieName string

	// Origins allowed to call the API with cookies
	CORSOrigins []string

	// Login and register requests per minute per client IP; 0 disables limiting
	AuthRateLimitRPM int
}

func NewConfig() *Config {
	return &Config{
		LogLevel:         defaultLoggingLevel,
		ListenAddr:       defaultListenAddr,
		Environment:      defaultEnvironment,
		AuthRateLimitRPM: defaultAuthRateLimitRPM,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}

	// Lifetimes are set in whole seconds
	setSeconds := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			seconds, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("expected number of seconds, got %q", value)
			}
			*o = time.Duration(seconds) * time.Second
			return nil
		}
	}

	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("expected integer, got %q", value)
			}
			*o = n
			return nil
		}
	}

	setList := func(o *[]string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = splitList(value)
			}
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":               setString(&c.ListenAddr),
		"DATABASE_URI":              setString(&c.DatabaseDSN),
		"LOG_LEVEL":                 setString(&c.LogLevel),
		"ENVIRONMENT":               setString(&c.Environment),
		"ACCESS_TOKEN_SECRET":       setString(&c.AccessTokenSecret),
		"ACCESS_TOKEN_EXPIRY":       setSeconds(&c.AccessTokenTTL),
		"REFRESH_TOKEN_SECRET":      setString(&c.RefreshTokenSecret),
		"REFRESH_TOKEN_EXPIRY":      setSeconds(&c.RefreshTokenTTL),
		"ACCESS_TOKEN_COOKIE_NAME":  setString(&c.AccessCookieName),
		"REFRESH_TOKEN_COOKIE_NAME": setString(&c.RefreshCookieName),
		"CORS_ORIGINS":              setList(&c.CORSOrigins),
		"AUTH_RATE_LIMIT_RPM":       setInt(&c.AuthRateLimitRPM),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("shortener", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string (postgres://... or sqlite://file.db)")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.AccessTokenSecret, "access-secret", c.AccessTokenSecret, "Access token secret")
	fs.DurationVar(&c.AccessTokenTTL, "access-ttl", c.AccessTokenTTL, "Access token lifetime")
	fs.StringVar(&c.RefreshTokenSecret, "refresh-secret", c.RefreshTokenSecret, "Refresh token secret")
	fs.DurationVar(&c.RefreshTokenTTL, "refresh-ttl", c.RefreshTokenTTL, "Refresh token lifetime")
	fs.StringVar(&c.AccessCookieName, "access-cookie", c.AccessCookieName, "Access token cookie name")
	fs.StringVar(&c.RefreshCookieName, "refresh-cookie", c.RefreshCookieName, "Refresh token cookie name")
	fs.StringSliceVar(&c.CORSOrigins, "cors-origins", c.CORSOrigins, "Origins allowed to call the API with cookies")
	fs.IntVar(&c.AuthRateLimitRPM, "auth-rate-limit", c.AuthRateLimitRPM, "Login and register requests per minute per client (0 disables)")

	return fs.Parse(args)
}

// Validate reports all missing or inconsistent options at once
func (c *Config) Validate() error {
	var missing []string
	required := []struct {
		key   string
		isSet bool
	}{
		{"ACCESS_TOKEN_SECRET", c.AccessTokenSecret != ""},
		{"ACCESS_TOKEN_EXPIRY", c.AccessTokenTTL != 0},
		{"REFRESH_TOKEN_SECRET", c.RefreshTokenSecret != ""},
		{"REFRESH_TOKEN_EXPIRY", c.RefreshTokenTTL != 0},
		{"ACCESS_TOKEN_COOKIE_NAME", c.AccessCookieName != ""},
		{"REFRESH_TOKEN_COOKIE_NAME", c.RefreshCookieName != ""},
		{"DATABASE_URI", c.DatabaseDSN != ""},
	}
	for _, r := range required {
		if !r.isSet {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required options: %s", strings.Join(missing, ", "))
	}

	var errs []error
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, errors.New("access and refresh token secrets must differ"))
	}
	if c.AccessTokenTTL < 0 || c.RefreshTokenTTL < 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	// Cookie Max-Age is in whole seconds
	if !wholeSeconds(c.AccessTokenTTL) || !wholeSeconds(c.RefreshTokenTTL) {
		errs = append(errs, errors.New("token lifetimes must be whole seconds"))
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		errs = append(errs, errors.New("refresh token must live at least as long as access token"))
	}
	if c.AccessCookieName == c.RefreshCookieName {
		errs = append(errs, errors.New("access and refresh cookie names must differ"))
	}
	if c.Environment != logger.EnvDevelopment && c.Environment != logger.EnvProduction {
		errs = append(errs, fmt.Errorf("environment must be %q or %q", logger.EnvDevelopment, logger.EnvProduction))
	}
	if c.AuthRateLimitRPM < 0 {
		errs = append(errs, errors.New("auth rate limit must not be negative"))
	}

	return errors.Join(errs...)
}

func wholeSeconds(d time.Duration) bool {
	return d <= 0 || d%time.Second == 0
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
