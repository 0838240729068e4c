package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/aicheck/internal/logger"
	"github.com/nkiryanov/aicheck/internal/service/copyleaks"
)

const (
	defaultListenAddr   = "localhost:5000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultTokenFile    = "auth_token.json"
	defaultTimeout      = 30 * time.Second
)

type Config struct {
	// Copyleaks account to login with
	Email  string `validate:"required,email"`
	APIKey string `validate:"required"`

	// Default logging level
	LogLevel string `validate:"oneof=debug info warn error"`

	// Address on which the service will be run
	ListenAddr string `validate:"required"`

	// Environment
	Environment string `validate:"oneof=dev prod"`

	// File the access token is persisted to, ignored when DatabaseDSN is set
	TokenFile string

	// Secret key
	// When set the token file is encrypted with it
	SecretKey string

	// Database to persist the access token to
	DatabaseDSN string

	// Copyleaks endpoints
	IdentityURL string `validate:"required,url"`
	APIURL      string `validate:"required,url"`

	// Submit scans in sandbox mode: not charged, results are mocked
	Sandbox bool

	// Timeout of every outbound request
	Timeout time.Duration `validate:"gt=0"`
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		ListenAddr:  defaultListenAddr,
		Environment: defaultEnvironment,
		TokenFile:   defaultTokenFile,
		IdentityURL: copyleaks.DefaultIdentityURL,
		APIURL:      copyleaks.DefaultAPIURL,
		Timeout:     defaultTimeout,
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
	setBool := func(o *bool) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*o = b
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"COPYLEAKS_EMAIL":        setString(&c.Email),
		"COPYLEAKS_API_KEY":      setString(&c.APIKey),
		"RUN_ADDRESS":            setString(&c.ListenAddr),
		"LOG_LEVEL":              setString(&c.LogLevel),
		"ENVIRONMENT":            setString(&c.Environment),
		"TOKEN_FILE":             setString(&c.TokenFile),
		"SECRET_KEY":             setString(&c.SecretKey),
		"DATABASE_URI":           setString(&c.DatabaseDSN),
		"COPYLEAKS_IDENTITY_URL": setString(&c.IdentityURL),
		"COPYLEAKS_API_URL":      setString(&c.APIURL),
		"COPYLEAKS_SANDBOX":      setBool(&c.Sandbox),
		"REQUEST_TIMEOUT":        setDuration(&c.Timeout),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("aicheck", pflag.ContinueOnError)

	fs.StringVar(&c.Email, "email", c.Email, "Copyleaks account email")
	fs.StringVar(&c.APIKey, "api-key", c.APIKey, "Copyleaks API key")
	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.TokenFile, "token-file", c.TokenFile, "File to persist the access token to")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key to encrypt the token file with")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string, replaces the token file")
	fs.StringVar(&c.IdentityURL, "identity-url", c.IdentityURL, "Copyleaks identity service URL")
	fs.StringVar(&c.APIURL, "api-url", c.APIURL, "Copyleaks API URL")
	fs.BoolVar(&c.Sandbox, "sandbox", c.Sandbox, "Submit scans in sandbox mode")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "Timeout of requests to Copyleaks")

	return fs.Parse(args)
}

// Validate reports missing or malformed options
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
