// Package config loads the server and CLI settings from config.yaml, a .env
// file and TNR_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/tnr/internal/attachments"
	"github.com/mesh-intelligence/tnr/internal/auth"
	"github.com/mesh-intelligence/tnr/internal/paths"
	"github.com/mesh-intelligence/tnr/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// EnvPrefix is prepended to every key when read from the environment.
	EnvPrefix = "TNR"
)

// Config keys.
const (
	KeyBackend        = "backend"
	KeyDataDir        = "data_dir"
	KeyMySQLDSN       = "mysql_dsn"
	KeyListenAddr     = "listen_addr"
	KeyUploadsDir     = "uploads_dir"
	KeyStaticDir      = "static_dir"
	KeySessionTTL     = "session_ttl"
	KeyCookieSecure   = "cookie_secure"
	KeyMaxUploadBytes = "max_upload_bytes"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"
	KeyGoogleClientID = "google.client_id"
	KeyGoogleSecret   = "google.client_secret"
	KeyGoogleRedirect = "google.redirect_url"
	KeyGoogleIssuer   = "google.issuer"
)

// DefaultListenAddr is the HTTP address used when none is configured.
const DefaultListenAddr = ":8080"

// DefaultConfigYAML is written to config.yaml on first run.
const DefaultConfigYAML = `# TNR manager configuration

# Storage backend: sqlite or mysql
backend: sqlite

# Data directory for the SQLite database and uploads (overridable by --data-dir)
# data_dir:

# MySQL DSN; alternatively set DB_HOST, DB_PORT, DB_USERNAME, DB_PASSWORD, DB_DATABASE
# mysql_dsn:

listen_addr: ":8080"
# uploads_dir:
# static_dir: web/dist
session_ttl: 168h
cookie_secure: false
max_upload_bytes: 10485760

log:
  level: info
  format: text

google:
  client_id: ""
  client_secret: ""
  redirect_url: ""
  issuer: https://accounts.google.com
`

// Settings is the resolved configuration of one process.
type Settings struct {
	ConfigDir      string
	DataDir        string
	UploadsDir     string
	StaticDir      string
	Backend        string
	MySQLDSN       string
	ListenAddr     string
	SessionTTL     time.Duration
	CookieSecure   bool
	MaxUploadBytes int64
	LogLevel       string
	LogFormat      string
	Google         auth.GoogleConfig
}

// Options carries the command-line overrides for Load.
type Options struct {
	ConfigDir string
	DataDir   string
	// EnvFile is the dotenv file loaded before reading the environment.
	// Empty means ".env" in the working directory.
	EnvFile string
}

// StoreConfig returns the parameters for store.Backend.Attach.
func (s *Settings) StoreConfig() types.Config {
	return types.Config{
		Backend: s.Backend,
		DataDir: s.DataDir,
		DSN:     s.MySQLDSN,
	}
}

// Load resolves the config directory, writes a default config.yaml when
// none exists, and reads the settings. A missing config.yaml is not an
// error. Environment variables override file values, except for the data
// and uploads directories where config.yaml wins.
func Load(opts Options) (*Settings, error) {
	configDir, err := paths.ResolveConfigDir(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	if err := EnsureDefaultFile(configDir); err != nil {
		return nil, err
	}

	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := newViper(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// Directories rank config.yaml above TNR_* variables, so they are read
	// from the file alone and paths consults the environment after them.
	fileOnly, err := fileValues(v.ConfigFileUsed())
	if err != nil {
		return nil, err
	}
	dataDir, err := paths.ResolveDataDir(opts.DataDir, fileOnly.GetString(KeyDataDir))
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	uploadsDir, err := paths.ResolveUploadsDir(fileOnly.GetString(KeyUploadsDir), dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads dir: %w", err)
	}

	s := &Settings{
		ConfigDir:      configDir,
		DataDir:        dataDir,
		UploadsDir:     uploadsDir,
		StaticDir:      v.GetString(KeyStaticDir),
		Backend:        strings.ToLower(strings.TrimSpace(v.GetString(KeyBackend))),
		MySQLDSN:       v.GetString(KeyMySQLDSN),
		ListenAddr:     v.GetString(KeyListenAddr),
		SessionTTL:     v.GetDuration(KeySessionTTL),
		CookieSecure:   v.GetBool(KeyCookieSecure),
		MaxUploadBytes: v.GetInt64(KeyMaxUploadBytes),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
		Google: auth.GoogleConfig{
			ClientID:     v.GetString(KeyGoogleClientID),
			ClientSecret: v.GetString(KeyGoogleSecret),
			RedirectURL:  v.GetString(KeyGoogleRedirect),
			Issuer:       v.GetString(KeyGoogleIssuer),
		},
	}
	if s.MySQLDSN == "" && s.Backend == types.BackendMySQL {
		s.MySQLDSN = MySQLDSNFromEnv()
	}
	if s.SessionTTL <= 0 {
		s.SessionTTL = auth.DefaultSessionTTL
	}
	if s.MaxUploadBytes <= 0 {
		s.MaxUploadBytes = attachments.DefaultMaxSize
	}
	if s.StaticDir != "" {
		if s.StaticDir, err = filepath.Abs(s.StaticDir); err != nil {
			return nil, fmt.Errorf("resolve static dir: %w", err)
		}
	}
	return s, nil
}

func newViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyBackend, types.BackendSQLite)
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyMySQLDSN, "")
	v.SetDefault(KeyListenAddr, DefaultListenAddr)
	v.SetDefault(KeyUploadsDir, "")
	v.SetDefault(KeyStaticDir, "")
	v.SetDefault(KeySessionTTL, auth.DefaultSessionTTL)
	v.SetDefault(KeyCookieSecure, false)
	v.SetDefault(KeyMaxUploadBytes, attachments.DefaultMaxSize)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyGoogleClientID, "")
	v.SetDefault(KeyGoogleSecret, "")
	v.SetDefault(KeyGoogleRedirect, "")
	v.SetDefault(KeyGoogleIssuer, auth.DefaultGoogleIssuer)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	return v
}

// fileValues reads the config file at path into a viper instance without
// environment lookups. An empty path yields an empty instance.
func fileValues(path string) (*viper.Viper, error) {
	fv := viper.New()
	if path == "" {
		return fv, nil
	}
	fv.SetConfigFile(path)
	if err := fv.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return fv, nil
}

// loadEnvFile loads a dotenv file without overriding variables already set.
// A missing file is ignored.
func loadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// EnsureDefaultFile creates configDir and writes DefaultConfigYAML to
// config.yaml if the file does not exist yet.
func EnsureDefaultFile(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(DefaultConfigYAML), 0o644)
}

// MySQLDSNFromEnv assembles a DSN from DB_HOST, DB_PORT, DB_USERNAME,
// DB_PASSWORD and DB_DATABASE. It returns "" when DB_HOST is unset.
func MySQLDSNFromEnv() string {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "3306"
	}

	cfg := mysql.NewConfig()
	cfg.User = os.Getenv("DB_USERNAME")
	cfg.Passwd = os.Getenv("DB_PASSWORD")
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = os.Getenv("DB_DATABASE")
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}
