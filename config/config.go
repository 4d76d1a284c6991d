// Package config loads the server settings once at startup from flags,
// environment variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"mcap-navigator/scan"
)

// DefaultViewerURL is the Lichtblick base used when neither --viewer-url
// nor LICHTBLICK_URL is set. Override at build time with
// -ldflags "-X mcap-navigator/config.DefaultViewerURL=https://...".
var DefaultViewerURL = "/lichtblick"

const (
	DefaultRoot      = "mcap-data"
	DefaultPort      = 3100
	DefaultUploadDir = "./uploads"
)

var (
	ErrInvalidPort = errors.New("port must be between 1 and 65535")
	ErrEmptyRoot   = errors.New("root directory must not be empty")
)

// Config is the immutable server configuration. Paths are absolute.
type Config struct {
	Root           string
	Port           int
	ViewerURL      string
	Extension      string
	StrictSymlinks bool
	Watch          bool
	Write          bool
	UploadDir      string
	StateDB        string
	LogLevel       string
	Pretty         bool
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// setting ties a viper key to its flag and environment variable.
type setting struct {
	key  string
	flag string
	env  string
}

var settings = []setting{
	{"root", "root", "MCAP_ROOT"},
	{"port", "port", "PORT"},
	{"viewer_url", "viewer-url", "LICHTBLICK_URL"},
	{"extension", "extension", "MCAP_EXTENSION"},
	{"strict_symlinks", "strict-symlinks", "MCAP_STRICT_SYMLINKS"},
	{"watch", "watch", "MCAP_WATCH"},
	{"write", "write", "MCAP_WRITE"},
	{"upload_dir", "upload-dir", "MCAP_UPLOAD_DIR"},
	{"state_db", "state-db", "MCAP_STATE_DB"},
	{"log_level", "log-level", "LOG_LEVEL"},
	{"pretty", "pretty", "LOG_PRETTY"},
}

// NewFlagSet declares every command line flag understood by Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Path to a YAML/TOML/JSON config file (optional)")
	fs.Bool("version", false, "Show version information and exit")
	fs.String("root", DefaultRoot, "Directory holding the recordings")
	fs.Int("port", DefaultPort, "Port to listen on")
	fs.String("viewer-url", DefaultViewerURL, "Base URL of the embedded Lichtblick viewer")
	fs.String("extension", scan.DefaultExtension, "Recording file extension to list")
	fs.Bool("strict-symlinks", false, "Reject file requests whose symlinks resolve outside the root")
	fs.Bool("watch", false, "Watch the root and tell open pages when the tree changed")
	fs.Bool("write", false, "Enable write mode (allows recording uploads)")
	fs.String("upload-dir", DefaultUploadDir, "Staging directory for uploads in write mode")
	fs.String("state-db", "", "bbolt file persisting UI sessions (default: in memory)")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.Bool("pretty", false, "Human readable console logs instead of JSON")
	return fs
}

// Load resolves the configuration from parsed flags, the environment and
// the optional --config file, in that order of precedence.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetDefault("root", DefaultRoot)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("viewer_url", DefaultViewerURL)
	v.SetDefault("extension", scan.DefaultExtension)
	v.SetDefault("upload_dir", DefaultUploadDir)
	v.SetDefault("log_level", "info")

	for _, s := range settings {
		if err := v.BindEnv(s.key, s.env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", s.env, err)
		}
		if fs == nil {
			continue
		}
		if f := fs.Lookup(s.flag); f != nil {
			if err := v.BindPFlag(s.key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag --%s: %w", s.flag, err)
			}
		}
	}

	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := Config{
		Root:           v.GetString("root"),
		Port:           v.GetInt("port"),
		ViewerURL:      v.GetString("viewer_url"),
		Extension:      normalizeExtension(v.GetString("extension")),
		StrictSymlinks: v.GetBool("strict_symlinks"),
		Watch:          v.GetBool("watch"),
		Write:          v.GetBool("write"),
		UploadDir:      v.GetString("upload_dir"),
		StateDB:        v.GetString("state_db"),
		LogLevel:       v.GetString("log_level"),
		Pretty:         v.GetBool("pretty"),
	}
	return cfg.resolve()
}

func (c Config) resolve() (Config, error) {
	if c.Port < 1 || c.Port > 65535 {
		return Config{}, fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	if strings.TrimSpace(c.Root) == "" {
		return Config{}, ErrEmptyRoot
	}

	root, err := filepath.Abs(c.Root)
	if err != nil {
		return Config{}, fmt.Errorf("invalid root path: %w", err)
	}
	c.Root = root

	uploadDir, err := filepath.Abs(c.UploadDir)
	if err != nil {
		return Config{}, fmt.Errorf("invalid upload dir: %w", err)
	}
	c.UploadDir = uploadDir

	if c.StateDB != "" {
		if c.StateDB, err = filepath.Abs(c.StateDB); err != nil {
			return Config{}, fmt.Errorf("invalid state db path: %w", err)
		}
	}
	if c.ViewerURL == "" {
		c.ViewerURL = DefaultViewerURL
	}
	return c, nil
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return scan.DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
