// internal/config/model.go
//
// Typed configuration model.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                          – dotenv values,
//   • `conf/global.yaml`                       – primary static file,
//   • `ZITEFY_`-prefixed environment overrides – highest precedence.
//
// Secret values may be written as `vault:<mount>/<path>#<key>`.
// ResolveSecrets swaps them for the plain value after Load.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml`
//     tags unless configured otherwise.
//   • Durations are Go duration strings ("90s", "1h").
//   • `Paths.Root` is filled at runtime; YAML must not try to set it.
//     Relative paths in the section resolve against it.

package config

import (
	"fmt"
	"strings"
	"time"
)

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"    validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	WriteTimeout time.Duration `koanf:"write_timeout"  validate:"gte=0"`
	MaxBodyBytes int64         `koanf:"max_body_bytes" validate:"gte=0"` // JSON request bodies
}

// Database holds the DSN template and its secret.
//
// The template is kept in YAML so operators can tweak host, port, or
// flags without touching Vault.  A `%s` verb in it receives Password.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
}

// ConnString returns the DSN with the password filled in.
func (d Database) ConnString() string {
	if strings.Contains(d.DSN, "%s") {
		return fmt.Sprintf(d.DSN, d.Password)
	}
	return d.DSN
}

// Paths locates the on-disk trees.
type Paths struct {
	Root         string `koanf:"-"` // ZITEFY_ROOT or discovered parent
	TemplateRoot string `koanf:"template_root" validate:"required"`
	SiteRoot     string `koanf:"site_root"     validate:"required"`
	ScratchRoot  string `koanf:"scratch_root"`  // os.TempDir() when empty
	DefaultData  string `koanf:"default_data"  validate:"required"`
}

// Render configures the external build and screenshot scripts.
type Render struct {
	BuildCmd      []string      `koanf:"build_cmd"      validate:"required,min=1"`
	ScreenshotCmd []string      `koanf:"screenshot_cmd" validate:"required,min=1"`
	MaxConcurrent int           `koanf:"max_concurrent" validate:"gte=0"` // NumCPU when 0
	Timeout       time.Duration `koanf:"timeout"        validate:"gte=0"`
}

// Sync configures the template synchronizer.
type Sync struct {
	Disabled    bool          `koanf:"disabled"`
	Interval    time.Duration `koanf:"interval"    validate:"gte=0"`
	Parallelism int           `koanf:"parallelism" validate:"gte=0"`
}

// Tokens configures the live-preview token registry.
type Tokens struct {
	TTL           time.Duration `koanf:"ttl"            validate:"gte=0"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gte=0"` // sweeper off when 0
}

// Log configures the file logger.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Config is the immutable aggregate returned by Load().
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Paths    Paths    `koanf:"paths"`
	Render   Render   `koanf:"render"`
	Sync     Sync     `koanf:"sync"`
	Tokens   Tokens   `koanf:"tokens"`
	Log      Log      `koanf:"log"`
}
