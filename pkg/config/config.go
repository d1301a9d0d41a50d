// Package config loads the agent's settings.
package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bottlerocket-os/modota/pkg/tlsconf"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// DefaultPath is where the configuration is read from unless told otherwise.
const DefaultPath = "/etc/modota/config.toml"

// Environment variables overriding the file.
const (
	EnvDeviceID = "MODOTA_DEVICE_ID"
	EnvSecret   = "MODOTA_SECRET"
	EnvBroker   = "MODOTA_BROKER"
)

// Config is the agent's complete configuration.
type Config struct {
	DeviceID string
	Secret   string
	Broker   string
	// Module is the name of the managed module and Version its version when
	// no accepted version has been recorded yet.
	Module  string
	Version string

	PackageDir      string
	StateFile       string
	DownloadTimeout time.Duration
	PollInterval    time.Duration

	TLS tlsconf.Policy

	Workers    int
	QueueDepth int
	DedupeTTL  time.Duration

	Platform Platform
	S3       S3
}

// Platform selects the device hook commands.
type Platform struct {
	InstallCommand  string `toml:"install_command"`
	PrecheckCommand string `toml:"precheck_command"`
	MinFreeBytes    uint64 `toml:"min_free_bytes"`
}

// S3 configures downloads of s3:// packages.
type S3 struct {
	Region string `toml:"region"`
}

// file is the on-disk layout. Durations are Go duration strings.
type file struct {
	DeviceID        string         `toml:"device_id"`
	Secret          string         `toml:"secret"`
	Broker          string         `toml:"broker"`
	Module          string         `toml:"module"`
	Version         string         `toml:"version"`
	PackageDir      string         `toml:"package_dir"`
	StateFile       string         `toml:"state_file"`
	DownloadTimeout string         `toml:"download_timeout"`
	PollInterval    string         `toml:"poll_interval"`
	TLS             tlsconf.Policy `toml:"tls"`
	Workers         int            `toml:"workers"`
	QueueDepth      int            `toml:"queue_depth"`
	DedupeTTL       string         `toml:"dedupe_ttl"`
	Platform        Platform       `toml:"platform"`
	S3              S3             `toml:"s3"`
}

// Default returns the configuration used for unset keys.
func Default() Config {
	return Config{
		PackageDir:      "/var/lib/modota/packages",
		StateFile:       "/var/lib/modota/state.toml",
		DownloadTimeout: 10 * time.Minute,
		Workers:         2,
		QueueDepth:      16,
		DedupeTTL:       10 * time.Minute,
		S3:              S3{Region: "us-west-2"},
	}
}

// Load reads the file at path over the defaults, then applies the
// environment. A missing file is only an error when required is set.
func Load(path string, required bool) (Config, error) {
	config := Default()
	raw, err := ioutil.ReadFile(path)
	switch {
	case os.IsNotExist(err) && !required:
	case err != nil:
		return config, errors.Wrap(err, "read config")
	default:
		if err := config.merge(raw); err != nil {
			return config, errors.Wrapf(err, "parse config %s", path)
		}
		config.resolve(filepath.Dir(path))
	}
	config.ApplyEnv(os.LookupEnv)
	return config, nil
}

func (c *Config) merge(raw []byte) error {
	f := file{}
	if err := toml.Unmarshal(raw, &f); err != nil {
		return err
	}
	setString(&c.DeviceID, f.DeviceID)
	setString(&c.Secret, f.Secret)
	setString(&c.Broker, f.Broker)
	setString(&c.Module, f.Module)
	setString(&c.Version, f.Version)
	setString(&c.PackageDir, f.PackageDir)
	setString(&c.StateFile, f.StateFile)
	setString(&c.S3.Region, f.S3.Region)
	c.TLS = f.TLS
	c.Platform = f.Platform
	if f.Workers != 0 {
		c.Workers = f.Workers
	}
	if f.QueueDepth != 0 {
		c.QueueDepth = f.QueueDepth
	}
	for _, d := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"download_timeout", f.DownloadTimeout, &c.DownloadTimeout},
		{"poll_interval", f.PollInterval, &c.PollInterval},
		{"dedupe_ttl", f.DedupeTTL, &c.DedupeTTL},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", d.key)
		}
		*d.dst = parsed
	}
	return nil
}

// resolve makes relative file paths relative to the config's directory.
func (c *Config) resolve(dir string) {
	if c.TLS.CAFile != "" && !filepath.IsAbs(c.TLS.CAFile) {
		c.TLS.CAFile = filepath.Join(dir, c.TLS.CAFile)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ApplyEnv overrides the identity and broker from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for env, dst := range map[string]*string{
		EnvDeviceID: &c.DeviceID,
		EnvSecret:   &c.Secret,
		EnvBroker:   &c.Broker,
	} {
		if v, ok := lookup(env); ok && v != "" {
			*dst = v
		}
	}
}

// Validate reports the first setting preventing the agent from running.
func (c Config) Validate() error {
	switch {
	case c.DeviceID == "":
		return errors.New("device_id must be provided")
	case c.Broker == "":
		return errors.New("broker must be provided")
	case c.Module == "":
		return errors.New("module must be provided")
	case c.PackageDir == "":
		return errors.New("package_dir must be provided")
	case c.Workers < 1:
		return errors.New("workers must be at least 1, got " + strconv.Itoa(c.Workers))
	case c.QueueDepth < 0:
		return errors.New("queue_depth must not be negative")
	case c.DownloadTimeout <= 0:
		return errors.New("download_timeout must be positive")
	}
	return nil
}
