// Package script implements the device hooks by running configured host
// commands.
//
// Commands receive the package through the environment (MODOTA_MODULE,
// MODOTA_VERSION, MODOTA_URL and, for installs, MODOTA_FILE). A command that
// exits with a status from 2 to 10 reports that platform code; other failures
// are left untyped.
package script

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/bottlerocket-os/modota/pkg/logging"
	"github.com/bottlerocket-os/modota/pkg/ota"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Config selects the host commands and limits.
type Config struct {
	// InstallCommand is split on whitespace; an empty command installs
	// nothing.
	InstallCommand string
	// PrecheckCommand is optional.
	PrecheckCommand string
	// MinFreeBytes is the free space required in Dir; zero disables the
	// check.
	MinFreeBytes uint64
	// Dir is the package directory checked for free space.
	Dir string
}

type command interface {
	Run(ctx context.Context, argv []string, env []string) ([]byte, error)
}

type executable struct{}

func (executable) Run(ctx context.Context, argv []string, env []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), env...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if logging.Debuggable {
		logging.New("script").WithField("cmd", cmd.String()).Debug("Executing")
	}
	err := cmd.Run()
	return buf.Bytes(), err
}

// Platform runs the configured commands.
type Platform struct {
	log    logging.Logger
	config Config
	bin    command
	statfs func(path string) (uint64, error)
}

// New creates a Platform from config.
func New(config Config) *Platform {
	return &Platform{
		log:    logging.New("script"),
		config: config,
		bin:    executable{},
		statfs: freeBytes,
	}
}

func freeBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, errors.Wrapf(err, "statfs %s", path)
	}
	return st.Bavail * uint64(st.Bsize), nil
}

func packageEnv(pkg *ota.Package) []string {
	return []string{
		"MODOTA_MODULE=" + pkg.Module(),
		"MODOTA_VERSION=" + pkg.Version(),
		"MODOTA_URL=" + pkg.URL(),
	}
}

// PreCheck verifies free storage then runs the precheck command.
func (p *Platform) PreCheck(ctx context.Context, pkg *ota.Package) error {
	if p.config.MinFreeBytes > 0 {
		// The package directory is only created by the first download.
		if err := os.MkdirAll(p.config.Dir, 0755); err != nil {
			return errors.Wrap(err, "create package directory")
		}
		free, err := p.statfs(p.config.Dir)
		if err != nil {
			return errors.Wrapf(err, "check free storage in %s", p.config.Dir)
		}
		if free < p.config.MinFreeBytes {
			return ota.Fail(ota.CodeLowStorage, "%d bytes free in %s, %d required", free, p.config.Dir, p.config.MinFreeBytes)
		}
	}
	return p.run(ctx, p.config.PrecheckCommand, packageEnv(pkg))
}

// Install runs the install command against the downloaded file.
func (p *Platform) Install(ctx context.Context, localPath string, pkg *ota.Package) error {
	if strings.TrimSpace(p.config.InstallCommand) == "" {
		p.log.WithField("file", localPath).Warn("no install command configured, leaving package in place")
		return nil
	}
	return p.run(ctx, p.config.InstallCommand, append(packageEnv(pkg), "MODOTA_FILE="+localPath))
}

func (p *Platform) run(ctx context.Context, commandLine string, env []string) error {
	argv := strings.Fields(commandLine)
	if len(argv) == 0 {
		return nil
	}
	out, err := p.bin.Run(ctx, argv, env)
	log := p.log.WithFields(logrus.Fields{
		"cmd":    argv[0],
		"output": strings.TrimSpace(string(out)),
	})
	if err == nil {
		log.Debug("command completed")
		return nil
	}
	log.WithError(err).Error("command failed")

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := ota.Code(exitErr.ExitCode()); code > ota.CodeBusy && code.Valid() {
			return ota.FailWith(code, errors.Errorf("%s exited with %d: %s", argv[0], int(code), strings.TrimSpace(string(out))))
		}
	}
	return errors.Wrapf(err, "run %s", argv[0])
}
