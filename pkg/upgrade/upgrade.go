// Package upgrade moves an offered package through precheck, download,
// verification and install, and reports exactly one outcome per attempt.
package upgrade

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/bottlerocket-os/modota/pkg/fetch"
	"github.com/bottlerocket-os/modota/pkg/internal/logfields"
	"github.com/bottlerocket-os/modota/pkg/logging"
	"github.com/bottlerocket-os/modota/pkg/ota"
	"github.com/bottlerocket-os/modota/pkg/platform"
	"github.com/bottlerocket-os/modota/pkg/report"
	"github.com/pkg/errors"
)

// DefaultDownloadTimeout bounds a download when none is configured.
const DefaultDownloadTimeout = 10 * time.Minute

// Config holds the orchestrator's settings.
type Config struct {
	// Dir is where packages are saved.
	Dir string
	// DownloadTimeout bounds each download.
	DownloadTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPreChecks sets the checks run, in order, before downloading.
func WithPreChecks(checks ...platform.PreChecker) Option {
	return func(o *Orchestrator) {
		o.precheck = platform.Chain(checks...)
	}
}

// Orchestrator runs upgrade attempts. Attempts on different modules may run
// concurrently; a second attempt on a busy module is refused.
type Orchestrator struct {
	log       logging.Logger
	config    Config
	fetcher   fetch.Fetcher
	precheck  platform.PreChecker
	installer platform.Installer
	reporter  report.Reporter
	guard     *guard
}

// New creates an Orchestrator.
func New(config Config, fetcher fetch.Fetcher, installer platform.Installer, reporter report.Reporter, opts ...Option) *Orchestrator {
	if config.DownloadTimeout <= 0 {
		config.DownloadTimeout = DefaultDownloadTimeout
	}
	o := &Orchestrator{
		log:       logging.New("upgrade"),
		config:    config,
		fetcher:   fetcher,
		precheck:  platform.Chain(),
		installer: installer,
		reporter:  reporter,
		guard:     newGuard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithReporter returns an Orchestrator reporting through r that shares o's
// module admission.
func (o *Orchestrator) WithReporter(r report.Reporter) *Orchestrator {
	dup := *o
	dup.reporter = r
	return &dup
}

// Upgrade runs one attempt for pkg and reports its outcome. On success the
// accepted version is returned, otherwise the error is the *ota.Failure that
// was reported.
func (o *Orchestrator) Upgrade(ctx context.Context, pkg *ota.Package, eventID string) (string, error) {
	log := o.log.WithFields(logfields.Package(pkg)).WithField("event-id", eventID)

	release, ok := o.guard.acquire(pkg.Module())
	if !ok {
		failure := ota.Fail(ota.CodeBusy, "module %s is already upgrading", pkg.Module())
		log.Warn("refusing concurrent upgrade")
		o.report(ctx, log, ota.Failed(pkg.Module(), eventID, failure))
		return "", failure
	}
	defer release()

	log.Info("starting upgrade")
	prog := &progression{}
	failure := o.attempt(ctx, log, prog, pkg)

	var outcome ota.Outcome
	if failure != nil {
		flog := log.WithField("stage", prog.stage)
		if prog.localPath != "" {
			flog = flog.WithField("path", prog.localPath)
		}
		flog.WithError(failure).Error("upgrade failed")
		outcome = ota.Failed(pkg.Module(), eventID, failure)
	} else {
		log.Info("upgrade installed")
		outcome = ota.Succeeded(pkg.Module(), eventID, pkg.Version())
	}
	o.report(ctx, log, outcome)
	prog.advance(StageReported)

	if failure != nil {
		return "", failure
	}
	return outcome.Version, nil
}

func (o *Orchestrator) report(ctx context.Context, log logging.Logger, outcome ota.Outcome) {
	if err := o.reporter.ReportOutcome(ctx, outcome); err != nil {
		log.WithFields(logfields.Outcome(outcome)).WithError(err).Error("unable to report outcome")
	}
}

// attempt runs the stages, converting any panic into an internal failure.
func (o *Orchestrator) attempt(ctx context.Context, log logging.Logger, prog *progression, pkg *ota.Package) (failure *ota.Failure) {
	defer func() {
		if r := recover(); r != nil {
			failure = ota.Fail(ota.CodeInnerError, "%v", r)
		}
	}()

	if err := o.precheck.PreCheck(ctx, pkg); err != nil {
		return classify(err, ota.CodeInnerError)
	}
	prog.advance(StagePreChecked)

	path, failure := o.download(ctx, pkg)
	if failure != nil {
		return failure
	}
	prog.localPath = path
	prog.advance(StageDownloaded)
	log.WithField("path", path).Debug("package downloaded")

	if _, signed := pkg.Sign(); !signed {
		log.Warn("package is unsigned, skipping verification")
	}
	if failure := verify(path, pkg); failure != nil {
		return failure
	}
	prog.advance(StageVerified)

	if err := o.installer.Install(ctx, path, pkg); err != nil {
		return classify(err, ota.CodeInstallFailed)
	}
	prog.advance(StageInstalled)
	return nil
}

// download saves the package as Dir/FileName. The file is written next to
// its target and renamed into place so a partial download never replaces an
// existing file.
func (o *Orchestrator) download(ctx context.Context, pkg *ota.Package) (string, *ota.Failure) {
	target, err := savePath(o.config.Dir, pkg.FileName())
	if err != nil {
		return "", ota.FailWith(ota.CodeUnsupportedPackage, err)
	}
	if err := os.MkdirAll(o.config.Dir, 0755); err != nil {
		return "", ota.FailWith(ota.CodeDownloadTimeout, errors.Wrap(err, "create package directory"))
	}

	tmp, err := ioutil.TempFile(o.config.Dir, "."+filepath.Base(target)+".part-")
	if err != nil {
		return "", ota.FailWith(ota.CodeDownloadTimeout, errors.Wrap(err, "create download file"))
	}
	defer os.Remove(tmp.Name())

	dctx, cancel := context.WithTimeout(ctx, o.config.DownloadTimeout)
	defer cancel()
	err = o.fetcher.Fetch(dctx, pkg, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, "write download file")
	}
	if err != nil {
		if errors.Cause(err) == fetch.ErrUnsupportedScheme {
			return "", ota.FailWith(ota.CodeUnsupportedPackage, err)
		}
		if dctx.Err() == context.DeadlineExceeded {
			err = errors.Wrapf(err, "download exceeded %s", o.config.DownloadTimeout)
		}
		return "", ota.FailWith(ota.CodeDownloadTimeout, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", ota.FailWith(ota.CodeDownloadTimeout, errors.Wrap(err, "save package"))
	}
	return target, nil
}

// savePath joins dir and name, refusing names that would leave dir.
func savePath(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", errors.Errorf("invalid package file name %q", name)
	}
	return filepath.Join(dir, name), nil
}

// classify converts a hook error into the failure that is reported. Typed
// failures keep their code unless it is outside the code space.
func classify(err error, fallback ota.Code) *ota.Failure {
	f, ok := ota.AsFailure(err)
	if !ok {
		return ota.FailWith(fallback, err)
	}
	if f.Code == ota.CodeSuccess || !f.Code.Valid() {
		return ota.FailWith(ota.CodeInnerError, errors.WithMessage(err, fmt.Sprintf("hook returned code %d", int(f.Code))))
	}
	return &ota.Failure{Code: f.Code, Description: f.Description}
}
