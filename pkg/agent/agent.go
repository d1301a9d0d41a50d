package agent

import (
	"context"
	"sync"
	"time"

	"github.com/bottlerocket-os/modota/pkg/dispatch"
	"github.com/bottlerocket-os/modota/pkg/event"
	"github.com/bottlerocket-os/modota/pkg/logging"
	"github.com/bottlerocket-os/modota/pkg/ota"
	"github.com/bottlerocket-os/modota/pkg/transport"
	"github.com/bottlerocket-os/modota/pkg/upgrade"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	reportTimeout    = time.Second * 30
	initialPollDelay = time.Minute * 1
)

// Reporter is what the agent reports through outside of upgrade attempts.
type Reporter interface {
	ReportVersion(ctx context.Context, module, version, eventID string) error
	ReportPackageGet(ctx context.Context, module, eventID string) error
	ReportFirmwareVersion(ctx context.Context, fwVersion, swVersion string) error
}

// Upgrader runs an upgrade attempt and reports its outcome.
type Upgrader interface {
	Upgrade(ctx context.Context, pkg *ota.Package, eventID string) (string, error)
}

// Config identifies the managed module.
type Config struct {
	Module string
	// PollInterval is how often the agent asks for a package; zero only
	// polls when asked to.
	PollInterval time.Duration
}

// Option configures an Agent.
type Option func(*Agent)

// WithFirmwareUpgrader handles the legacy firmware and software packages.
func WithFirmwareUpgrader(u Upgrader) Option {
	return func(a *Agent) { a.legacy = u }
}

// WithReady is called once, after the first connection is announced.
func WithReady(fn func()) Option {
	return func(a *Agent) { a.ready = fn }
}

// Agent implements the module listener and the connection listener.
type Agent struct {
	log      logging.Logger
	config   Config
	reporter Reporter
	upgrader Upgrader
	legacy   Upgrader
	versions *Versions

	ready     func()
	readyOnce sync.Once
}

var (
	_ dispatch.ModuleListener   = (*Agent)(nil)
	_ transport.ConnectListener = (*Agent)(nil)
)

// New creates an Agent for config.Module.
func New(config Config, versions *Versions, reporter Reporter, upgrader Upgrader, opts ...Option) (*Agent, error) {
	if config.Module == "" {
		return nil, errors.New("module must be provided for Agent to manage")
	}
	a := &Agent{
		log:      logging.New("agent").WithField("module", config.Module),
		config:   config,
		reporter: reporter,
		upgrader: upgrader,
		versions: versions,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Firmware returns the legacy firmware listener.
func (a *Agent) Firmware() dispatch.FirmwareListener {
	return &firmware{a}
}

// Version is the managed module's current version.
func (a *Agent) Version() string {
	return a.versions.Current(a.config.Module)
}

// Announce reports the module's current version.
func (a *Agent) Announce(ctx context.Context) error {
	return a.reporter.ReportVersion(ctx, a.config.Module, a.Version(), uuid.NewString())
}

// Poll asks the platform for the module's latest package. The answer arrives
// as a package get response.
func (a *Agent) Poll(ctx context.Context) error {
	eventID := uuid.NewString()
	a.log.WithField("event-id", eventID).Info("requesting package")
	return a.reporter.ReportPackageGet(ctx, a.config.Module, eventID)
}

// Run polls on the configured interval until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	if a.config.PollInterval <= 0 {
		<-ctx.Done()
		return nil
	}
	delay := initialPollDelay
	if a.config.PollInterval < delay {
		delay = a.config.PollInterval
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			if err := a.Poll(ctx); err != nil {
				a.log.WithError(err).Warn("periodic package request failed")
			}
			timer.Reset(a.config.PollInterval)
		}
	}
}

func (a *Agent) install(ctx context.Context, pkg *ota.Package, eventID string) {
	version, err := a.upgrader.Upgrade(ctx, pkg, eventID)
	if err != nil {
		// Already reported by the orchestrator.
		return
	}
	if err := a.versions.Accept(pkg.Module(), version); err != nil {
		a.log.WithError(err).WithField("version", version).Error("unable to persist accepted version")
	}
}

// OnNewPackage implements dispatch.ModuleListener.
func (a *Agent) OnNewPackage(ctx context.Context, pkg *event.ModulePackage, eventID string) {
	if pkg.Module != "" && pkg.Module != a.config.Module {
		a.log.WithField("offered-module", pkg.Module).Debug("package names another module, upgrading the local module")
	}
	a.install(ctx, upgrade.FromModulePackage(a.config.Module, pkg), eventID)
}

// OnGetPackage implements dispatch.ModuleListener.
func (a *Agent) OnGetPackage(ctx context.Context, info *event.ReportInfo, pkg *event.ModulePackage, eventID string) {
	log := a.log.WithField("event-id", eventID)
	if !info.OK() {
		log.WithField("code", info.Code).Warn("platform rejected package request")
		return
	}
	if pkg.URL == "" {
		log.Info("no package available")
		return
	}
	a.install(ctx, upgrade.FromModulePackage(a.config.Module, pkg), eventID)
}

// OnQueryVersion implements dispatch.ModuleListener.
func (a *Agent) OnQueryVersion(_ context.Context, info *event.ReportInfo, eventID string) {
	a.acknowledged("version report", info, eventID)
}

// OnProgress implements dispatch.ModuleListener.
func (a *Agent) OnProgress(_ context.Context, info *event.ReportInfo, eventID string) {
	a.acknowledged("progress report", info, eventID)
}

func (a *Agent) acknowledged(what string, info *event.ReportInfo, eventID string) {
	log := a.log.WithFields(logrus.Fields{
		"event-id": eventID,
		"code":     info.Code,
	})
	if !info.OK() {
		log.Warnf("platform rejected %s", what)
		return
	}
	log.Debugf("platform accepted %s", what)
}

// ConnectComplete implements transport.ConnectListener.
func (a *Agent) ConnectComplete(reconnect bool, serverURI string) {
	a.log.WithFields(logrus.Fields{
		"server":    serverURI,
		"reconnect": reconnect,
	}).Info("connected")

	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()
	if err := a.Announce(ctx); err != nil {
		a.log.WithError(err).Error("unable to announce version")
	}
	if a.ready != nil {
		a.readyOnce.Do(a.ready)
	}
}

// ConnectionLost implements transport.ConnectListener.
func (a *Agent) ConnectionLost(err error) {
	a.log.WithError(err).Warn("connection lost")
}

// ConnectFail implements transport.ConnectListener.
func (a *Agent) ConnectFail(err error) {
	a.log.WithError(err).Error("connection failed")
}
