package main

import (
	"context"
	"os"

	"github.com/bottlerocket-os/modota/pkg/agent"
	"github.com/bottlerocket-os/modota/pkg/config"
	"github.com/bottlerocket-os/modota/pkg/dispatch"
	"github.com/bottlerocket-os/modota/pkg/fetch"
	"github.com/bottlerocket-os/modota/pkg/logging"
	"github.com/bottlerocket-os/modota/pkg/platform/script"
	"github.com/bottlerocket-os/modota/pkg/report"
	"github.com/bottlerocket-os/modota/pkg/state"
	"github.com/bottlerocket-os/modota/pkg/transport/mqtt"
	"github.com/bottlerocket-os/modota/pkg/upgrade"
	"github.com/bottlerocket-os/modota/pkg/workgroup"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/pkg/errors"
)

// modotad is the wired agent.
type modotad struct {
	log        logging.Logger
	pool       *workgroup.Pool
	dispatcher *dispatch.Dispatcher
	client     *mqtt.Client
	agent      *agent.Agent
}

func newDaemon(cfg config.Config) (*modotad, error) {
	log := logging.New("daemon")

	tlsConfig, err := cfg.TLS.Config()
	if err != nil {
		return nil, errors.WithMessage(err, "tls policy")
	}
	store, err := state.Open(cfg.StateFile)
	if err != nil {
		return nil, errors.WithMessage(err, "version state")
	}
	if err := os.MkdirAll(cfg.PackageDir, 0755); err != nil {
		return nil, errors.Wrap(err, "package directory")
	}
	versions := agent.NewVersions(store, map[string]string{cfg.Module: cfg.Version})

	httpFetcher := fetch.NewHTTP(tlsConfig, 0)
	s3Fetcher, err := fetch.NewS3(cfg.S3.Region, tlsConfig)
	if err != nil {
		return nil, errors.WithMessage(err, "s3 downloads")
	}
	fetcher := fetch.Mux{
		"http":  httpFetcher,
		"https": httpFetcher,
		"s3":    s3Fetcher,
	}

	plat := script.New(script.Config{
		InstallCommand:  cfg.Platform.InstallCommand,
		PrecheckCommand: cfg.Platform.PrecheckCommand,
		MinFreeBytes:    cfg.Platform.MinFreeBytes,
		Dir:             cfg.PackageDir,
	})

	pool := workgroup.NewPool(cfg.Workers, cfg.QueueDepth)
	dispatcher := dispatch.New(context.Background(), pool, dispatch.WithDedupeTTL(cfg.DedupeTTL))
	client := mqtt.New(mqtt.Config{
		Broker:   cfg.Broker,
		DeviceID: cfg.DeviceID,
		Secret:   cfg.Secret,
		TLS:      tlsConfig,
	}, dispatcher, nil)
	channel := report.New(client)

	orchestrator := upgrade.New(upgrade.Config{
		Dir:             cfg.PackageDir,
		DownloadTimeout: cfg.DownloadTimeout,
	}, fetcher, plat, channel, upgrade.WithPreChecks(versions, plat))

	a, err := agent.New(agent.Config{
		Module:       cfg.Module,
		PollInterval: cfg.PollInterval,
	}, versions, channel, orchestrator,
		agent.WithFirmwareUpgrader(orchestrator.WithReporter(channel.Firmware())),
		agent.WithReady(func() { notifyReady(log) }))
	if err != nil {
		return nil, err
	}
	dispatcher.SetModuleListener(a)
	dispatcher.SetFirmwareListener(a.Firmware())
	client.SetConnectListener(a)

	return &modotad{
		log:        log,
		pool:       pool,
		dispatcher: dispatcher,
		client:     client,
		agent:      a,
	}, nil
}

func (d *modotad) run(ctx context.Context, poll bool) error {
	group := workgroup.WithContext(ctx)
	group.Work(d.pool.Run)
	group.Work(d.agent.Run)
	group.Work(func(ctx context.Context) error {
		if err := d.client.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.WithMessage(err, "connect")
		}
		defer d.client.Disconnect()
		if poll {
			if err := d.agent.Poll(ctx); err != nil {
				d.log.WithError(err).Warn("initial package request failed")
			}
		}
		<-ctx.Done()
		d.log.Info("waiting on workers to finish")
		return nil
	})
	return group.Wait()
}

func notifyReady(log logging.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	switch {
	case err != nil:
		log.WithError(err).Warn("unable to notify systemd")
	case sent:
		log.Debug("notified systemd")
	}
}
