// Package report builds the status events a device sends to the platform.
package report

import (
	"context"

	"github.com/bottlerocket-os/modota/pkg/event"
	"github.com/bottlerocket-os/modota/pkg/logging"
	"github.com/bottlerocket-os/modota/pkg/marker"
	"github.com/bottlerocket-os/modota/pkg/ota"
	"github.com/bottlerocket-os/modota/pkg/transport"
	"github.com/pkg/errors"
)

// Reporter is the subset of the channel an upgrade attempt reports through.
type Reporter interface {
	ReportOutcome(ctx context.Context, outcome ota.Outcome) error
}

// Channel emits OTA reports over a transport client.
type Channel struct {
	log    logging.Logger
	client transport.Client
}

// New creates a Channel sending through client.
func New(client transport.Client) *Channel {
	return &Channel{
		log:    logging.New("report"),
		client: client,
	}
}

func (c *Channel) send(ctx context.Context, ev *event.Outbound) error {
	log := c.log.WithField("event-type", ev.EventType)
	if ev.EventID != "" {
		log = log.WithField("event-id", ev.EventID)
	}
	if err := c.client.ReportEvent(ctx, ev); err != nil {
		log.WithError(err).Error("unable to send report")
		return errors.Wrapf(err, "send %s", ev.EventType)
	}
	log.Debug("sent report")
	return nil
}

// ReportVersion announces the module's current version.
func (c *Channel) ReportVersion(ctx context.Context, module, version, eventID string) error {
	return c.send(ctx, event.NewOutbound(marker.EventModuleVersionReport, eventID, map[string]interface{}{
		marker.KeyModule:  module,
		marker.KeyVersion: version,
	}))
}

// ReportOtaStatus reports an upgrade result for module. The platform expects
// the result negated on this event.
func (c *Channel) ReportOtaStatus(ctx context.Context, result ota.Code, progress int, module, eventID, description string) error {
	paras := map[string]interface{}{
		marker.KeyResultCode: -int(result),
		marker.KeyProgress:   ota.ClampProgress(progress),
		marker.KeyModule:     module,
	}
	if description != "" {
		paras[marker.KeyDescription] = description
	}
	return c.send(ctx, event.NewOutbound(marker.EventModuleProgressReport, eventID, paras))
}

// ReportPackageGet asks the platform to push the latest package for module.
func (c *Channel) ReportPackageGet(ctx context.Context, module, eventID string) error {
	return c.send(ctx, event.NewOutbound(marker.EventModulePackageGet, eventID, map[string]interface{}{
		marker.KeyModule: module,
	}))
}

// ReportFirmwareVersion is the legacy device version report.
func (c *Channel) ReportFirmwareVersion(ctx context.Context, fwVersion, swVersion string) error {
	return c.send(ctx, event.NewOutbound(marker.EventVersionReport, "", map[string]interface{}{
		marker.KeyFirmwareVersion: fwVersion,
		marker.KeySoftwareVersion: swVersion,
	}))
}

// ReportFirmwareStatus is the legacy upgrade progress report. Unlike the
// module report its result code is sent as is.
func (c *Channel) ReportFirmwareStatus(ctx context.Context, result ota.Code, progress int, version, description string) error {
	paras := map[string]interface{}{
		marker.KeyResultCode: int(result),
		marker.KeyProgress:   ota.ClampProgress(progress),
		marker.KeyVersion:    version,
	}
	if description != "" {
		paras[marker.KeyDescription] = description
	}
	return c.send(ctx, event.NewOutbound(marker.EventUpgradeProgress, "", paras))
}

// ReportOutcome sends the status report for a finished attempt.
func (c *Channel) ReportOutcome(ctx context.Context, o ota.Outcome) error {
	return c.ReportOtaStatus(ctx, o.Code, o.Progress, o.Module, o.EventID, o.Description)
}

// Firmware returns a Reporter sending outcomes as legacy upgrade progress
// reports.
func (c *Channel) Firmware() Reporter {
	return firmwareReporter{c}
}

type firmwareReporter struct {
	c *Channel
}

func (f firmwareReporter) ReportOutcome(ctx context.Context, o ota.Outcome) error {
	return f.c.ReportFirmwareStatus(ctx, o.Code, o.Progress, o.Version, o.Description)
}
