// Package dispatch routes inbound platform events to the registered module
// and firmware listeners.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/bottlerocket-os/modota/pkg/event"
	"github.com/bottlerocket-os/modota/pkg/internal/logfields"
	"github.com/bottlerocket-os/modota/pkg/logging"
	"github.com/bottlerocket-os/modota/pkg/marker"
	"github.com/bottlerocket-os/modota/pkg/workgroup"
)

// ModuleListener handles module-level OTA events.
type ModuleListener interface {
	// OnQueryVersion is the platform's answer to a version report.
	OnQueryVersion(ctx context.Context, info *event.ReportInfo, eventID string)
	// OnNewPackage is a pushed upgrade notification.
	OnNewPackage(ctx context.Context, pkg *event.ModulePackage, eventID string)
	// OnGetPackage answers a package request made by the device.
	OnGetPackage(ctx context.Context, info *event.ReportInfo, pkg *event.ModulePackage, eventID string)
	// OnProgress is the platform's answer to a progress report.
	OnProgress(ctx context.Context, info *event.ReportInfo, eventID string)
}

// FirmwareListener handles the legacy single-version events.
type FirmwareListener interface {
	OnQueryVersion(ctx context.Context, info *event.QueryInfo)
	OnNewPackage(ctx context.Context, pkg *event.Package)
	OnNewPackageV2(ctx context.Context, pkg *event.PackageV2)
}

// Runner accepts work that must not run on the dispatching goroutine.
type Runner interface {
	Submit(task workgroup.Task) bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithModuleListener registers the module listener.
func WithModuleListener(l ModuleListener) Option {
	return func(d *Dispatcher) { d.module = l }
}

// WithFirmwareListener registers the firmware listener.
func WithFirmwareListener(l FirmwareListener) Option {
	return func(d *Dispatcher) { d.firmware = l }
}

// WithDedupeTTL sets how long a delivered event id is remembered.
func WithDedupeTTL(ttl time.Duration) Option {
	return func(d *Dispatcher) { d.seen = newSeenCache(ttl) }
}

// Dispatcher classifies inbound events and hands them to a listener, either
// inline or through its Runner.
type Dispatcher struct {
	log    logging.Logger
	ctx    context.Context
	runner Runner
	seen   *seenCache

	mu       sync.RWMutex
	module   ModuleListener
	firmware FirmwareListener
}

// New creates a Dispatcher. Inline callbacks receive ctx, queued callbacks
// receive the context of the runner's worker.
func New(ctx context.Context, runner Runner, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		log:    logging.New("dispatch"),
		ctx:    ctx,
		runner: runner,
		seen:   newSeenCache(defaultDedupeTTL),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetModuleListener replaces the module listener.
func (d *Dispatcher) SetModuleListener(l ModuleListener) {
	d.mu.Lock()
	d.module = l
	d.mu.Unlock()
}

// SetFirmwareListener replaces the firmware listener.
func (d *Dispatcher) SetFirmwareListener(l FirmwareListener) {
	d.mu.Lock()
	d.firmware = l
	d.mu.Unlock()
}

func (d *Dispatcher) listeners() (ModuleListener, FirmwareListener) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.module, d.firmware
}

// Dispatch routes ev. Malformed and unrecognized events are dropped.
func (d *Dispatcher) Dispatch(ev *event.Inbound) {
	if ev == nil {
		return
	}
	log := d.log.WithFields(logfields.Event(ev))
	if d.seen.Seen(ev.EventType, ev.EventID) {
		log.Info("dropping duplicate event")
		return
	}

	module, firmware := d.listeners()
	var (
		err       error
		delivered bool
	)
	switch ev.EventType {
	case marker.EventVersionQuery:
		if firmware == nil {
			break
		}
		info := &event.QueryInfo{Raw: ev.Parameters}
		firmware.OnQueryVersion(d.ctx, info)
		delivered = true

	case marker.EventFirmwareUpgrade, marker.EventSoftwareUpgrade:
		if firmware == nil {
			break
		}
		pkg := &event.Package{}
		if err = event.Decode(ev.Parameters, pkg); err != nil {
			break
		}
		pkg.Kind = packageKind(ev.EventType)
		delivered = d.queue(log, func(ctx context.Context) { firmware.OnNewPackage(ctx, pkg) })

	case marker.EventFirmwareUpgradeV2, marker.EventSoftwareUpgradeV2:
		if firmware == nil {
			break
		}
		pkg := &event.PackageV2{}
		if err = event.Decode(ev.Parameters, pkg); err != nil {
			break
		}
		pkg.Kind = packageKind(ev.EventType)
		delivered = d.queue(log, func(ctx context.Context) { firmware.OnNewPackageV2(ctx, pkg) })

	case marker.EventModuleVersionReportResponse:
		if module == nil {
			break
		}
		var info *event.ReportInfo
		if info, err = event.DecodeReportInfo(ev.Parameters); err != nil {
			break
		}
		module.OnQueryVersion(d.ctx, info, ev.EventID)
		delivered = true

	case marker.EventModuleUpgradeNotify:
		if module == nil {
			break
		}
		pkg := &event.ModulePackage{}
		if err = event.Decode(ev.Parameters, pkg); err != nil {
			break
		}
		delivered = d.queue(log, func(ctx context.Context) { module.OnNewPackage(ctx, pkg, ev.EventID) })

	case marker.EventModuleProgressReportResponse:
		if module == nil {
			break
		}
		var info *event.ReportInfo
		if info, err = event.DecodeReportInfo(ev.Parameters); err != nil {
			break
		}
		module.OnProgress(d.ctx, info, ev.EventID)
		delivered = true

	case marker.EventModulePackageGetResponse:
		if module == nil {
			break
		}
		var info *event.ReportInfo
		if info, err = event.DecodeReportInfo(ev.Parameters); err != nil {
			break
		}
		pkg := &event.ModulePackage{}
		if err = event.Decode(ev.Parameters, pkg); err != nil {
			break
		}
		delivered = d.queue(log, func(ctx context.Context) { module.OnGetPackage(ctx, info, pkg, ev.EventID) })

	default:
		log.Debug("ignoring unrecognized event")
	}

	if err != nil {
		log.WithError(err).Error("unable to decode event parameters")
	}
	// Only events that reached a listener count as seen, so a redelivery of
	// a dropped event is still handled.
	if delivered {
		d.seen.Record(ev.EventType, ev.EventID)
	}
}

func (d *Dispatcher) queue(log logging.Logger, task workgroup.Task) bool {
	if !d.runner.Submit(task) {
		log.Warn("work queue full, dropping event")
		return false
	}
	return true
}

func packageKind(eventType marker.EventType) marker.PackageKind {
	switch eventType {
	case marker.EventSoftwareUpgrade, marker.EventSoftwareUpgradeV2:
		return marker.PackageSoftware
	}
	return marker.PackageFirmware
}
