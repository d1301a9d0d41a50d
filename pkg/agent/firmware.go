package agent

import (
	"context"

	"github.com/bottlerocket-os/modota/pkg/event"
	"github.com/bottlerocket-os/modota/pkg/marker"
	"github.com/bottlerocket-os/modota/pkg/ota"
	"github.com/bottlerocket-os/modota/pkg/upgrade"
)

// firmware answers the legacy events. Firmware and software are tracked as
// their own modules.
type firmware struct {
	*Agent
}

func (f *firmware) OnQueryVersion(ctx context.Context, _ *event.QueryInfo) {
	fw := f.versions.Current(marker.PackageFirmware)
	sw := f.versions.Current(marker.PackageSoftware)
	if err := f.reporter.ReportFirmwareVersion(ctx, fw, sw); err != nil {
		f.log.WithError(err).Error("unable to report firmware version")
	}
}

func (f *firmware) OnNewPackage(ctx context.Context, pkg *event.Package) {
	f.installLegacy(ctx, upgrade.FromPackage(pkg.Kind, pkg))
}

func (f *firmware) OnNewPackageV2(ctx context.Context, pkg *event.PackageV2) {
	f.installLegacy(ctx, upgrade.FromPackageV2(pkg.Kind, pkg))
}

func (f *firmware) installLegacy(ctx context.Context, pkg *ota.Package) {
	if f.legacy == nil {
		f.log.WithField("kind", pkg.Module()).Warn("no firmware upgrader configured, ignoring package")
		return
	}
	version, err := f.legacy.Upgrade(ctx, pkg, "")
	if err != nil {
		return
	}
	if err := f.versions.Accept(pkg.Module(), version); err != nil {
		f.log.WithError(err).WithField("kind", pkg.Module()).Error("unable to persist accepted version")
	}
}
