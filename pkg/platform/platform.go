// Package platform declares the device hooks an upgrade attempt runs through.
package platform

import (
	"context"

	"github.com/bottlerocket-os/modota/pkg/ota"
)

// PreChecker decides whether a package may be applied now. Returning an
// *ota.Failure reports its code to the platform; any other error is reported
// as an internal error.
type PreChecker interface {
	PreCheck(ctx context.Context, pkg *ota.Package) error
}

// Installer applies a downloaded and verified package. Returning an
// *ota.Failure reports its code; any other error is an install failure.
type Installer interface {
	Install(ctx context.Context, localPath string, pkg *ota.Package) error
}

// Platform is implemented by owners of the device's update mechanics.
type Platform interface {
	PreChecker
	Installer
}

// PreCheckFunc adapts a function to a PreChecker.
type PreCheckFunc func(ctx context.Context, pkg *ota.Package) error

func (f PreCheckFunc) PreCheck(ctx context.Context, pkg *ota.Package) error { return f(ctx, pkg) }

// InstallFunc adapts a function to an Installer.
type InstallFunc func(ctx context.Context, localPath string, pkg *ota.Package) error

func (f InstallFunc) Install(ctx context.Context, localPath string, pkg *ota.Package) error {
	return f(ctx, localPath, pkg)
}

// Chain runs checks in order, stopping at the first error.
func Chain(checks ...PreChecker) PreChecker {
	return PreCheckFunc(func(ctx context.Context, pkg *ota.Package) error {
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check.PreCheck(ctx, pkg); err != nil {
				return err
			}
		}
		return nil
	})
}
