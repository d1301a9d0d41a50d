package agent

import (
	"context"
	"sync"

	"github.com/bottlerocket-os/modota/pkg/ota"
)

// VersionStore persists accepted versions.
type VersionStore interface {
	Version(module string) (string, bool)
	SetVersion(module, version string) error
}

// Versions tracks the current version of each module. Stored versions take
// precedence over the configured initial ones.
type Versions struct {
	mu       sync.RWMutex
	store    VersionStore
	initial  map[string]string
	accepted map[string]string
}

// NewVersions creates Versions over store, which may be nil.
func NewVersions(store VersionStore, initial map[string]string) *Versions {
	v := &Versions{
		store:    store,
		initial:  map[string]string{},
		accepted: map[string]string{},
	}
	for module, version := range initial {
		v.initial[module] = version
	}
	return v
}

// Current returns module's version, empty when unknown.
func (v *Versions) Current(module string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if version, ok := v.accepted[module]; ok {
		return version
	}
	if v.store != nil {
		if version, ok := v.store.Version(module); ok {
			return version
		}
	}
	return v.initial[module]
}

// Accept records version as module's current version. The version is kept
// in memory even when it cannot be persisted.
func (v *Versions) Accept(module, version string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.accepted[module] = version
	if v.store == nil {
		return nil
	}
	return v.store.SetVersion(module, version)
}

// PreCheck refuses packages offering the version already installed.
func (v *Versions) PreCheck(_ context.Context, pkg *ota.Package) error {
	if current := v.Current(pkg.Module()); current != "" && current == pkg.Version() {
		return ota.Fail(ota.CodeNoUpgradeNeeded, "version %s is already installed", current)
	}
	return nil
}
