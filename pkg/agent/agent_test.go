package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bottlerocket-os/modota/pkg/event"
	"github.com/bottlerocket-os/modota/pkg/internal/testoutput"
	"github.com/bottlerocket-os/modota/pkg/ota"
	"github.com/bottlerocket-os/modota/pkg/state"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

type versionReport struct {
	module, version, eventID string
}

type testHooks struct {
	UpgradeFn       func(pkg *ota.Package, eventID string) (string, error)
	LegacyUpgradeFn func(pkg *ota.Package) (string, error)

	mu        sync.Mutex
	versions  []versionReport
	gets      []string
	firmwares [][2]string
	upgrades  []*ota.Package
}

func (h *testHooks) ReportVersion(_ context.Context, module, version, eventID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.versions = append(h.versions, versionReport{module, version, eventID})
	return nil
}

func (h *testHooks) ReportPackageGet(_ context.Context, module, eventID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gets = append(h.gets, eventID)
	return nil
}

func (h *testHooks) ReportFirmwareVersion(_ context.Context, fw, sw string) error {
	h.firmwares = append(h.firmwares, [2]string{fw, sw})
	return nil
}

func (h *testHooks) Upgrade(_ context.Context, pkg *ota.Package, eventID string) (string, error) {
	h.upgrades = append(h.upgrades, pkg)
	return h.UpgradeFn(pkg, eventID)
}

type legacyUpgrader struct{ h *testHooks }

func (l legacyUpgrader) Upgrade(_ context.Context, pkg *ota.Package, _ string) (string, error) {
	return l.h.LegacyUpgradeFn(pkg)
}

func testAgent(t *testing.T, opts ...Option) (*Agent, *testHooks) {
	hooks := &testHooks{
		UpgradeFn: func(pkg *ota.Package, _ string) (string, error) {
			return pkg.Version(), nil
		},
		LegacyUpgradeFn: func(pkg *ota.Package) (string, error) {
			return pkg.Version(), nil
		},
	}
	store, err := state.Open("")
	assert.NilError(t, err)
	versions := NewVersions(store, map[string]string{"mcu": "1.0.0", "firmware": "fw-1"})
	opts = append([]Option{WithFirmwareUpgrader(legacyUpgrader{hooks})}, opts...)
	a, err := New(Config{Module: "mcu"}, versions, hooks, hooks, opts...)
	assert.NilError(t, err)
	a.log = testoutput.Logger(t, "agent")
	return a, hooks
}

func offered(version string) *event.ModulePackage {
	return &event.ModulePackage{
		URL:      "https://example.com/mcu.bin",
		FileName: "mcu.bin",
		Version:  version,
		Module:   "other",
	}
}

func TestNewRequiresModule(t *testing.T) {
	_, err := New(Config{}, NewVersions(nil, nil), nil, nil)
	assert.ErrorContains(t, err, "module")
}

func TestConnectCompleteAnnouncesVersion(t *testing.T) {
	readies := 0
	a, hooks := testAgent(t, WithReady(func() { readies++ }))

	a.ConnectComplete(false, "tcp://broker:1883")
	assert.Assert(t, is.Len(hooks.versions, 1))
	assert.Equal(t, hooks.versions[0].module, "mcu")
	assert.Equal(t, hooks.versions[0].version, "1.0.0")
	assert.Check(t, hooks.versions[0].eventID != "")

	a.OnNewPackage(context.Background(), offered("2.0.0"), "e1")
	a.ConnectionLost(errors.New("broker went away"))
	a.ConnectComplete(true, "tcp://broker:1883")

	assert.Assert(t, is.Len(hooks.versions, 2))
	assert.Equal(t, hooks.versions[1].version, "2.0.0")
	assert.Equal(t, readies, 1)
}

func TestNewPackageUsesLocalModule(t *testing.T) {
	a, hooks := testAgent(t)

	a.OnNewPackage(context.Background(), offered("2.0.0"), "e1")
	assert.Assert(t, is.Len(hooks.upgrades, 1))
	assert.Equal(t, hooks.upgrades[0].Module(), "mcu")
	assert.Equal(t, a.Version(), "2.0.0")
}

func TestFailedUpgradeKeepsVersion(t *testing.T) {
	a, hooks := testAgent(t)
	hooks.UpgradeFn = func(*ota.Package, string) (string, error) {
		return "", ota.Fail(ota.CodeInstallFailed, "flash failed")
	}

	a.OnNewPackage(context.Background(), offered("2.0.0"), "e1")
	assert.Equal(t, a.Version(), "1.0.0")
}

func TestGetPackageResponse(t *testing.T) {
	a, hooks := testAgent(t)
	ctx := context.Background()

	a.OnGetPackage(ctx, &event.ReportInfo{Code: 500}, offered("2.0.0"), "g1")
	a.OnGetPackage(ctx, &event.ReportInfo{Code: 200}, &event.ModulePackage{}, "g2")
	assert.Check(t, is.Len(hooks.upgrades, 0))

	a.OnGetPackage(ctx, &event.ReportInfo{Code: 200}, offered("3.0.0"), "g3")
	assert.Assert(t, is.Len(hooks.upgrades, 1))
	assert.Equal(t, a.Version(), "3.0.0")
}

func TestResponsesOnlyLog(t *testing.T) {
	a, hooks := testAgent(t)
	a.OnQueryVersion(context.Background(), &event.ReportInfo{Code: 200}, "v1")
	a.OnProgress(context.Background(), &event.ReportInfo{Code: 404}, "p1")
	assert.Check(t, is.Len(hooks.upgrades, 0))
	assert.Check(t, is.Len(hooks.versions, 0))
}

func TestPollUsesFreshEventIDs(t *testing.T) {
	a, hooks := testAgent(t)

	assert.NilError(t, a.Poll(context.Background()))
	assert.NilError(t, a.Poll(context.Background()))
	assert.Assert(t, is.Len(hooks.gets, 2))
	assert.Check(t, hooks.gets[0] != hooks.gets[1])
	_, err := uuid.Parse(hooks.gets[0])
	assert.NilError(t, err)
}

func TestRunPollsPeriodically(t *testing.T) {
	a, hooks := testAgent(t)
	a.config.PollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- a.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for {
		hooks.mu.Lock()
		n := len(hooks.gets)
		hooks.mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("agent did not poll")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	assert.NilError(t, <-done)
}

func TestVersionGate(t *testing.T) {
	versions := NewVersions(nil, map[string]string{"mcu": "1.0.0"})
	ctx := context.Background()

	err := versions.PreCheck(ctx, ota.NewPackage("mcu", "1.0.0", "u", "f"))
	f, ok := ota.AsFailure(err)
	assert.Assert(t, ok)
	assert.Equal(t, f.Code, ota.CodeNoUpgradeNeeded)

	assert.NilError(t, versions.PreCheck(ctx, ota.NewPackage("mcu", "1.1.0", "u", "f")))
	assert.NilError(t, versions.PreCheck(ctx, ota.NewPackage("radio", "1.0.0", "u", "f")))
}

func TestFirmwareListener(t *testing.T) {
	a, hooks := testAgent(t)
	fw := a.Firmware()
	ctx := context.Background()

	fw.OnQueryVersion(ctx, &event.QueryInfo{})
	fw.OnNewPackage(ctx, &event.Package{Kind: "firmware", URL: "https://x/fw-2.bin", Version: "fw-2"})
	fw.OnNewPackageV2(ctx, &event.PackageV2{Kind: "software", URL: "https://x/sw-5.bin", Version: "sw-5"})
	fw.OnQueryVersion(ctx, &event.QueryInfo{})

	assert.DeepEqual(t, hooks.firmwares, [][2]string{{"fw-1", ""}, {"fw-2", "sw-5"}})
	assert.Equal(t, a.Version(), "1.0.0")
}

func TestFirmwareWithoutUpgrader(t *testing.T) {
	hooks := &testHooks{}
	a, err := New(Config{Module: "mcu"}, NewVersions(nil, nil), hooks, hooks)
	assert.NilError(t, err)
	a.log = testoutput.Logger(t, "agent")

	a.Firmware().OnNewPackage(context.Background(), &event.Package{Kind: "firmware", URL: "https://x/a"})
	assert.Check(t, is.Len(hooks.upgrades, 0))
}
