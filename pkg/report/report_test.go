package report

import (
	"context"
	"testing"

	"github.com/bottlerocket-os/modota/pkg/event"
	"github.com/bottlerocket-os/modota/pkg/internal/testoutput"
	"github.com/bottlerocket-os/modota/pkg/marker"
	"github.com/bottlerocket-os/modota/pkg/ota"
	"github.com/pkg/errors"
	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

type recordingClient struct {
	sent []*event.Outbound
	err  error
}

func (r *recordingClient) ReportEvent(_ context.Context, ev *event.Outbound) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, ev)
	return nil
}

func testChannel(t *testing.T) (*Channel, *recordingClient) {
	client := &recordingClient{}
	c := New(client)
	c.log = testoutput.Logger(t, "report")
	return c, client
}

func TestReportOtaStatusNegatesResult(t *testing.T) {
	c, client := testChannel(t)

	err := c.ReportOtaStatus(context.Background(), ota.CodeCheckFailed, 0, "mcu", "e1", "sign verify failed")
	assert.NilError(t, err)
	assert.Assert(t, is.Len(client.sent, 1))

	ev := client.sent[0]
	assert.Equal(t, ev.EventType, marker.EventModuleProgressReport)
	assert.Equal(t, ev.EventID, "e1")
	assert.Equal(t, ev.ServiceID, "$ota")
	assert.DeepEqual(t, ev.Paras, map[string]interface{}{
		"result_code": -7,
		"progress":    0,
		"description": "sign verify failed",
		"module":      "mcu",
	})
	_, err = event.ParseTime(ev.EventTime)
	assert.NilError(t, err)
}

func TestReportOtaStatusOmitsEmptyDescription(t *testing.T) {
	c, client := testChannel(t)

	assert.NilError(t, c.ReportOtaStatus(context.Background(), ota.CodeSuccess, 140, "mcu", "e2", ""))
	paras := client.sent[0].Paras
	_, hasDesc := paras[marker.KeyDescription]
	assert.Check(t, !hasDesc)
	assert.Equal(t, paras[marker.KeyProgress], 100)
	assert.Equal(t, paras[marker.KeyResultCode], 0)
}

func TestReportVersionAndPackageGet(t *testing.T) {
	c, client := testChannel(t)
	ctx := context.Background()

	assert.NilError(t, c.ReportVersion(ctx, "mcu", "1.0.0", "q1"))
	assert.NilError(t, c.ReportPackageGet(ctx, "mcu", "p1"))

	assert.Assert(t, is.Len(client.sent, 2))
	assert.Equal(t, client.sent[0].EventType, marker.EventModuleVersionReport)
	assert.DeepEqual(t, client.sent[0].Paras, map[string]interface{}{"module": "mcu", "version": "1.0.0"})
	assert.Equal(t, client.sent[1].EventType, marker.EventModulePackageGet)
	assert.Equal(t, client.sent[1].EventID, "p1")
	assert.DeepEqual(t, client.sent[1].Paras, map[string]interface{}{"module": "mcu"})
}

func TestLegacyReportsAreNotNegated(t *testing.T) {
	c, client := testChannel(t)
	ctx := context.Background()

	assert.NilError(t, c.ReportFirmwareVersion(ctx, "fw-1", "sw-1"))
	assert.NilError(t, c.ReportFirmwareStatus(ctx, ota.CodeInstallFailed, 0, "fw-2", "flash failed"))

	assert.Equal(t, client.sent[0].EventType, marker.EventVersionReport)
	assert.Equal(t, client.sent[0].EventID, "")
	assert.DeepEqual(t, client.sent[0].Paras, map[string]interface{}{"fw_version": "fw-1", "sw_version": "sw-1"})

	assert.Equal(t, client.sent[1].EventType, marker.EventUpgradeProgress)
	assert.Equal(t, client.sent[1].Paras[marker.KeyResultCode], 10)
	assert.Equal(t, client.sent[1].Paras[marker.KeyVersion], "fw-2")
}

func TestReportOutcome(t *testing.T) {
	c, client := testChannel(t)

	assert.NilError(t, c.ReportOutcome(context.Background(), ota.Succeeded("mcu", "e3", "2.0.0")))
	ev := client.sent[0]
	assert.Equal(t, ev.EventID, "e3")
	assert.DeepEqual(t, ev.Paras, map[string]interface{}{
		"result_code": 0,
		"progress":    100,
		"description": "2.0.0",
		"module":      "mcu",
	})
}

func TestReportSendError(t *testing.T) {
	client := &recordingClient{err: errors.New("not connected")}
	c := New(client)
	c.log = testoutput.Logger(t, "report")

	err := c.ReportPackageGet(context.Background(), "mcu", "p1")
	assert.Check(t, is.ErrorContains(err, "not connected"))
	assert.Check(t, is.ErrorContains(err, marker.EventModulePackageGet))
}

func TestFirmwareReporter(t *testing.T) {
	c, client := testChannel(t)

	failure := ota.Fail(ota.CodeDownloadTimeout, "timed out")
	assert.NilError(t, c.Firmware().ReportOutcome(context.Background(), ota.Failed("firmware", "", failure)))
	ev := client.sent[0]
	assert.Equal(t, ev.EventType, marker.EventUpgradeProgress)
	assert.DeepEqual(t, ev.Paras, map[string]interface{}{
		"result_code": 6,
		"progress":    0,
		"version":     "",
		"description": "timed out",
	})
}
