package ota

import (
	"testing"

	"github.com/pkg/errors"
	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

func TestCodeSpace(t *testing.T) {
	for _, c := range Codes() {
		assert.Check(t, c.Valid(), "code %d", c)
	}
	for _, c := range []Code{-1, 11, 100, 254, 256} {
		assert.Check(t, !c.Valid(), "code %d", c)
	}
	assert.Equal(t, CodeCheckFailed.String(), "check-failed")
	assert.Equal(t, Code(42).String(), "unknown(42)")
}

func TestAsFailureThroughWrapping(t *testing.T) {
	cause := errors.New("disk full")
	err := errors.Wrap(FailWith(CodeLowStorage, cause), "precheck")

	f, ok := AsFailure(err)
	assert.Assert(t, ok)
	assert.Equal(t, f.Code, CodeLowStorage)
	assert.Equal(t, f.Description, "disk full")
	assert.Equal(t, errors.Cause(f), cause)

	_, ok = AsFailure(errors.New("plain"))
	assert.Check(t, !ok)
}

func TestOutcomes(t *testing.T) {
	ok := Succeeded("mcu", "e1", "1.1")
	assert.Check(t, ok.OK())
	assert.Equal(t, ok.Progress, 100)
	assert.Equal(t, ok.Description, "1.1")

	failed := Failed("mcu", "e1", &Failure{Code: CodeInstallFailed, Progress: 150, Description: "x"})
	assert.Check(t, !failed.OK())
	assert.Equal(t, failed.Progress, 100)
	assert.Equal(t, failed.Version, "")
	assert.Check(t, is.Equal(ClampProgress(-3), 0))
}

func TestPackageSignDefaults(t *testing.T) {
	p := NewPackage("mcu", "1.0", "https://x/y.bin", "y.bin", WithSign("ab", ""), WithAccessToken("tok"))
	sign, signed := p.Sign()
	assert.Check(t, signed)
	assert.Equal(t, sign, "ab")
	assert.Equal(t, p.SignMethod(), "SHA256")
	assert.Equal(t, p.AccessToken(), "tok")

	unsigned := NewPackage("mcu", "1.0", "https://x/y.bin", "y.bin", WithSign("", ""))
	_, signed = unsigned.Sign()
	assert.Check(t, !signed)
	assert.Equal(t, unsigned.SignMethod(), "")
}
