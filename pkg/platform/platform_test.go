package platform

import (
	"context"
	"testing"

	"github.com/bottlerocket-os/modota/pkg/ota"
	"gotest.tools/assert"
)

func TestChainStopsAtFirstError(t *testing.T) {
	var ran []string
	check := func(name string, err error) PreChecker {
		return PreCheckFunc(func(context.Context, *ota.Package) error {
			ran = append(ran, name)
			return err
		})
	}
	pkg := ota.NewPackage("mcu", "1", "https://x/a", "a")

	chain := Chain(check("a", nil), nil, check("b", ota.Fail(ota.CodeLowPower, "battery")), check("c", nil))
	err := chain.PreCheck(context.Background(), pkg)

	f, ok := ota.AsFailure(err)
	assert.Assert(t, ok)
	assert.Equal(t, f.Code, ota.CodeLowPower)
	assert.DeepEqual(t, ran, []string{"a", "b"})
}

func TestEmptyChainPasses(t *testing.T) {
	assert.NilError(t, Chain().PreCheck(context.Background(), ota.NewPackage("m", "1", "u", "f")))
}
