package ota

import "fmt"

// Code is a platform defined upgrade result. The platform only understands
// the values declared here.
type Code int

const (
	CodeSuccess            Code = 0
	CodeBusy               Code = 1
	CodePoorSignal         Code = 2
	CodeNoUpgradeNeeded    Code = 3
	CodeLowPower           Code = 4
	CodeLowStorage         Code = 5
	CodeDownloadTimeout    Code = 6
	CodeCheckFailed        Code = 7
	CodeUnsupportedPackage Code = 8
	CodeLowMemory          Code = 9
	CodeInstallFailed      Code = 10
	CodeInnerError         Code = 255
)

var codeNames = map[Code]string{
	CodeSuccess:            "success",
	CodeBusy:               "busy",
	CodePoorSignal:         "poor-signal",
	CodeNoUpgradeNeeded:    "no-upgrade-needed",
	CodeLowPower:           "low-power",
	CodeLowStorage:         "low-storage",
	CodeDownloadTimeout:    "download-timeout",
	CodeCheckFailed:        "check-failed",
	CodeUnsupportedPackage: "unsupported-package",
	CodeLowMemory:          "low-memory",
	CodeInstallFailed:      "install-failed",
	CodeInnerError:         "inner-error",
}

// Valid reports whether c is part of the platform's code space.
func (c Code) Valid() bool {
	_, ok := codeNames[c]
	return ok
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// Codes lists the whole code space in ascending order.
func Codes() []Code {
	return []Code{
		CodeSuccess, CodeBusy, CodePoorSignal, CodeNoUpgradeNeeded,
		CodeLowPower, CodeLowStorage, CodeDownloadTimeout, CodeCheckFailed,
		CodeUnsupportedPackage, CodeLowMemory, CodeInstallFailed, CodeInnerError,
	}
}
