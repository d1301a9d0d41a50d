package marker

// Key names a field in an event's parameters.
type Key = string

const (
	// ServiceID is the service every OTA event is exchanged under.
	ServiceID = "$ota"

	// SuccessCode is the only non-error code the platform returns in a
	// response event.
	SuccessCode = 200
)

// Keys of module-level event parameters.
const (
	KeyModule      Key = "module"
	KeyVersion     Key = "version"
	KeyResultCode  Key = "result_code"
	KeyProgress    Key = "progress"
	KeyDescription Key = "description"
)

// Keys used only by the legacy single-version (firmware/software) events.
const (
	KeyFirmwareVersion Key = "fw_version"
	KeySoftwareVersion Key = "sw_version"
)
