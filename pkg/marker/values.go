package marker

// EventType is the classifier carried by every inbound and outbound event.
type EventType = string

// Inbound, platform initiated or platform responses.
const (
	EventVersionQuery      EventType = "version_query"
	EventFirmwareUpgrade   EventType = "firmware_upgrade"
	EventSoftwareUpgrade   EventType = "software_upgrade"
	EventFirmwareUpgradeV2 EventType = "firmware_upgrade_v2"
	EventSoftwareUpgradeV2 EventType = "software_upgrade_v2"

	EventModuleVersionReportResponse  EventType = "module_version_report_response"
	EventModuleUpgradeNotify          EventType = "module_upgrade_notify"
	EventModuleProgressReportResponse EventType = "module_progress_report_response"
	EventModulePackageGetResponse     EventType = "module_package_get_response"
)

// Outbound, device initiated.
const (
	EventModuleVersionReport  EventType = "module_version_report"
	EventModuleProgressReport EventType = "module_progress_report"
	EventModulePackageGet     EventType = "module_package_get"

	EventVersionReport   EventType = "version_report"
	EventUpgradeProgress EventType = "upgrade_progress_report"
)

// SignMethod names the digest algorithm of a package signature.
type SignMethod = string

const (
	SignMethodSHA256 SignMethod = "SHA256"
)

// PackageKind tells legacy firmware packages from software packages.
type PackageKind = string

const (
	PackageFirmware PackageKind = "firmware"
	PackageSoftware PackageKind = "software"
)
