package upgrade

// Stage is how far an attempt got.
type Stage int

const (
	StageReceived Stage = iota
	StagePreChecked
	StageDownloaded
	StageVerified
	StageInstalled
	StageReported
)

var stageNames = [...]string{
	StageReceived:   "received",
	StagePreChecked: "prechecked",
	StageDownloaded: "downloaded",
	StageVerified:   "verified",
	StageInstalled:  "installed",
	StageReported:   "reported",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// progression tracks a single attempt through its stages.
type progression struct {
	stage Stage
	// localPath is set once the package is downloaded.
	localPath string
}

func (p *progression) advance(to Stage) {
	p.stage = to
}
