package ota

// Outcome is the terminal result of one upgrade attempt and the only input
// to its status report.
type Outcome struct {
	Module   string
	EventID  string
	Code     Code
	Progress int
	// Version is the accepted version, set only on success.
	Version     string
	Description string
}

// Succeeded is the outcome of an installed package.
func Succeeded(module, eventID, version string) Outcome {
	return Outcome{
		Module:      module,
		EventID:     eventID,
		Code:        CodeSuccess,
		Progress:    100,
		Version:     version,
		Description: version,
	}
}

// Failed is the outcome of an attempt stopped by f.
func Failed(module, eventID string, f *Failure) Outcome {
	return Outcome{
		Module:      module,
		EventID:     eventID,
		Code:        f.Code,
		Progress:    ClampProgress(f.Progress),
		Description: f.Description,
	}
}

// OK reports a successful outcome.
func (o Outcome) OK() bool {
	return o.Code == CodeSuccess
}

// ClampProgress bounds p to [0,100].
func ClampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
