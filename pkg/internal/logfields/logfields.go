// Package logfields builds structured log fields shared across packages.
package logfields

import (
	"github.com/bottlerocket-os/modota/pkg/event"
	"github.com/bottlerocket-os/modota/pkg/ota"
	"github.com/sirupsen/logrus"
)

// Event describes an inbound event.
func Event(ev *event.Inbound) logrus.Fields {
	fields := logrus.Fields{
		"event-type": ev.EventType,
	}
	if ev.EventID != "" {
		fields["event-id"] = ev.EventID
	}
	if ev.ServiceID != "" {
		fields["service-id"] = ev.ServiceID
	}
	return fields
}

// Package describes an offered package. Access tokens are never logged.
func Package(p *ota.Package) logrus.Fields {
	_, signed := p.Sign()
	return logrus.Fields{
		"module":   p.Module(),
		"version":  p.Version(),
		"url":      p.URL(),
		"file":     p.FileName(),
		"signed":   signed,
		"sign-alg": p.SignMethod(),
	}
}

// Outcome describes the end of an upgrade attempt.
func Outcome(o ota.Outcome) logrus.Fields {
	return logrus.Fields{
		"module":   o.Module,
		"event-id": o.EventID,
		"code":     int(o.Code),
		"result":   o.Code.String(),
		"progress": o.Progress,
	}
}
