package mqtt

import (
	"encoding/json"

	"github.com/bottlerocket-os/modota/pkg/event"
	"github.com/pkg/errors"
)

// frame is the JSON document exchanged on the event topics.
type frame struct {
	ObjectDeviceID string         `json:"object_device_id,omitempty"`
	Services       []serviceEvent `json:"services"`
}

type serviceEvent struct {
	ServiceID string                 `json:"service_id"`
	EventType string                 `json:"event_type"`
	EventTime string                 `json:"event_time,omitempty"`
	EventID   string                 `json:"event_id,omitempty"`
	Paras     map[string]interface{} `json:"paras"`
}

func upTopic(deviceID string) string {
	return "$oc/devices/" + deviceID + "/sys/events/up"
}

func downTopic(deviceID string) string {
	return "$oc/devices/" + deviceID + "/sys/events/down"
}

func encodeFrame(deviceID string, evs ...*event.Outbound) ([]byte, error) {
	f := frame{ObjectDeviceID: deviceID}
	for _, ev := range evs {
		paras := ev.Paras
		if paras == nil {
			paras = map[string]interface{}{}
		}
		f.Services = append(f.Services, serviceEvent{
			ServiceID: ev.ServiceID,
			EventType: ev.EventType,
			EventTime: ev.EventTime,
			EventID:   ev.EventID,
			Paras:     paras,
		})
	}
	raw, err := json.Marshal(f)
	return raw, errors.Wrap(err, "encode frame")
}

func decodeFrame(payload []byte) ([]*event.Inbound, error) {
	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, errors.Wrap(err, "decode frame")
	}
	evs := make([]*event.Inbound, 0, len(f.Services))
	for _, s := range f.Services {
		evs = append(evs, &event.Inbound{
			EventType:  s.EventType,
			EventID:    s.EventID,
			ServiceID:  s.ServiceID,
			EventTime:  s.EventTime,
			Parameters: s.Paras,
		})
	}
	return evs, nil
}
