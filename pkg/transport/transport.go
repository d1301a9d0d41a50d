// Package transport declares what the agent needs from the connection to the
// platform. Implementations own their wire framing.
package transport

import (
	"context"

	"github.com/bottlerocket-os/modota/pkg/event"
)

// Client sends device events to the platform.
type Client interface {
	ReportEvent(ctx context.Context, ev *event.Outbound) error
}

// Handler receives each inbound event decoded by a transport.
type Handler interface {
	Dispatch(ev *event.Inbound)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(ev *event.Inbound)

func (f HandlerFunc) Dispatch(ev *event.Inbound) { f(ev) }

// ConnectListener is told about the connection's lifecycle.
type ConnectListener interface {
	ConnectComplete(reconnect bool, serverURI string)
	ConnectionLost(err error)
	ConnectFail(err error)
}
