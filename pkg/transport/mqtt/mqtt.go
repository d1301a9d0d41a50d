// Package mqtt connects the agent to the platform's MQTT broker.
package mqtt

import (
	"context"
	"crypto/tls"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/bottlerocket-os/modota/pkg/event"
	"github.com/bottlerocket-os/modota/pkg/logging"
	"github.com/bottlerocket-os/modota/pkg/transport"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

const (
	maxRetryInterval    = 60 * time.Second
	jitterPeakAmplitude = 1000
	disconnectQuiesce   = 250
)

// Config selects the broker and the device identity.
type Config struct {
	Broker   string
	DeviceID string
	Secret   string
	TLS      *tls.Config
	// QoS of subscriptions and publications, 1 when unset.
	QoS       byte
	KeepAlive time.Duration
}

// Client is a transport.Client over MQTT.
type Client struct {
	log      logging.Logger
	config   Config
	client   paho.Client
	handler  transport.Handler
	listener transport.ConnectListener

	connected int32
	now       func() time.Time
}

var _ transport.Client = (*Client)(nil)

// New creates a Client delivering inbound events to handler. The listener is
// told about the connection's lifecycle.
func New(config Config, handler transport.Handler, listener transport.ConnectListener) *Client {
	if config.QoS == 0 {
		config.QoS = 1
	}
	if config.KeepAlive <= 0 {
		config.KeepAlive = 30 * time.Second
	}
	c := &Client{
		log:      logging.New("mqtt").WithField("broker", config.Broker),
		config:   config,
		handler:  handler,
		listener: listener,
		now:      time.Now,
	}
	c.client = paho.NewClient(c.options())
	return c
}

func (c *Client) options() *paho.ClientOptions {
	creds := deviceCredentials(c.config.DeviceID, c.config.Secret, c.now())
	opts := paho.NewClientOptions().
		AddBroker(c.config.Broker).
		SetClientID(creds.ClientID).
		SetUsername(creds.Username).
		SetPassword(creds.Password).
		SetCleanSession(false).
		SetKeepAlive(c.config.KeepAlive).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(maxRetryInterval)
	if c.config.TLS != nil {
		opts.SetTLSConfig(c.config.TLS)
	}
	opts.OnConnect = c.onConnect
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		if c.listener != nil {
			c.listener.ConnectionLost(err)
		}
	}
	return opts
}

func (c *Client) onConnect(client paho.Client) {
	topic := downTopic(c.config.DeviceID)
	if token := client.Subscribe(topic, c.config.QoS, c.onMessage); token.Wait() && token.Error() != nil {
		c.log.WithError(token.Error()).WithField("topic", topic).Error("subscribe failed")
		if c.listener != nil {
			c.listener.ConnectFail(errors.Wrapf(token.Error(), "subscribe %s", topic))
		}
		return
	}
	c.log.WithField("topic", topic).Info("subscribed")
	reconnect := !atomic.CompareAndSwapInt32(&c.connected, 0, 1)
	if c.listener != nil {
		c.listener.ConnectComplete(reconnect, c.config.Broker)
	}
}

func (c *Client) onMessage(_ paho.Client, msg paho.Message) {
	evs, err := decodeFrame(msg.Payload())
	if err != nil {
		c.log.WithError(err).WithField("topic", msg.Topic()).Error("dropping malformed message")
		return
	}
	for _, ev := range evs {
		c.handler.Dispatch(ev)
	}
}

// SetConnectListener replaces the lifecycle listener. It must be called
// before Connect.
func (c *Client) SetConnectListener(l transport.ConnectListener) {
	c.listener = l
}

// Connect connects to the broker, retrying with exponential backoff and
// jitter until it succeeds or ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	retryInterval := time.Second
	for {
		token := c.client.Connect()
		err := wait(ctx, token)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.listener != nil {
			c.listener.ConnectFail(err)
		}
		withJitter := retryInterval + time.Duration(rand.Int31n(jitterPeakAmplitude))*time.Millisecond
		c.log.WithError(err).WithField("retry-in", withJitter).Warn("connect failed")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(withJitter):
		}
		retryInterval *= 2
		if retryInterval > maxRetryInterval {
			retryInterval = maxRetryInterval
		}
	}
}

// ReportEvent publishes ev on the device's up topic.
func (c *Client) ReportEvent(ctx context.Context, ev *event.Outbound) error {
	payload, err := encodeFrame(c.config.DeviceID, ev)
	if err != nil {
		return err
	}
	topic := upTopic(c.config.DeviceID)
	if err := wait(ctx, c.client.Publish(topic, c.config.QoS, false, payload)); err != nil {
		return errors.Wrapf(err, "publish %s", topic)
	}
	return nil
}

// Disconnect closes the connection.
func (c *Client) Disconnect() {
	c.client.Disconnect(disconnectQuiesce)
}

func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
