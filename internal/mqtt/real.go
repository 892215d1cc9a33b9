package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/okay-to-wake/internal/logic"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second

	// DefaultBufferSize is how many messages are held while disconnected.
	DefaultBufferSize = 100
)

// pahoClient is the subset of paho.Client the RealClient uses.
type pahoClient interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	SubscribeMultiple(filters map[string]byte, callback paho.MessageHandler) paho.Token
	Disconnect(quiesce uint)
}

// Config configures a RealClient.
type Config struct {
	Broker     string
	ClientID   string
	Prefix     string
	BufferSize int

	// OnSchedule, if set, receives payloads published to the schedule topics.
	OnSchedule ScheduleHandler
}

// RealClient publishes to an actual MQTT broker and subscribes to schedule
// updates. Messages published while the connection is down are buffered
// and replayed in order on reconnect.
type RealClient struct {
	client     pahoClient
	topics     Topics
	onSchedule ScheduleHandler
	logger     *zap.Logger

	mu            sync.Mutex
	buf           *outbox
	everConnected bool
}

// NewRealClient connects to cfg.Broker. If the broker does not answer within
// the connect timeout the client is still returned: paho keeps retrying in
// the background and messages are buffered until it succeeds.
func NewRealClient(cfg Config, logger *zap.Logger) (*RealClient, error) {
	c := newClient(nil, cfg, logger)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "okay-to-wake"
	}
	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(c.topics.System, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { c.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.logger.Warn("connection lost", zap.Error(err))
		})

	client := paho.NewClient(opts)
	c.client = client

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		c.logger.Warn("broker not reachable yet, buffering until connected", zap.String("broker", cfg.Broker))
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return c, nil
}

func newClient(client pahoClient, cfg Config, logger *zap.Logger) *RealClient {
	size := cfg.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &RealClient{
		client:     client,
		topics:     NewTopics(cfg.Prefix),
		onSchedule: cfg.OnSchedule,
		logger:     logger.With(zap.String("component", "mqtt")),
		buf:        newOutbox(size),
	}
}

// onConnect subscribes to the schedule topics and replays anything buffered
// while offline. paho calls it on every (re)connect.
func (c *RealClient) onConnect() {
	c.mu.Lock()
	reconnect := c.everConnected
	c.everConnected = true
	c.mu.Unlock()

	if c.onSchedule != nil {
		token := c.client.SubscribeMultiple(c.topics.ScheduleFilters(), c.handleMessage)
		if !token.WaitTimeout(publishTimeout) {
			c.logger.Error("subscribe timeout", zap.String("topic", c.topics.Schedule+"/#"))
		} else if err := token.Error(); err != nil {
			c.logger.Error("subscribe failed", zap.Error(err))
		}
	}

	c.replay()

	if reconnect {
		c.logger.Info("reconnected to broker")
		if err := c.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}); err != nil {
			c.logger.Warn("publish reconnect event", zap.Error(err))
		}
	}
}

func (c *RealClient) handleMessage(_ paho.Client, msg paho.Message) {
	kind, ok := c.topics.KindFor(msg.Topic())
	if !ok {
		c.logger.Debug("ignoring message on unexpected topic", zap.String("topic", msg.Topic()))
		return
	}
	if msg.Retained() {
		c.logger.Debug("received retained schedule", zap.String("kind", string(kind)))
	}
	c.onSchedule(msg.Payload(), kind)
}

func (c *RealClient) replay() {
	c.mu.Lock()
	msgs, dropped := c.buf.drain()
	c.mu.Unlock()

	if dropped > 0 {
		c.logger.Warn("messages lost while disconnected", zap.Int("dropped", dropped))
	}
	if len(msgs) == 0 {
		return
	}
	c.logger.Info("replaying buffered messages", zap.Int("count", len(msgs)))
	for _, m := range msgs {
		if err := c.send(m); err != nil {
			c.logger.Warn("replay failed", zap.String("topic", m.topic), zap.Error(err))
		}
	}
}

// publish sends msg now, or buffers it if the connection is down.
func (c *RealClient) publish(msg bufferedMsg) error {
	if !c.client.IsConnectionOpen() {
		c.mu.Lock()
		firstDrop := c.buf.push(msg)
		c.mu.Unlock()
		if firstDrop {
			c.logger.Warn("buffer full, dropping oldest", zap.Int("capacity", c.buf.capacity))
		}
		return nil
	}
	return c.send(msg)
}

func (c *RealClient) send(msg bufferedMsg) error {
	token := c.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// Publish sends a state change. State messages are retained so a new
// subscriber sees the current light immediately.
func (c *RealClient) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return c.publish(bufferedMsg{topic: c.topics.State, payload: payload, qos: 1, retained: true})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) - we want to ensure delivery
	return c.publish(bufferedMsg{topic: c.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the connection to the broker is up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (c *RealClient) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.len()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
