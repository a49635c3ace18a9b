package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"surfsup-server/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	StateOnline  = "online"
	StateOffline = "offline"
)

// Status is the retained service-status document.
type Status struct {
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
	Routes    []string  `json:"routes,omitempty"`
}

// Publisher announces the service on a retained status topic. The broker
// publishes the offline last-will if the process dies without Disconnect.
// A Publisher built without a broker is disabled and every method is a no-op.
type Publisher struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	status    Status
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, logger *slog.Logger, status Status) (*Publisher, error) {
	p := &Publisher{
		cfg:    cfg,
		logger: logger,
		status: status,
		stopCh: make(chan struct{}),
	}
	if !p.Enabled() {
		return p, nil
	}

	will, err := encodeStatus(status, StateOffline)
	if err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)
	opts.SetBinaryWill(cfg.MQTTStatusTopic, will, 1, true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Republish on every (re)connect so the retained message tracks the
	// current session after a broker restart.
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		go func() {
			if err := p.publish(StateOnline); err != nil {
				logger.Warn("mqtt status publish failed", "error", err)
			}
		}()
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p, nil
}

// Enabled reports whether a broker is configured.
func (p *Publisher) Enabled() bool {
	return p != nil && p.cfg.MQTTBroker != ""
}

// Connect waits for the initial connection and respects ctx and Disconnect.
func (p *Publisher) Connect(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	select {
	case <-p.stopCh:
		return fmt.Errorf("publisher stopped")
	default:
	}
	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return fmt.Errorf("publisher stopped")
		default:
		}
	}
}

func (p *Publisher) publish(state string) error {
	if !p.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}
	data, err := encodeStatus(p.status, state)
	if err != nil {
		return err
	}

	topic := p.cfg.MQTTStatusTopic
	token := p.client.Publish(topic, 1, true, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish status: %w", token.Error())
	}

	p.logger.Debug("published status", "topic", topic, "state", state)
	return nil
}

func (p *Publisher) IsConnected() bool {
	if !p.Enabled() || p.client == nil {
		return false
	}
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect publishes the offline state and closes the connection.
// Idempotent; after Disconnect, Connect returns "publisher stopped".
func (p *Publisher) Disconnect() {
	if !p.Enabled() {
		return
	}
	p.stopOnce.Do(func() { close(p.stopCh) })

	if p.IsConnected() {
		if err := p.publish(StateOffline); err != nil {
			p.logger.Warn("mqtt offline status publish failed", "error", err)
		}
	}
	if p.client != nil {
		p.client.Disconnect(250)
	}

	p.setConnected(false)
	p.logger.Info("mqtt disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func encodeStatus(s Status, state string) ([]byte, error) {
	s.State = state
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal status: %w", err)
	}
	return data, nil
}
