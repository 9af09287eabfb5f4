package broker

import (
	"errors"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/hamed0406/mqttprobe/internal/domain"
)

// Client is the part of mqtt.Client a probe session drives.
type Client interface {
	Connect() mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Disconnect(quiesce uint)
}

// ClientFactory builds a client from options. Production code uses paho.
type ClientFactory func(opts *mqtt.ClientOptions) Client

func pahoClient(opts *mqtt.ClientOptions) Client { return mqtt.NewClient(opts) }

// Options for a single probe.
type Options struct {
	Port          int
	Username      string
	Password      string
	WebsocketPath string
	Interval      time.Duration // the monitor interval; the wait budget is derived from it
}

// disconnectQuiesce is how long Disconnect may wait for in-flight work (ms).
const disconnectQuiesce = 250

// subackFailure is the SUBACK return code for a refused subscription.
const subackFailure = 0x80

// Prober runs probe sessions. It holds no per-probe state and is safe for
// concurrent use; every Run owns its own client and timer.
type Prober struct {
	logger    *zap.Logger
	newClient ClientFactory
}

func NewProber(logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{logger: logger, newClient: pahoClient}
}

type outcome struct {
	payload string
	err     error
}

type session struct {
	topic  string
	client Client
	logger *zap.Logger
	result chan outcome  // capacity 1: the first outcome sticks, later ones are dropped
	done   chan struct{} // closed once Run has settled
}

// Run connects, subscribes to topic and returns the first message published
// on it. It fails with a *domain.Failure of kind Timeout, Connect, Subscribe
// or Protocol. The client is disconnected exactly once on every path.
func (p *Prober) Run(hostname, topic string, o Options) (string, error) {
	brokerURL := BrokerURL(hostname, o.Port, o.WebsocketPath)
	budget := Timeout(o.Interval)

	s := &session{
		topic:  topic,
		logger: p.logger.With(zap.String("topic", topic)),
		result: make(chan outcome, 1),
		done:   make(chan struct{}),
	}

	timer := time.NewTimer(budget)
	defer timer.Stop()

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(ClientID()).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(budget).
		SetDefaultPublishHandler(s.onMessage).
		SetConnectionLostHandler(s.onConnectionLost).
		SetOnConnectHandler(s.onConnect)

	p.logger.Debug("mqtt_connecting", zap.String("url", brokerURL), zap.Duration("timeout", budget))
	s.client = p.newClient(opts)
	go s.connect()

	var out outcome
	select {
	case out = <-s.result:
	case <-timer.C:
		s.logger.Debug("mqtt_timeout")
		out = outcome{err: &domain.Failure{Kind: domain.KindTimeout, Topic: topic}}
	}
	close(s.done)
	s.client.Disconnect(disconnectQuiesce)
	return out.payload, out.err
}

func (s *session) resolve(o outcome) {
	select {
	case s.result <- o:
	default:
	}
}

func (s *session) fail(kind domain.FailureKind, err error) {
	s.resolve(outcome{err: &domain.Failure{Kind: kind, Topic: s.topic, Err: err}})
}

func (s *session) connect() {
	tok := s.client.Connect()
	select {
	case <-tok.Done():
	case <-s.done:
		return
	}
	if err := tok.Error(); err != nil {
		s.fail(domain.KindConnect, err)
	}
}

// onConnect issues the subscribe without blocking on the acknowledgement.
// A refused or failed subscribe still resolves the session.
func (s *session) onConnect(mqtt.Client) {
	s.logger.Debug("mqtt_connected")
	tok := s.client.Subscribe(s.topic, 0, s.onMessage)
	go func() {
		select {
		case <-tok.Done():
		case <-s.done:
			return
		}
		if err := subscribeError(tok, s.topic); err != nil {
			s.fail(domain.KindSubscribe, err)
			return
		}
		s.logger.Debug("mqtt_subscribed")
	}()
}

func (s *session) onConnectionLost(_ mqtt.Client, err error) {
	s.fail(domain.KindProtocol, err)
}

func (s *session) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if msg.Topic() != s.topic {
		s.logger.Debug("mqtt_message_ignored", zap.String("message_topic", msg.Topic()))
		return
	}
	s.resolve(outcome{payload: strings.ToValidUTF8(string(msg.Payload()), "\uFFFD")})
}

func subscribeError(tok mqtt.Token, topic string) error {
	if err := tok.Error(); err != nil {
		return err
	}
	if st, ok := tok.(*mqtt.SubscribeToken); ok {
		if qos, ok := st.Result()[topic]; ok && qos == subackFailure {
			return errors.New("subscription refused by broker")
		}
	}
	return nil
}
