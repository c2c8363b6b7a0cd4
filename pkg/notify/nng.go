package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/cluso-modeler/pkg/logging"
)

// Frames on the wire are "NOTIFY:<level>:" followed by the JSON notification,
// so subscribers can filter by prefix.
const framePrefix = "NOTIFY:"

func topicPrefix(level Level) []byte {
	return []byte(framePrefix + string(level) + ":")
}

// NNGPublisher broadcasts notifications on a mangos PUB socket.
type NNGPublisher struct {
	sock   mangos.Socket
	addr   string
	logger logging.Logger
	mu     sync.Mutex
	closed bool
}

// NewNNGPublisher listens on addr, e.g. "tcp://127.0.0.1:9310" or "inproc://notify".
func NewNNGPublisher(addr string, logger logging.Logger) (*NNGPublisher, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return &NNGPublisher{
		sock:   sock,
		addr:   addr,
		logger: logger.With(logging.Component("nng-notify")),
	}, nil
}

// Addr returns the listen address.
func (p *NNGPublisher) Addr() string {
	return p.addr
}

// Publish sends one notification. Errors are logged, never returned; a PUB
// socket drops messages nobody is subscribed to.
func (p *NNGPublisher) Publish(n Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		p.logger.Error("failed to encode notification", logging.Error(err))
		return
	}
	frame := append(topicPrefix(n.Level), data...)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if err := p.sock.Send(frame); err != nil {
		p.logger.Warn("failed to publish notification", logging.Error(err))
	}
}

func (p *NNGPublisher) NotifyError(msg string) {
	p.Publish(Notification{Level: LevelError, Message: msg, Time: time.Now()})
}

func (p *NNGPublisher) NotifySuccess(msg string) {
	p.Publish(Notification{Level: LevelSuccess, Message: msg, Time: time.Now()})
}

// Close closes the socket.
func (p *NNGPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.sock.Close()
}

// ErrTimeout is returned by NNGSubscriber.Recv when no notification arrived in time.
var ErrTimeout = errors.New("timed out waiting for notification")

// NNGSubscriber receives notifications from an NNGPublisher.
type NNGSubscriber struct {
	sock mangos.Socket
}

// DialNNGSubscriber connects to a publisher. With no levels it receives every
// notification.
func DialNNGSubscriber(addr string, levels ...Level) (*NNGSubscriber, error) {
	sock, err := sub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}

	topics := [][]byte{[]byte(framePrefix)}
	if len(levels) > 0 {
		topics = topics[:0]
		for _, l := range levels {
			topics = append(topics, topicPrefix(l))
		}
	}
	for _, topic := range topics {
		if err := sock.SetOption(mangos.OptionSubscribe, topic); err != nil {
			sock.Close()
			return nil, fmt.Errorf("failed to subscribe: %w", err)
		}
	}

	if err := sock.Dial(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &NNGSubscriber{sock: sock}, nil
}

// Recv waits up to timeout for the next notification.
func (s *NNGSubscriber) Recv(timeout time.Duration) (Notification, error) {
	if err := s.sock.SetOption(mangos.OptionRecvDeadline, timeout); err != nil {
		return Notification{}, err
	}
	frame, err := s.sock.Recv()
	if err != nil {
		if errors.Is(err, mangos.ErrRecvTimeout) {
			return Notification{}, ErrTimeout
		}
		return Notification{}, err
	}
	return decodeFrame(frame)
}

// Close closes the socket.
func (s *NNGSubscriber) Close() error {
	return s.sock.Close()
}

func decodeFrame(frame []byte) (Notification, error) {
	if !bytes.HasPrefix(frame, []byte(framePrefix)) {
		return Notification{}, fmt.Errorf("unexpected frame %q", frame)
	}
	rest := frame[len(framePrefix):]
	i := bytes.IndexByte(rest, ':')
	if i < 0 {
		return Notification{}, fmt.Errorf("frame without level: %q", frame)
	}
	var n Notification
	if err := json.Unmarshal(rest[i+1:], &n); err != nil {
		return Notification{}, fmt.Errorf("invalid notification payload: %w", err)
	}
	return n, nil
}
