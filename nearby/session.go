// Package nearby runs the proximity verification exchange between a
// traveller's device (the advertiser) and a conductor's device (the initiator).
package nearby

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrAdvertising is returned by StartAdvertising on a live session.
	ErrAdvertising = errors.New("nearby: session already advertising")
	// ErrNoEndpoint is returned by Respond before any peer has connected.
	ErrNoEndpoint = errors.New("nearby: no connected endpoint")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("nearby: session closed")
)

// State of an advertising session.
type State int

// Session states.
const (
	Idle State = iota
	Advertising
	Connected
	AwaitingChallenge
	Verified
	Rejected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Advertising:
		return "advertising"
	case Connected:
		return "connected"
	case AwaitingChallenge:
		return "awaiting-challenge"
	case Verified:
		return "verified"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Listener receives transport events. Implementations are called from the
// transport's goroutines.
type Listener interface {
	Connected(endpoint string)
	Received(endpoint, payload string)
}

// Transport is the local peer channel an advertiser listens on.
type Transport interface {
	Advertise(serviceID string, l Listener) error
	Send(ctx context.Context, endpoint, payload string) error
	Close() error
}

// Request is a verification request as seen by the advertiser.
type Request struct {
	Endpoint string
	TicketID string
}

// RequestFunc handles a verification request.
type RequestFunc func(req Request)

// Session is one advertising session: its state, the endpoint that connected
// last and the callback for verification requests. A session is started once
// and torn down with Close.
type Session struct {
	transport Transport
	log       *logrus.Entry

	mu              sync.Mutex
	state           State
	currentEndpoint string
	pendingCallback RequestFunc
	pendingTicket   string
	closed          bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger function
func WithLogger(log *logrus.Entry) SessionOption {
	return func(s *Session) { s.log = log }
}

// NewSession function
func NewSession(t Transport, opts ...SessionOption) *Session {
	s := &Session{
		transport: t,
		log:       logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartAdvertising publishes the session under ServiceID. onVerifyRequest is
// called for every VERIFY_REQUEST frame until Close.
func (s *Session) StartAdvertising(onVerifyRequest RequestFunc) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != Idle {
		s.mu.Unlock()
		return ErrAdvertising
	}
	s.pendingCallback = onVerifyRequest
	s.state = Advertising
	s.mu.Unlock()

	if err := s.transport.Advertise(ServiceID, listener{s}); err != nil {
		s.mu.Lock()
		s.state = Idle
		s.pendingCallback = nil
		s.mu.Unlock()
		return fmt.Errorf("advertise %s: %w", ServiceID, err)
	}

	s.log.WithField("service", ServiceID).Info("advertising started")
	return nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentEndpoint returns the endpoint a response would go to.
func (s *Session) CurrentEndpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentEndpoint
}

// PendingTicket returns the ticket id of the request being handled, if any.
func (s *Session) PendingTicket() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingTicket
}

func (s *Session) connected(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Idle || s.closed {
		return
	}
	if s.currentEndpoint != "" && s.currentEndpoint != endpoint {
		s.log.WithFields(logrus.Fields{"previous": s.currentEndpoint, "endpoint": endpoint}).Debug("endpoint replaced")
	}
	s.currentEndpoint = endpoint
	if s.state != AwaitingChallenge {
		s.state = Connected
	}
}

func (s *Session) received(endpoint, payload string) {
	msg := ParseMessage(payload)
	if msg.Kind != KindVerifyRequest {
		s.log.WithField("endpoint", endpoint).Debug("ignoring unrecognized frame")
		return
	}

	s.mu.Lock()
	if s.state == Idle || s.closed {
		s.mu.Unlock()
		return
	}
	s.currentEndpoint = endpoint
	s.pendingTicket = msg.Value
	s.state = AwaitingChallenge
	cb := s.pendingCallback
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"endpoint": endpoint, "ticket": msg.Value}).Info("verification requested")
	if cb != nil {
		cb(Request{Endpoint: endpoint, TicketID: msg.Value})
	}
}

// Respond sends VERIFIED:<hash> to the last connected endpoint and moves the
// session to Verified.
func (s *Session) Respond(ctx context.Context, hash string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	endpoint := s.currentEndpoint
	s.mu.Unlock()

	if endpoint == "" {
		return ErrNoEndpoint
	}
	if err := s.transport.Send(ctx, endpoint, VerifiedMessage(hash).String()); err != nil {
		return fmt.Errorf("send verification to %s: %w", endpoint, err)
	}

	s.mu.Lock()
	s.state = Verified
	s.pendingTicket = ""
	s.mu.Unlock()

	s.log.WithField("endpoint", endpoint).Info("verification sent")
	return nil
}

// Reject drops the pending request without answering it.
func (s *Session) Reject(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.log.WithFields(logrus.Fields{"ticket": s.pendingTicket, "reason": reason}).Warn("verification rejected")
	s.state = Rejected
	s.pendingTicket = ""
}

// Close stops advertising and forgets the endpoint. The session cannot be
// restarted.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.state = Idle
	s.currentEndpoint = ""
	s.pendingCallback = nil
	s.pendingTicket = ""
	s.mu.Unlock()

	return s.transport.Close()
}

// listener adapts Session to Listener without exporting its event methods.
type listener struct {
	s *Session
}

func (l listener) Connected(endpoint string)         { l.s.connected(endpoint) }
func (l listener) Received(endpoint, payload string) { l.s.received(endpoint, payload) }
