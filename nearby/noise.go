package nearby

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jlynch25/railid/hashing"
	"github.com/jlynch25/railid/ticketing"
	"github.com/perlin-network/noise"
	"github.com/perlin-network/noise/kademlia"
	"github.com/sirupsen/logrus"
)

const printedLength = 8 // prefix of a peer's public key shown in logs

// ErrNoReply is returned by Verify when the advertiser never answered.
var ErrNoReply = errors.New("nearby: no verification reply")

// NoiseConfig is where a noise node binds and how long sends may take.
type NoiseConfig struct {
	Host        net.IP
	Port        uint16
	Address     string
	SendTimeout time.Duration
}

// NoiseTransport carries frames between nodes on the local network.
type NoiseTransport struct {
	node        *noise.Node
	overlay     *kademlia.Protocol
	sendTimeout time.Duration
	log         *logrus.Entry

	mu       sync.RWMutex
	listener Listener
}

// NewNoiseTransport creates a node, registers the frame type and binds
// Kademlia. It does not listen until Advertise or Dial.
func NewNoiseTransport(cfg NoiseConfig, log *logrus.Entry) (*NoiseTransport, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	var opts []noise.NodeOption
	if cfg.Host != nil {
		opts = append(opts, noise.WithNodeBindHost(cfg.Host))
	}
	if cfg.Port != 0 {
		opts = append(opts, noise.WithNodeBindPort(cfg.Port))
	}
	if cfg.Address != "" {
		opts = append(opts, noise.WithNodeAddress(cfg.Address))
	}

	node, err := noise.NewNode(opts...)
	if err != nil {
		return nil, fmt.Errorf("create noise node: %w", err)
	}

	t := &NoiseTransport{
		node:        node,
		sendTimeout: cfg.SendTimeout,
		log:         log.WithField("component", "noise"),
	}
	if t.sendTimeout <= 0 {
		t.sendTimeout = 3 * time.Second
	}

	node.RegisterMessage(frame{}, unmarshalFrame)
	node.Handle(t.handle)

	events := kademlia.Events{
		OnPeerAdmitted: func(id noise.ID) {
			t.log.WithField("peer", peerName(id)).Debug("peer admitted")
			if l := t.currentListener(); l != nil {
				l.Connected(id.Address)
			}
		},
		OnPeerEvicted: func(id noise.ID) {
			t.log.WithField("peer", peerName(id)).Debug("peer evicted")
		},
	}
	t.overlay = kademlia.New(kademlia.WithProtocolEvents(events))
	node.Bind(t.overlay.Protocol())

	return t, nil
}

// Addr is the address peers dial. It is only complete after listening.
func (t *NoiseTransport) Addr() string {
	return t.node.Addr()
}

// Advertise starts listening and routes events to l.
func (t *NoiseTransport) Advertise(serviceID string, l Listener) error {
	t.setListener(l)
	if err := t.node.Listen(); err != nil {
		t.setListener(nil)
		return err
	}

	t.log.WithFields(logrus.Fields{"service": serviceID, "addr": t.node.Addr()}).Info("listening for conductors")
	return nil
}

// Send delivers payload to endpoint within the send timeout.
func (t *NoiseTransport) Send(ctx context.Context, endpoint, payload string) error {
	ctx, cancel := context.WithTimeout(ctx, t.sendTimeout)
	defer cancel()

	return t.node.SendMessage(ctx, endpoint, frame{text: payload})
}

// Bootstrap pings each address so the overlay admits it, then runs Discover.
// Unreachable peers are logged and skipped.
func (t *NoiseTransport) Bootstrap(ctx context.Context, addrs []string) []string {
	for _, addr := range addrs {
		pctx, cancel := context.WithTimeout(ctx, t.sendTimeout)
		err := t.overlay.Ping(pctx, addr)
		cancel()
		if err != nil {
			t.log.WithError(err).WithField("addr", addr).Warn("bootstrap peer unreachable")
		}
	}
	return t.Discover()
}

// Discover asks known peers for more peers and returns every address now known.
func (t *NoiseTransport) Discover() []string {
	t.overlay.Discover()

	var addrs []string
	for _, id := range t.overlay.Table().Peers() {
		addrs = append(addrs, id.Address)
	}
	return addrs
}

// Close releases the node.
func (t *NoiseTransport) Close() error {
	t.setListener(nil)
	return t.node.Close()
}

func (t *NoiseTransport) setListener(l Listener) {
	t.mu.Lock()
	t.listener = l
	t.mu.Unlock()
}

func (t *NoiseTransport) currentListener() Listener {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.listener
}

// handle passes frames from peers to the listener.
func (t *NoiseTransport) handle(ctx noise.HandlerContext) error {
	if ctx.IsRequest() {
		return nil
	}

	obj, err := ctx.DecodeMessage()
	if err != nil {
		return nil
	}

	msg, ok := obj.(frame)
	if !ok {
		return nil
	}

	if l := t.currentListener(); l != nil {
		l.Received(ctx.ID().Address, msg.text)
	}
	return nil
}

func peerName(id noise.ID) string {
	key := id.ID.String()
	if len(key) > printedLength {
		key = key[:printedLength]
	}
	return fmt.Sprintf("%s(%s)", id.Address, key)
}

// Initiator is the conductor's side: it connects to an advertiser and asks it
// to prove a ticket.
type Initiator struct {
	transport  *NoiseTransport
	advertiser string
	replies    chan string
}

// NewInitiator starts a listening conductor node with no advertiser yet.
func NewInitiator(cfg NoiseConfig, log *logrus.Entry) (*Initiator, error) {
	t, err := NewNoiseTransport(cfg, log)
	if err != nil {
		return nil, err
	}

	i := &Initiator{
		transport: t,
		replies:   make(chan string, 1),
	}
	if err := t.Advertise(ServiceID, replyListener{i.replies}); err != nil {
		t.Close()
		return nil, fmt.Errorf("listen: %w", err)
	}
	return i, nil
}

// Dial starts a conductor node and connects it to the advertiser at addr.
func Dial(ctx context.Context, cfg NoiseConfig, addr string, log *logrus.Entry) (*Initiator, error) {
	i, err := NewInitiator(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := i.Connect(ctx, addr); err != nil {
		i.Close()
		return nil, err
	}
	return i, nil
}

// Connect pings addr and makes it the advertiser Verify talks to.
func (i *Initiator) Connect(ctx context.Context, addr string) error {
	pctx, cancel := context.WithTimeout(ctx, i.transport.sendTimeout)
	defer cancel()

	if _, err := i.transport.node.Ping(pctx, addr); err != nil {
		return fmt.Errorf("ping advertiser %s: %w", addr, err)
	}
	i.advertiser = addr
	return nil
}

// Discover joins the overlay through bootstrap and returns every peer address
// it learns, bootstrap peers included.
func (i *Initiator) Discover(ctx context.Context, bootstrap []string) []string {
	return i.transport.Bootstrap(ctx, bootstrap)
}

// Verify sends VERIFY_REQUEST for ticketID and waits for the VERIFIED hash
// until ctx is done.
func (i *Initiator) Verify(ctx context.Context, ticketID string) (string, error) {
	if i.advertiser == "" {
		return "", ErrNoEndpoint
	}

	select {
	case <-i.replies:
	default:
	}

	if err := i.transport.Send(ctx, i.advertiser, VerifyRequest(ticketID).String()); err != nil {
		return "", fmt.Errorf("send request to %s: %w", i.advertiser, err)
	}

	select {
	case hash := <-i.replies:
		return hash, nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrNoReply, ctx.Err())
	}
}

// Close function
func (i *Initiator) Close() error {
	return i.transport.Close()
}

// replyListener keeps the latest VERIFIED hash and drops everything else.
type replyListener struct {
	replies chan string
}

func (replyListener) Connected(string) {}

func (r replyListener) Received(_, payload string) {
	msg := ParseMessage(payload)
	if msg.Kind != KindVerified {
		return
	}
	select {
	case r.replies <- msg.Value:
	default:
	}
}

// MatchesTicket reports whether hash is the device fingerprint of t.
func MatchesTicket(t ticketing.Ticket, hash string) bool {
	want := hashing.OrEmpty(t.DeviceFingerprint())
	return want != "" && hash == want
}
