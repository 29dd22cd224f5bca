package nearby

import (
	"context"
	"sync"

	"github.com/jlynch25/railid/gate"
	"github.com/jlynch25/railid/ticketing"
	"github.com/sirupsen/logrus"
)

// User-facing notices.
const (
	NoticeAdvertising  = "Advertising started"
	NoticeVerified     = "Ticket verified"
	NoticeTicketDiffer = "Ticket ID doesn't match"
	NoticeAuthFailed   = "Fingerprint doesn't match"
	NoticeSendFailed   = "Failed to send verification"
)

// Notifier shows short messages to the device's user.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// Notify calls f.
func (f NotifierFunc) Notify(msg string) { f(msg) }

// TicketFinder looks a ticket up by id.
type TicketFinder interface {
	FindByID(id string) (ticketing.Ticket, error)
}

// Responder is the traveller's side of verification. It answers requests for
// the ticket currently shown, after the device owner authenticates.
type Responder struct {
	session *Session
	tickets TicketFinder
	auth    gate.Authenticator
	notify  Notifier
	log     *logrus.Entry

	mu      sync.Mutex
	showing string
}

// NewResponder function
func NewResponder(session *Session, tickets TicketFinder, auth gate.Authenticator, notify Notifier, log *logrus.Entry) *Responder {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if notify == nil {
		notify = NotifierFunc(func(string) {})
	}
	return &Responder{
		session: session,
		tickets: tickets,
		auth:    auth,
		notify:  notify,
		log:     log,
	}
}

// Show sets the ticket open on screen. Requests for any other id are refused.
func (r *Responder) Show(ticketID string) {
	r.mu.Lock()
	r.showing = ticketID
	r.mu.Unlock()
}

// Start begins advertising. Requests are handled under ctx.
func (r *Responder) Start(ctx context.Context) error {
	if err := r.session.StartAdvertising(func(req Request) { r.Handle(ctx, req) }); err != nil {
		return err
	}
	r.notify.Notify(NoticeAdvertising)
	return nil
}

// Handle answers one request. Nothing is sent unless the ticket exists, is the
// one on screen and the device owner authenticates.
func (r *Responder) Handle(ctx context.Context, req Request) {
	log := r.log.WithFields(logrus.Fields{"ticket": req.TicketID, "endpoint": req.Endpoint})

	r.mu.Lock()
	showing := r.showing
	r.mu.Unlock()

	t, err := r.tickets.FindByID(req.TicketID)
	if err != nil || t.TicketID != showing {
		log.WithError(err).Debug("requested ticket is not on screen")
		r.session.Reject("ticket mismatch")
		r.notify.Notify(NoticeTicketDiffer)
		return
	}

	if err := gate.Require(ctx, r.auth); err != nil {
		r.session.Reject(err.Error())
		r.notify.Notify(NoticeAuthFailed)
		return
	}

	hash, err := t.DeviceFingerprint()
	if err != nil {
		r.session.Reject(err.Error())
		r.notify.Notify(NoticeTicketDiffer)
		return
	}

	if err := r.session.Respond(ctx, hash); err != nil {
		log.WithError(err).Error("verification response failed")
		r.session.Reject("send failed")
		r.notify.Notify(NoticeSendFailed)
		return
	}
	r.notify.Notify(NoticeVerified)
}
