package ticketing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jlynch25/railid/gate"
	"github.com/jlynch25/railid/hashing"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when no ticket has the requested id.
var ErrNotFound = errors.New("ticketing: ticket not found")

// Repository is the persistence the manager writes through. Update must return
// an error wrapping ErrNotFound, without writing, when id is unknown.
type Repository interface {
	Append(t Ticket) error
	Update(id string, fn func(*Ticket) error) error
}

// Manager creates and cancels tickets.
type Manager struct {
	repo Repository
	now  func() time.Time
	log  *logrus.Entry
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the manager's log entry.
func WithLogger(log *logrus.Entry) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// NewManager function
func NewManager(repo Repository, opts ...ManagerOption) *Manager {
	m := &Manager{
		repo: repo,
		now:  time.Now,
		log:  logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create turns a booking into an ACTIVE ticket and appends it to the
// repository.
func (m *Manager) Create(b BookingData, method AuthMethod) (Ticket, error) {
	if err := b.Validate(); err != nil {
		return Ticket{}, err
	}
	b = b.withGeneratedSeats()

	ids := make([]hashing.Identity, len(b.Passengers))
	for i, p := range b.Passengers {
		ids[i] = hashing.Identity{Name: p.Name, Age: p.Age, Gender: p.Gender}
	}

	t := Ticket{
		TicketID:      newTicketID(),
		TrainName:     b.Train.Name,
		TrainNumber:   b.Train.Number,
		Source:        b.Train.Source,
		Destination:   b.Train.Destination,
		Date:          b.Train.Date,
		DepartureTime: b.Train.Time,
		ArrivalTime:   ArrivalTime(b.Train.Time, b.Train.Source, b.Train.Destination),
		TravelClass:   b.Train.TravelClass,
		Passengers:    append([]Passenger(nil), b.Passengers...),
		SeatNumbers:   append([]string(nil), b.SeatNumbers...),
		AuthMethod:    method,
		BiometricHash: hashing.PassengerFingerprint(ids),
		TotalFare:     b.TotalFare,
		Fare:          b.Train.Fare,
		QRCodeData:    newQRCodeData(),
		Status:        StatusActive,
		BookingDate:   m.now().UnixNano() / int64(time.Millisecond),
	}
	if err := t.Validate(); err != nil {
		return Ticket{}, err
	}

	if err := m.repo.Append(t); err != nil {
		return Ticket{}, fmt.Errorf("save ticket %s: %w", t.TicketID, err)
	}

	m.log.WithFields(logrus.Fields{
		"ticket":     t.TicketID,
		"train":      t.TrainNumber,
		"passengers": len(t.Passengers),
		"auth":       method,
	}).Info("ticket issued")

	return t, nil
}

// Issue asks the device to authenticate the traveller and, on success, creates
// the ticket with fingerprint auth. Nothing is written otherwise.
func (m *Manager) Issue(ctx context.Context, b BookingData, auth gate.Authenticator) (Ticket, error) {
	if err := gate.Require(ctx, auth); err != nil {
		m.log.WithError(err).WithField("train", b.Train.Number).Warn("ticket issuance not authenticated")
		return Ticket{}, err
	}
	return m.Create(b, AuthFingerprint)
}

// Cancel marks a ticket CANCELLED. It needs an unused captcha pass; the pass is
// spent even when the ticket is not found. Cancelling a cancelled ticket again
// succeeds.
func (m *Manager) Cancel(ticketID string, pass *gate.Pass) error {
	if err := pass.Redeem(); err != nil {
		return err
	}

	err := m.repo.Update(ticketID, func(t *Ticket) error {
		switch t.Status {
		case StatusActive, StatusCancelled:
			t.Status = StatusCancelled
			return nil
		default:
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusCancelled)
		}
	})
	if err != nil {
		return err
	}

	m.log.WithField("ticket", ticketID).Info("ticket cancelled")
	return nil
}

// IsFutureTicket reports whether the ticket departs after the manager's now.
func (m *Manager) IsFutureTicket(t Ticket) bool {
	return t.IsFuture(m.now())
}
