package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jlynch25/railid/ticketing"
	"github.com/sirupsen/logrus"
)

// TicketsKey is the key the ticket list lives under.
const TicketsKey = "all_tickets"

// CorruptPolicy decides what a read does with a list that fails to decode.
type CorruptPolicy int

const (
	// Strict surfaces ErrCorrupt to the caller and refuses to write over the
	// damaged value.
	Strict CorruptPolicy = iota
	// EmptyOnCorrupt treats a damaged list as empty, so the next write replaces
	// it and every stored ticket is lost.
	EmptyOnCorrupt
)

// ParseCorruptPolicy accepts "strict" or "empty".
func ParseCorruptPolicy(s string) (CorruptPolicy, error) {
	switch s {
	case "", "strict":
		return Strict, nil
	case "empty":
		return EmptyOnCorrupt, nil
	}
	return Strict, fmt.Errorf("unknown corrupt policy %q", s)
}

// Tickets is the ticket collection. Every write rewrites the whole list.
type Tickets struct {
	kv     KV
	policy CorruptPolicy
	log    *logrus.Entry

	// mu serializes read-modify-write cycles within this process only.
	mu sync.Mutex
}

// TicketsOption configures Tickets.
type TicketsOption func(*Tickets)

// WithCorruptPolicy function
func WithCorruptPolicy(p CorruptPolicy) TicketsOption {
	return func(t *Tickets) { t.policy = p }
}

// WithLogger function
func WithLogger(log *logrus.Entry) TicketsOption {
	return func(t *Tickets) { t.log = log }
}

// NewTickets function
func NewTickets(kv KV, opts ...TicketsOption) *Tickets {
	t := &Tickets{
		kv:  kv,
		log: logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (s *Tickets) load() ([]ticketing.Ticket, error) {
	raw, err := s.kv.Get(TicketsKey)
	if errors.Is(err, ErrKeyNotFound) {
		return []ticketing.Ticket{}, nil
	}
	if err != nil {
		return nil, err
	}

	tickets, err := DecodeTickets(raw)
	if err != nil {
		if s.policy == EmptyOnCorrupt {
			s.log.WithError(err).Warn("ticket list unreadable, treating as empty")
			return []ticketing.Ticket{}, nil
		}
		return nil, err
	}
	return tickets, nil
}

func (s *Tickets) save(tickets []ticketing.Ticket) error {
	raw, err := EncodeTickets(tickets)
	if err != nil {
		return err
	}
	return s.kv.Set(TicketsKey, raw)
}

// All returns every ticket in insertion order.
func (s *Tickets) All() ([]ticketing.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

// Append adds a ticket at the end of the list.
func (s *Tickets) Append(t ticketing.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append(tickets, t))
}

// ListByStatus filters in insertion order.
func (s *Tickets) ListByStatus(status ticketing.TicketStatus) ([]ticketing.Ticket, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}

	matched := []ticketing.Ticket{}
	for _, t := range all {
		if t.Status == status {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

// MyBookings is the unsorted list of active tickets.
func (s *Tickets) MyBookings() ([]ticketing.Ticket, error) {
	return s.ListByStatus(ticketing.StatusActive)
}

// Active lists active tickets by travel date, earliest first. Tickets on the
// same date keep insertion order.
func (s *Tickets) Active() ([]ticketing.Ticket, error) {
	active, err := s.ListByStatus(ticketing.StatusActive)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Date < active[j].Date
	})
	return active, nil
}

// FindByID returns the first ticket with the id.
func (s *Tickets) FindByID(id string) (ticketing.Ticket, error) {
	all, err := s.All()
	if err != nil {
		return ticketing.Ticket{}, err
	}

	for _, t := range all {
		if t.TicketID == id {
			return t, nil
		}
	}
	return ticketing.Ticket{}, fmt.Errorf("%w: %s", ticketing.ErrNotFound, id)
}

// ReplaceAll overwrites the collection.
func (s *Tickets) ReplaceAll(tickets []ticketing.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(tickets)
}

// Update applies fn to the first ticket with the id and rewrites the list. If
// the id is unknown or fn fails, nothing is written.
func (s *Tickets) Update(id string, fn func(*ticketing.Ticket) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets, err := s.load()
	if err != nil {
		return err
	}

	for i := range tickets {
		if tickets[i].TicketID != id {
			continue
		}
		if err := fn(&tickets[i]); err != nil {
			return err
		}
		return s.save(tickets)
	}
	return fmt.Errorf("%w: %s", ticketing.ErrNotFound, id)
}
