// Package ticketing models railid bookings and tickets and drives their
// lifecycle: a validated booking becomes a persisted ACTIVE ticket, and a
// captcha-confirmed cancel flips it to CANCELLED.
package ticketing

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPassengers is the per-booking passenger limit.
const MaxPassengers = 6

// ErrValidation is wrapped by every construction or invariant failure.
var ErrValidation = errors.New("ticketing: validation failed")

// AuthMethod records how the traveller authenticated the booking.
type AuthMethod string

// Supported auth methods.
const (
	AuthFingerprint AuthMethod = "FINGERPRINT"
	AuthFace        AuthMethod = "FACE"
	AuthNone        AuthMethod = "NONE"
)

// Passenger struct
type Passenger struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

// NewPassenger validates and builds a passenger. An empty gender means "O".
func NewPassenger(name string, age int, gender string) (Passenger, error) {
	p := Passenger{Name: name, Age: age, Gender: gender}
	if p.Gender == "" {
		p.Gender = "O"
	}
	return p, p.Validate()
}

// Validate function
func (p Passenger) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: passenger name is empty", ErrValidation)
	}
	if p.Age < 1 || p.Age > 120 {
		return fmt.Errorf("%w: passenger age %d out of range 1-120", ErrValidation, p.Age)
	}
	switch p.Gender {
	case "M", "F", "O":
	default:
		return fmt.Errorf("%w: passenger gender %q not one of M, F, O", ErrValidation, p.Gender)
	}
	return nil
}

// Train is a search result snapshot.
type Train struct {
	Name        string  `json:"name"`
	Number      string  `json:"number"`
	Time        string  `json:"time"`
	Date        string  `json:"date"`
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	TravelClass string  `json:"travelClass"`
	Seats       int     `json:"seats"`
	Fare        float64 `json:"fare"`
}

// Validate function
func (t Train) Validate() error {
	if t.Fare <= 0 {
		return fmt.Errorf("%w: train fare %v must be positive", ErrValidation, t.Fare)
	}
	// These fields are joined with ':' in the QR payload.
	for _, v := range []string{t.Number, t.Source, t.Destination} {
		if strings.Contains(v, qrSeparator) {
			return fmt.Errorf("%w: %q may not contain %q", ErrValidation, v, qrSeparator)
		}
	}
	return nil
}

// BookingData is the transient selection handed to ticket creation. Build it
// with NewBooking.
type BookingData struct {
	Train       Train
	Passengers  []Passenger
	AuthMethod  AuthMethod
	SeatNumbers []string
	TotalFare   float64
}

// BookingOption tweaks NewBooking.
type BookingOption func(*BookingData)

// WithSeats supplies explicit seat numbers. Their count must match the
// passengers.
func WithSeats(seats ...string) BookingOption {
	return func(b *BookingData) {
		b.SeatNumbers = append([]string(nil), seats...)
	}
}

// WithTotalFare overrides the fare x passengers total.
func WithTotalFare(total float64) BookingOption {
	return func(b *BookingData) {
		b.TotalFare = total
	}
}

// NewBooking validates the selection, derives the total fare and fills in seat
// numbers when none were supplied.
func NewBooking(train Train, passengers []Passenger, method AuthMethod, opts ...BookingOption) (BookingData, error) {
	b := BookingData{
		Train:      train,
		Passengers: append([]Passenger(nil), passengers...),
		AuthMethod: method,
		TotalFare:  train.Fare * float64(len(passengers)),
	}
	for _, opt := range opts {
		opt(&b)
	}

	if err := b.Validate(); err != nil {
		return BookingData{}, err
	}
	return b.withGeneratedSeats(), nil
}

// Validate function
func (b BookingData) Validate() error {
	if err := b.Train.Validate(); err != nil {
		return err
	}
	if len(b.Passengers) == 0 {
		return fmt.Errorf("%w: booking has no passengers", ErrValidation)
	}
	if len(b.Passengers) > MaxPassengers {
		return fmt.Errorf("%w: %d passengers exceeds %d", ErrValidation, len(b.Passengers), MaxPassengers)
	}
	for _, p := range b.Passengers {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if len(b.SeatNumbers) > 0 && len(b.SeatNumbers) != len(b.Passengers) {
		return fmt.Errorf("%w: %d seats for %d passengers", ErrValidation, len(b.SeatNumbers), len(b.Passengers))
	}
	return nil
}

func (b BookingData) withGeneratedSeats() BookingData {
	if len(b.SeatNumbers) > 0 {
		return b
	}

	seats := make([]string, len(b.Passengers))
	for i := range b.Passengers {
		seats[i] = fmt.Sprintf("%s-%d", b.Train.TravelClass, i+1)
	}
	b.SeatNumbers = seats
	return b
}
