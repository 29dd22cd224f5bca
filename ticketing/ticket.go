package ticketing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jlynch25/railid/hashing"
	"github.com/mr-tron/base58"
)

const (
	dateLayout     = "2006-01-02"
	clockLayout    = "15:04"
	dateTimeLayout = dateLayout + " " + clockLayout
)

// ErrInvalidTransition is returned when a status change is not allowed from
// the ticket's current status.
var ErrInvalidTransition = errors.New("ticketing: invalid status transition")

// TicketStatus is where a ticket is in its lifecycle.
type TicketStatus string

// Ticket statuses. Only Active -> Cancelled is ever triggered; Completed and
// Expired have no producer.
const (
	StatusActive    TicketStatus = "ACTIVE"
	StatusCancelled TicketStatus = "CANCELLED"
	StatusCompleted TicketStatus = "COMPLETED"
	StatusExpired   TicketStatus = "EXPIRED"
)

// ParseStatus function
func ParseStatus(s string) (TicketStatus, error) {
	switch st := TicketStatus(strings.ToUpper(s)); st {
	case StatusActive, StatusCancelled, StatusCompleted, StatusExpired:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
}

// Ticket is the durable record of a completed booking.
type Ticket struct {
	TicketID      string       `json:"ticketId"`
	TrainName     string       `json:"trainName"`
	TrainNumber   string       `json:"trainNumber"`
	Source        string       `json:"source"`
	Destination   string       `json:"destination"`
	Date          string       `json:"date"`
	DepartureTime string       `json:"departureTime"`
	ArrivalTime   string       `json:"arrivalTime"`
	TravelClass   string       `json:"travelClass"`
	Passengers    []Passenger  `json:"passengers"`
	SeatNumbers   []string     `json:"seatNumbers"`
	AuthMethod    AuthMethod   `json:"authMethod"`
	BiometricHash string       `json:"biometricHash"`
	TotalFare     float64      `json:"totalFare"`
	Fare          float64      `json:"fare"`
	QRCodeData    string       `json:"qrCodeData"`
	Status        TicketStatus `json:"status"`
	BookingDate   int64        `json:"bookingDate"`
}

// Validate checks the passenger and seat invariants.
func (t Ticket) Validate() error {
	if len(t.Passengers) == 0 {
		return fmt.Errorf("%w: ticket has no passengers", ErrValidation)
	}
	if len(t.Passengers) > MaxPassengers {
		return fmt.Errorf("%w: %d passengers exceeds %d", ErrValidation, len(t.Passengers), MaxPassengers)
	}
	if len(t.SeatNumbers) != len(t.Passengers) {
		return fmt.Errorf("%w: %d seats for %d passengers", ErrValidation, len(t.SeatNumbers), len(t.Passengers))
	}
	return nil
}

// QRPayload is the string a conductor scans: id, train number and route.
func (t Ticket) QRPayload() string {
	return strings.Join([]string{t.TicketID, t.TrainNumber, t.Source, t.Destination}, qrSeparator)
}

// DeviceFingerprint is the hash the holder's device answers a verification
// request with.
func (t Ticket) DeviceFingerprint() (string, error) {
	var first string
	if len(t.Passengers) > 0 {
		first = t.Passengers[0].Name
	}
	return hashing.DeviceFingerprint(t.TrainNumber, t.Date, first)
}

// IsFuture reports whether departure is after now. A date or time that does not
// parse counts as past.
func (t Ticket) IsFuture(now time.Time) bool {
	departure, err := time.ParseInLocation(dateTimeLayout, t.Date+" "+t.DepartureTime, time.Local)
	if err != nil {
		return false
	}
	return departure.After(now)
}

// FormattedDate renders the date as "Jan 02, 2006", or returns it untouched if
// it does not parse.
func (t Ticket) FormattedDate() string {
	d, err := time.Parse(dateLayout, t.Date)
	if err != nil {
		return t.Date
	}
	return d.Format("Jan 02, 2006")
}

// FormattedTime renders the departure time as "3:04 PM".
func (t Ticket) FormattedTime() string {
	d, err := time.Parse(clockLayout, t.DepartureTime)
	if err != nil {
		return t.DepartureTime
	}
	return d.Format("3:04 PM")
}

// JourneyDuration is arrival minus departure as "{h}h {m}m", wrapping past
// midnight, or "N/A".
func (t Ticket) JourneyDuration() string {
	dep, err := time.Parse(clockLayout, t.DepartureTime)
	if err != nil {
		return "N/A"
	}
	arr, err := time.Parse(clockLayout, t.ArrivalTime)
	if err != nil {
		return "N/A"
	}

	diff := arr.Sub(dep)
	if diff < 0 {
		diff += 24 * time.Hour
	}
	return fmt.Sprintf("%dh %dm", int(diff.Hours()), int(diff.Minutes())%60)
}

// QRPayload is the decoded form of Ticket.QRPayload.
type QRPayload struct {
	TicketID    string
	TrainNumber string
	Source      string
	Destination string
}

const qrSeparator = ":"

// ParseQRPayload splits a payload into its four fields. Train.Validate keeps
// the separator out of the fields, so a payload from this package always parses.
func ParseQRPayload(s string) (QRPayload, error) {
	parts := strings.Split(s, qrSeparator)
	if len(parts) != 4 || parts[0] == "" {
		return QRPayload{}, fmt.Errorf("%w: malformed qr payload %q", ErrValidation, s)
	}
	return QRPayload{
		TicketID:    parts[0],
		TrainNumber: parts[1],
		Source:      parts[2],
		Destination: parts[3],
	}, nil
}

func newTicketID() string {
	id := uuid.New()
	return "TKT-" + base58.Encode(id[:])
}

func newQRCodeData() string {
	return "RAILID-" + strings.ToUpper(uuid.NewString()[:8])
}
