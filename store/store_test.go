package store

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/jlynch25/railid/ticketing"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func sampleTicket(id, date string, passengers int) ticketing.Ticket {
	t := ticketing.Ticket{
		TicketID:      id,
		TrainName:     "Rajdhani Express",
		TrainNumber:   "12951",
		Source:        "New Delhi",
		Destination:   "Mumbai Central",
		Date:          date,
		DepartureTime: "16:35",
		ArrivalTime:   "08:35",
		TravelClass:   "3A",
		AuthMethod:    ticketing.AuthFingerprint,
		BiometricHash: "b1",
		TotalFare:     1234.5 * float64(passengers),
		Fare:          1234.5,
		QRCodeData:    "RAILID-" + id,
		Status:        ticketing.StatusActive,
		BookingDate:   1760000000000,
	}
	for i := 0; i < passengers; i++ {
		t.Passengers = append(t.Passengers, ticketing.Passenger{Name: fmt.Sprintf("P%d", i), Age: 20 + i, Gender: "F"})
		t.SeatNumbers = append(t.SeatNumbers, fmt.Sprintf("3A-%d", i+1))
	}
	return t
}

func TestCodecRoundTrip(t *testing.T) {
	for n := 0; n <= ticketing.MaxPassengers; n++ {
		list := []ticketing.Ticket{}
		for i := 0; i <= n; i++ {
			list = append(list, sampleTicket(fmt.Sprintf("TKT-%d-%d", n, i), "2026-11-02", i))
		}

		raw, err := EncodeTickets(list)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeTickets(raw)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !reflect.DeepEqual(got, list) {
			t.Fatalf("round trip mismatch for %d tickets:\n got %+v\nwant %+v", len(list), got, list)
		}
	}

	raw, err := EncodeTickets(nil)
	if err != nil || raw != "[]" {
		t.Fatalf("EncodeTickets(nil) = %q, %v", raw, err)
	}
}

func TestDecodeDamagedRecordFailsWholeList(t *testing.T) {
	good, _ := EncodeTickets([]ticketing.Ticket{sampleTicket("TKT-1", "2026-11-02", 1)})
	damaged := good[:len(good)-1] + `,{"ticketId":42}]`

	if _, err := DecodeTickets(damaged); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

func TestMissingCollectionIsEmpty(t *testing.T) {
	s := NewTickets(NewMemoryKV())

	all, err := s.All()
	if err != nil || len(all) != 0 {
		t.Fatalf("All = %v, %v; want empty", all, err)
	}
	if _, err := s.FindByID("TKT-x"); !errors.Is(err, ticketing.ErrNotFound) {
		t.Fatalf("FindByID = %v, want ErrNotFound", err)
	}
}

func TestCorruptPolicy(t *testing.T) {
	kv := NewMemoryKV()
	kv.Set(TicketsKey, "{not json")

	strict := NewTickets(kv)
	if _, err := strict.All(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("strict All = %v, want ErrCorrupt", err)
	}
	if err := strict.Append(sampleTicket("TKT-1", "2026-11-02", 1)); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("strict Append = %v, want ErrCorrupt", err)
	}
	if raw, _ := kv.Get(TicketsKey); raw != "{not json" {
		t.Fatalf("strict store overwrote corrupt data: %q", raw)
	}

	logger, hook := test.NewNullLogger()
	legacy := NewTickets(kv, WithCorruptPolicy(EmptyOnCorrupt), WithLogger(logrus.NewEntry(logger)))
	all, err := legacy.All()
	if err != nil || len(all) != 0 {
		t.Fatalf("legacy All = %v, %v; want empty", all, err)
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Fatalf("legacy read did not warn")
	}

	if err := legacy.Append(sampleTicket("TKT-1", "2026-11-02", 1)); err != nil {
		t.Fatalf("legacy Append: %v", err)
	}
	if all, _ := legacy.All(); len(all) != 1 {
		t.Fatalf("legacy store holds %d tickets, want 1", len(all))
	}
}

func TestParseCorruptPolicy(t *testing.T) {
	for in, want := range map[string]CorruptPolicy{"": Strict, "strict": Strict, "empty": EmptyOnCorrupt} {
		got, err := ParseCorruptPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseCorruptPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseCorruptPolicy("lenient"); err == nil {
		t.Errorf("expected error for unknown policy")
	}
}

func TestViews(t *testing.T) {
	s := NewTickets(NewMemoryKV())

	cancelled := sampleTicket("TKT-c", "2026-10-01", 1)
	cancelled.Status = ticketing.StatusCancelled
	for _, tk := range []ticketing.Ticket{
		sampleTicket("TKT-3", "2026-12-24", 1),
		cancelled,
		sampleTicket("TKT-1", "2026-11-02", 2),
		sampleTicket("TKT-2", "2026-11-02", 1),
	} {
		if err := s.Append(tk); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	ids := func(list []ticketing.Ticket) []string {
		out := []string{}
		for _, tk := range list {
			out = append(out, tk.TicketID)
		}
		return out
	}

	mine, _ := s.MyBookings()
	if got, want := ids(mine), []string{"TKT-3", "TKT-1", "TKT-2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("MyBookings = %v, want %v", got, want)
	}

	active, _ := s.Active()
	if got, want := ids(active), []string{"TKT-1", "TKT-2", "TKT-3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Active = %v, want %v", got, want)
	}

	gone, _ := s.ListByStatus(ticketing.StatusCancelled)
	if got, want := ids(gone), []string{"TKT-c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListByStatus(CANCELLED) = %v, want %v", got, want)
	}

	found, err := s.FindByID("TKT-1")
	if err != nil || len(found.Passengers) != 2 {
		t.Errorf("FindByID = %+v, %v", found, err)
	}
}

func TestUpdate(t *testing.T) {
	kv := NewMemoryKV()
	s := NewTickets(kv)
	s.Append(sampleTicket("TKT-1", "2026-11-02", 1))
	s.Append(sampleTicket("TKT-2", "2026-11-03", 1))
	before, _ := kv.Get(TicketsKey)

	err := s.Update("TKT-404", func(*ticketing.Ticket) error { return nil })
	if !errors.Is(err, ticketing.ErrNotFound) {
		t.Fatalf("Update(unknown) = %v, want ErrNotFound", err)
	}
	boom := errors.New("boom")
	if err := s.Update("TKT-1", func(*ticketing.Ticket) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Update(failing fn) = %v", err)
	}
	if after, _ := kv.Get(TicketsKey); after != before {
		t.Fatalf("failed updates wrote to the store")
	}

	err = s.Update("TKT-2", func(tk *ticketing.Ticket) error {
		tk.Status = ticketing.StatusCancelled
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	all, _ := s.All()
	if all[0].Status != ticketing.StatusActive || all[1].Status != ticketing.StatusCancelled {
		t.Fatalf("statuses after update: %s, %s", all[0].Status, all[1].Status)
	}
}

func TestReplaceAll(t *testing.T) {
	s := NewTickets(NewMemoryKV())
	s.Append(sampleTicket("TKT-1", "2026-11-02", 1))

	if err := s.ReplaceAll([]ticketing.Ticket{sampleTicket("TKT-9", "2027-01-01", 3)}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	all, _ := s.All()
	if len(all) != 1 || all[0].TicketID != "TKT-9" {
		t.Fatalf("All after ReplaceAll = %+v", all)
	}
}

func TestBadgerKV(t *testing.T) {
	dir := t.TempDir()
	logger, _ := test.NewNullLogger()

	kv, err := OpenBadger(dir, logrus.NewEntry(logger))
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}

	if _, err := kv.Get("users"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get(missing) = %v, want ErrKeyNotFound", err)
	}

	s := NewTickets(kv)
	if err := s.Append(sampleTicket("TKT-1", "2026-11-02", 2)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := kv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenBadger(dir, logrus.NewEntry(logger))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := NewTickets(reopened).FindByID("TKT-1")
	if err != nil {
		t.Fatalf("FindByID after reopen: %v", err)
	}
	if !reflect.DeepEqual(got, sampleTicket("TKT-1", "2026-11-02", 2)) {
		t.Fatalf("ticket changed across reopen: %+v", got)
	}
}
