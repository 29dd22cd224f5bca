package store

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/jlynch25/railid/ticketing"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodeTickets serializes a ticket list. A nil list encodes as "[]".
func EncodeTickets(tickets []ticketing.Ticket) (string, error) {
	if tickets == nil {
		tickets = []ticketing.Ticket{}
	}

	data, err := json.Marshal(tickets)
	if err != nil {
		return "", fmt.Errorf("encode tickets: %w", err)
	}
	return string(data), nil
}

// DecodeTickets parses a list written by EncodeTickets. One damaged record
// fails the whole list.
func DecodeTickets(data string) ([]ticketing.Ticket, error) {
	tickets := []ticketing.Ticket{}
	if err := json.UnmarshalFromString(data, &tickets); err != nil {
		return nil, fmt.Errorf("%w: decode tickets: %v", ErrCorrupt, err)
	}
	if tickets == nil {
		tickets = []ticketing.Ticket{}
	}
	return tickets, nil
}
