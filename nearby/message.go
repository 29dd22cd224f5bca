package nearby

import "strings"

// ServiceID names the verification service both roles agree on.
const ServiceID = "railid_verification_service"

const (
	verifyRequestPrefix = "VERIFY_REQUEST:"
	verifiedPrefix      = "VERIFIED:"
)

// Kind is the type of a frame.
type Kind int

// Frame kinds. Anything that is not a request or a verification is Unknown.
const (
	KindUnknown Kind = iota
	KindVerifyRequest
	KindVerified
)

// Message is one decoded UTF-8 frame.
type Message struct {
	Kind  Kind
	Value string
}

// VerifyRequest builds the conductor's request for a ticket.
func VerifyRequest(ticketID string) Message {
	return Message{Kind: KindVerifyRequest, Value: ticketID}
}

// VerifiedMessage builds the traveller's answer carrying the device fingerprint.
func VerifiedMessage(hash string) Message {
	return Message{Kind: KindVerified, Value: hash}
}

func (m Message) String() string {
	switch m.Kind {
	case KindVerifyRequest:
		return verifyRequestPrefix + m.Value
	case KindVerified:
		return verifiedPrefix + m.Value
	default:
		return m.Value
	}
}

// ParseMessage classifies a frame by prefix.
func ParseMessage(s string) Message {
	switch {
	case strings.HasPrefix(s, verifyRequestPrefix):
		return VerifyRequest(strings.TrimPrefix(s, verifyRequestPrefix))
	case strings.HasPrefix(s, verifiedPrefix):
		return VerifiedMessage(strings.TrimPrefix(s, verifiedPrefix))
	default:
		return Message{Kind: KindUnknown, Value: s}
	}
}

// frame is the noise wire type: the raw UTF-8 text with no header.
type frame struct {
	text string
}

func (f frame) Marshal() []byte {
	return []byte(f.text)
}

func unmarshalFrame(buf []byte) (frame, error) {
	return frame{text: string(buf)}, nil
}
