package wire

import (
	"net/netip"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the type of an envelope.
type Kind uint8

const (
	KindUnknown Kind = iota

	// Control envelopes
	KindRegistration
	KindRegistrationResponse
	KindLookupRequest
	KindLookupResponse

	// Peer to peer envelopes
	KindMessage
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindRegistration:         "registration",
	KindRegistrationResponse: "registration_response",
	KindLookupRequest:        "lookup_request",
	KindLookupResponse:       "lookup_response",
	KindMessage:              "message",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsControl reports whether k is exchanged with the index server.
func (k Kind) IsControl() bool {
	return k >= KindRegistration && k <= KindLookupResponse
}

// Registration status values.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Wire values of the req_type field.
const (
	reqTypeRegistration = "registration"
	reqTypeQuery        = "query"
)

// Envelope is a decoded datagram payload.
type Envelope interface {
	Kind() Kind
}

// Registration asks the index to mint an identifier for the peer listening
// at ReplyAddr.
type Registration struct {
	ReplyAddr netip.AddrPort
	RequestID string
}

// Kind implements Envelope.
func (*Registration) Kind() Kind { return KindRegistration }

// RegistrationResponse carries the identifier assigned by the index.
type RegistrationResponse struct {
	Status    string
	ID        uuid.UUID
	RequestID string
}

// Kind implements Envelope.
func (*RegistrationResponse) Kind() Kind { return KindRegistrationResponse }

// OK reports whether the index accepted the registration.
func (r *RegistrationResponse) OK() bool {
	return r.Status == StatusOK && r.ID != uuid.Nil
}

// LookupRequest asks the index for the address registered under Queried.
type LookupRequest struct {
	Queried   uuid.UUID
	RequestID string
}

// Kind implements Envelope.
func (*LookupRequest) Kind() Kind { return KindLookupRequest }

// LookupResponse answers a LookupRequest. An invalid Addr encodes as the
// "nil" sentinel, meaning the index has no address on record.
type LookupResponse struct {
	Queried   uuid.UUID
	Addr      netip.AddrPort
	RequestID string
}

// Kind implements Envelope.
func (*LookupResponse) Kind() Kind { return KindLookupResponse }

// Found reports whether the response resolved an address.
func (r *LookupResponse) Found() bool {
	return r.Addr.IsValid()
}

// Message is a payload sent directly from one peer to another.
type Message struct {
	Src          uuid.UUID
	Dst          uuid.UUID
	Data         string
	CreationTime time.Time
}

// Kind implements Envelope.
func (*Message) Kind() Kind { return KindMessage }

// NewRequestID returns a fresh correlation token.
func NewRequestID() string {
	return uuid.NewString()
}
