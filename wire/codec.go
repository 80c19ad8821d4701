package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Field names used on the wire.
const (
	fieldReqType      = "req_type"
	fieldReqID        = "req_id"
	fieldAddr         = "addr"
	fieldStatus       = "status"
	fieldUUID         = "uuid"
	fieldQueriedUUID  = "queried_uuid"
	fieldAddress      = "address"
	fieldSrcUUID      = "src_uuid"
	fieldDstUUID      = "dst_uuid"
	fieldData         = "data"
	fieldCreationTime = "creation_time"
)

// timeLayouts lists the accepted creation_time layouts, the first one is
// used for encoding.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -07:00",
	"2006-01-02 15:04:05.999999999 -07:00 MST",
}

var errNilIdentifier = errors.New("nil identifier")

type registrationFrame struct {
	ReqType string `json:"req_type"`
	Addr    string `json:"addr"`
	ReqID   string `json:"req_id,omitempty"`
}

type registrationResponseFrame struct {
	Status string `json:"status"`
	UUID   string `json:"uuid"`
	ReqID  string `json:"req_id,omitempty"`
}

type lookupRequestFrame struct {
	ReqType     string `json:"req_type"`
	QueriedUUID string `json:"queried_uuid"`
	ReqID       string `json:"req_id,omitempty"`
}

type lookupResponseFrame struct {
	Address string `json:"address"`
	UUID    string `json:"uuid"`
	ReqID   string `json:"req_id,omitempty"`
}

type messageFrame struct {
	SrcUUID      string `json:"src_uuid"`
	DstUUID      string `json:"dst_uuid"`
	Data         string `json:"data"`
	CreationTime string `json:"creation_time"`
}

// Encode converts an envelope to a datagram payload.
func Encode(env Envelope) ([]byte, error) {
	var frame any
	switch e := env.(type) {
	case *Registration:
		if !e.ReplyAddr.IsValid() {
			return nil, fmt.Errorf("registration reply address is not set")
		}
		frame = registrationFrame{ReqType: reqTypeRegistration, Addr: e.ReplyAddr.String(), ReqID: e.RequestID}
	case *RegistrationResponse:
		frame = registrationResponseFrame{Status: e.Status, UUID: e.ID.String(), ReqID: e.RequestID}
	case *LookupRequest:
		frame = lookupRequestFrame{ReqType: reqTypeQuery, QueriedUUID: e.Queried.String(), ReqID: e.RequestID}
	case *LookupResponse:
		address := NotFound
		if e.Found() {
			address = e.Addr.String()
		}
		frame = lookupResponseFrame{Address: address, UUID: e.Queried.String(), ReqID: e.RequestID}
	case *Message:
		frame = messageFrame{
			SrcUUID:      e.Src.String(),
			DstUUID:      e.Dst.String(),
			Data:         e.Data,
			CreationTime: e.CreationTime.Format(timeLayouts[0]),
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedEnvelope, env)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(frame); err != nil {
		return nil, err
	}
	// Encoder terminates each value with a newline
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// Decode parses a datagram payload into an envelope. The returned error is
// always a *DecodeError.
func Decode(data []byte) (Envelope, error) {
	fields, err := parseFields(data)
	if err != nil {
		return nil, err
	}

	if _, ok := fields[fieldReqType]; ok {
		reqType, err := fields.required(fieldReqType)
		if err != nil {
			return nil, err
		}
		switch reqType {
		case reqTypeRegistration:
			return decodeRegistration(fields)
		case reqTypeQuery:
			return decodeLookupRequest(fields)
		default:
			return nil, unknownEnvelope(fmt.Errorf("req_type %q", reqType))
		}
	}

	switch {
	case fields.has(fieldSrcUUID) || fields.has(fieldDstUUID):
		return decodeMessage(fields)
	case fields.has(fieldStatus):
		return decodeRegistrationResponse(fields)
	case fields.has(fieldAddress):
		return decodeLookupResponse(fields)
	default:
		return nil, unknownEnvelope(nil)
	}
}

// DecodeMessage decodes a payload that must be a peer to peer Message.
func DecodeMessage(data []byte) (*Message, error) {
	env, err := Decode(data)
	if err != nil {
		return nil, err
	}
	msg, ok := env.(*Message)
	if !ok {
		return nil, unknownEnvelope(fmt.Errorf("expected %s, got %s", KindMessage, env.Kind()))
	}
	return msg, nil
}

type fieldSet map[string]json.RawMessage

func parseFields(data []byte) (fieldSet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, malformed(errors.New("empty payload"))
	}
	var fields fieldSet
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, malformed(err)
	}
	// The literal null unmarshals into a nil map without error
	if fields == nil {
		return nil, malformed(errors.New("payload is not an object"))
	}
	return fields, nil
}

func (f fieldSet) has(name string) bool {
	_, ok := f[name]
	return ok
}

func (f fieldSet) required(name string) (string, error) {
	raw, ok := f[name]
	if !ok {
		return "", missingField(name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", invalidField(name, errors.New("value is not a string"))
	}
	return s, nil
}

func (f fieldSet) optional(name string) (string, error) {
	if !f.has(name) {
		return "", nil
	}
	return f.required(name)
}

func (f fieldSet) identifier(name string) (uuid.UUID, error) {
	s, err := f.required(name)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, invalidField(name, err)
	}
	return id, nil
}

func decodeRegistration(f fieldSet) (*Registration, error) {
	s, err := f.required(fieldAddr)
	if err != nil {
		return nil, err
	}
	addr, err := ParseAddr(s)
	if err != nil {
		return nil, invalidField(fieldAddr, err)
	}
	reqID, err := f.optional(fieldReqID)
	if err != nil {
		return nil, err
	}
	return &Registration{ReplyAddr: addr, RequestID: reqID}, nil
}

func decodeRegistrationResponse(f fieldSet) (*RegistrationResponse, error) {
	status, err := f.required(fieldStatus)
	if err != nil {
		return nil, err
	}
	id, err := f.identifier(fieldUUID)
	if err != nil {
		return nil, err
	}
	reqID, err := f.optional(fieldReqID)
	if err != nil {
		return nil, err
	}
	return &RegistrationResponse{Status: status, ID: id, RequestID: reqID}, nil
}

func decodeLookupRequest(f fieldSet) (*LookupRequest, error) {
	queried, err := f.identifier(fieldQueriedUUID)
	if err != nil {
		return nil, err
	}
	reqID, err := f.optional(fieldReqID)
	if err != nil {
		return nil, err
	}
	return &LookupRequest{Queried: queried, RequestID: reqID}, nil
}

func decodeLookupResponse(f fieldSet) (*LookupResponse, error) {
	s, err := f.required(fieldAddress)
	if err != nil {
		return nil, err
	}
	queried, err := f.identifier(fieldUUID)
	if err != nil {
		return nil, err
	}
	resp := &LookupResponse{Queried: queried}
	if s != NotFound {
		if resp.Addr, err = ParseAddr(s); err != nil {
			return nil, invalidField(fieldAddress, err)
		}
	}
	if resp.RequestID, err = f.optional(fieldReqID); err != nil {
		return nil, err
	}
	return resp, nil
}

func decodeMessage(f fieldSet) (*Message, error) {
	src, err := f.identifier(fieldSrcUUID)
	if err != nil {
		return nil, err
	}
	if src == uuid.Nil {
		return nil, invalidField(fieldSrcUUID, errNilIdentifier)
	}
	dst, err := f.identifier(fieldDstUUID)
	if err != nil {
		return nil, err
	}
	if dst == uuid.Nil {
		return nil, invalidField(fieldDstUUID, errNilIdentifier)
	}
	data, err := f.required(fieldData)
	if err != nil {
		return nil, err
	}
	ts, err := f.required(fieldCreationTime)
	if err != nil {
		return nil, err
	}
	created, err := parseTime(ts)
	if err != nil {
		return nil, invalidField(fieldCreationTime, err)
	}
	return &Message{Src: src, Dst: dst, Data: data, CreationTime: created}, nil
}

func parseTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
