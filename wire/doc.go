// Package wire implements the envelope codec shared by the index server and
// the peers.
//
// Every datagram carries exactly one envelope, encoded as a flat JSON object
// whose values are all strings. Two families of envelopes exist:
//
//   - control envelopes exchanged with the index: Registration,
//     RegistrationResponse, LookupRequest and LookupResponse
//   - message envelopes exchanged directly between peers: Message
//
// Field names are fixed per envelope kind:
//
//	Registration          req_type="registration", addr, req_id (optional)
//	RegistrationResponse  status, uuid, req_id (optional)
//	LookupRequest         req_type="query", queried_uuid, req_id (optional)
//	LookupResponse        address (or "nil"), uuid, req_id (optional)
//	Message               src_uuid, dst_uuid, data, creation_time
//
// The optional req_id is a correlation token. Requests carry a fresh one and
// the index echoes it in the matching response, so a client can pair each
// response with the request that caused it.
//
// Decode never panics. Any input that is not a well-formed envelope yields a
// *DecodeError which can be matched against ErrMalformed, ErrMissingField,
// ErrInvalidField or ErrUnknownEnvelope with errors.Is.
package wire
