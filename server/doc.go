// Package server implements the rendezvous index: the authoritative registry
// mapping peer identifiers to network addresses, and the UDP server that
// answers registration and lookup requests against it.
//
// The server is request/response and keeps no session state. Each datagram is
// decoded, dispatched and answered before the next one is read:
//
//	Registration{addr}      -> RegistrationResponse{status: OK, uuid}
//	LookupRequest{uuid}     -> LookupResponse{address | "nil", uuid}
//	anything else           -> dropped, no response
//
// Malformed or adversarial datagrams are dropped without a response and never
// stop the server. A failure to send a response is logged and the server moves
// on to the next datagram.
//
// The registry lives in memory only; restarting the server forgets every peer.
package server
