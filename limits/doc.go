// Package limits provides centralized size constants and validation functions
// for the rendezvous protocol. Both the index server and the peers validate
// datagrams against the same limits so that an envelope accepted on one side
// is never silently truncated on the other.
//
// # Datagram Size
//
// Every envelope travels as exactly one UDP datagram whose payload is bounded
// by MaxDatagramSize (1024 bytes). Receivers read into a buffer of
// ReadBufferSize bytes, one byte larger than the limit, so that an oversized
// datagram is detected and dropped instead of being decoded from a truncated
// prefix.
//
// # Validation
//
//	if err := limits.ValidateDatagram(payload); err != nil {
//	    // ErrMessageEmpty or ErrMessageTooLarge
//	}
package limits
