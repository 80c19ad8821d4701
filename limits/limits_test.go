package limits

import (
	"bytes"
	"errors"
	"testing"
)

// TestConstantConsistency verifies the read buffer can detect oversized datagrams
func TestConstantConsistency(t *testing.T) {
	if MaxDatagramSize != 1024 {
		t.Errorf("MaxDatagramSize = %d, want 1024", MaxDatagramSize)
	}
	if ReadBufferSize <= MaxDatagramSize {
		t.Errorf("ReadBufferSize = %d, must exceed MaxDatagramSize (%d)", ReadBufferSize, MaxDatagramSize)
	}
}

func TestValidateDatagram(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		wantErr error
	}{
		{"nil payload", nil, ErrMessageEmpty},
		{"empty payload", []byte{}, ErrMessageEmpty},
		{"single byte", []byte{'{'}, nil},
		{"exactly at limit", bytes.Repeat([]byte{'a'}, MaxDatagramSize), nil},
		{"one over limit", bytes.Repeat([]byte{'a'}, MaxDatagramSize+1), ErrMessageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatagram(tt.payload)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDatagram() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDatagram() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTooLargeErrorCarriesSizes(t *testing.T) {
	err := ValidateDatagram(bytes.Repeat([]byte{'x'}, 2000))
	if err == nil {
		t.Fatal("expected error for 2000 byte datagram")
	}
	want := "message too large: datagram size 2000 exceeds limit 1024"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}
