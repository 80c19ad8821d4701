package wire

import (
	"errors"
	"testing"
)

// FuzzDecode checks that arbitrary input never panics and every failure is a
// typed *DecodeError.
func FuzzDecode(f *testing.F) {
	seeds := []string{
		"",
		"not json",
		"{}",
		`{"req_type":"registration","addr":"127.0.0.1:50001"}`,
		`{"req_type":"query","queried_uuid":"6ba7b810-9dad-11d1-80b4-00c04fd430c8"}`,
		`{"address":"nil","uuid":"6ba7b810-9dad-11d1-80b4-00c04fd430c8"}`,
		`{"status":"OK","uuid":"6ba7b810-9dad-11d1-80b4-00c04fd430c8"}`,
		`{"src_uuid":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","dst_uuid":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","data":"x","creation_time":"2024-02-07T00:00:00Z"}`,
		"\xff\xfe{",
	}
	for _, s := range seeds {
		f.Add([]byte(s))
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		env, err := Decode(data)
		if err != nil {
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("Decode(%q) returned untyped error %T: %v", data, err, err)
			}
			if env != nil {
				t.Fatalf("Decode(%q) returned envelope alongside error", data)
			}
			return
		}
		if _, err := Encode(env); err != nil {
			t.Fatalf("decoded envelope %#v does not re-encode: %v", env, err)
		}
	})
}
