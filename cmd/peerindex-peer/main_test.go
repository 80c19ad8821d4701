package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/peerindex/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"valid port", []string{"6000"}, false},
		{"lowest port", []string{"1"}, false},
		{"highest port", []string{"65535"}, false},
		{"missing port", nil, true},
		{"extra argument", []string{"6000", "6001"}, true},
		{"zero port", []string{"0"}, true},
		{"port too large", []string{"65536"}, true},
		{"not a number", []string{"port"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateArgs(newRootCmd(), tt.args)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRootCmdRejectsMissingPort(t *testing.T) {
	cmd := newRootCmd()
	var stderr bytes.Buffer
	cmd.SetOut(&stderr)
	cmd.SetErr(&stderr)
	cmd.SetArgs(nil)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "Usage:")
	assert.Contains(t, stderr.String(), "peerindex-peer <port>")
}

func TestParseLine(t *testing.T) {
	id := uuid.New()

	dst, data, err := parseLine(id.String() + " hello there")
	require.NoError(t, err)
	assert.Equal(t, id, dst)
	assert.Equal(t, "hello there", data)

	_, _, err = parseLine(id.String())
	assert.ErrorIs(t, err, errBadLine)

	_, _, err = parseLine("not-a-uuid hello")
	assert.ErrorIs(t, err, errBadLine)
}

// recordingSender records Send calls and fails for one destination.
type recordingSender struct {
	mu      sync.Mutex
	sent    []string
	failFor uuid.UUID
}

func (s *recordingSender) Send(_ context.Context, dst uuid.UUID, data string) error {
	if dst == s.failFor {
		return errors.New("peer not found")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, dst.String()+" "+data)
	return nil
}

func TestConsoleRun(t *testing.T) {
	good, bad := uuid.New(), uuid.New()
	input := strings.Join([]string{
		good.String() + " first",
		"",
		"garbage",
		bad.String() + " lost",
		good.String() + " second",
	}, "\n")

	var out bytes.Buffer
	con := newConsole(strings.NewReader(input), &out)
	s := &recordingSender{failFor: bad}

	require.NoError(t, con.run(context.Background(), s))

	assert.Equal(t, []string{good.String() + " first", good.String() + " second"}, s.sent)
	assert.Contains(t, out.String(), "error: "+errBadLine.Error())
	assert.Contains(t, out.String(), "error: send to "+bad.String()+": peer not found")
}

func TestConsoleRunStopsOnCancel(t *testing.T) {
	r, w := newBlockingReader()
	defer w()

	con := newConsole(r, &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- con.run(ctx, &recordingSender{}) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("console did not stop after cancellation")
	}
}

func TestConsoleDeliver(t *testing.T) {
	var out bytes.Buffer
	con := newConsole(strings.NewReader(""), &out)

	src := uuid.New()
	con.Deliver(&wire.Message{
		Src:          src,
		Dst:          uuid.New(),
		Data:         "hi",
		CreationTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	assert.Equal(t, "03:04:05 "+src.String()+": hi\n", out.String())
}

// blockingReader never returns data until it is released.
type blockingReader struct {
	release chan struct{}
}

func newBlockingReader() (*blockingReader, func()) {
	r := &blockingReader{release: make(chan struct{})}
	return r, func() { close(r.release) }
}

func (r *blockingReader) Read([]byte) (int, error) {
	<-r.release
	return 0, errors.New("released")
}
