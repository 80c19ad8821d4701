package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/opd-ai/peerindex/wire"
)

var errBadLine = errors.New(`expected "<uuid> <message>"`)

// sender is the part of a peer the console sends through.
type sender interface {
	Send(ctx context.Context, dst uuid.UUID, data string) error
}

// console reads outgoing messages from in and prints incoming ones to out.
type console struct {
	in  io.Reader
	mu  sync.Mutex
	out io.Writer
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{in: in, out: out}
}

// Deliver prints a received message.
func (c *console) Deliver(msg *wire.Message) {
	c.printf("%s %s: %s\n", msg.CreationTime.Format("15:04:05"), msg.Src, msg.Data)
}

func (c *console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// run sends every input line until in is exhausted or ctx is done. Send
// failures are reported and do not stop the loop.
func (c *console) run(ctx context.Context, s sender) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			dst, data, err := parseLine(line)
			if err != nil {
				c.printf("error: %v\n", err)
				continue
			}
			if err := s.Send(ctx, dst, data); err != nil {
				c.printf("error: send to %s: %v\n", dst, err)
			}
		}
	}
}

// parseLine splits "<uuid> <message>" into its parts.
func parseLine(line string) (uuid.UUID, string, error) {
	idText, data, ok := strings.Cut(strings.TrimSpace(line), " ")
	if !ok {
		return uuid.Nil, "", errBadLine
	}
	id, err := uuid.Parse(idText)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%w: %v", errBadLine, err)
	}
	return id, data, nil
}
