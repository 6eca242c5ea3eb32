package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/sabarim/starmf/internal/protocol"
)

// fakeLogin answers logins from a queue; the last reply repeats.
type fakeLogin struct {
	mu      sync.Mutex
	calls   int
	replies []protocol.AuthReply
	err     error
	delay   time.Duration
}

func (f *fakeLogin) Login(ctx context.Context, passKey string) (protocol.AuthReply, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return protocol.AuthReply{}, f.err
	}
	i := f.calls - 1
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i], nil
}

func (f *fakeLogin) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func ok(cred string) protocol.AuthReply {
	return protocol.AuthReply{Code: protocol.AuthSuccessCode, Credential: cred}
}

func fail(message string) protocol.AuthReply {
	return protocol.AuthReply{Code: "101", Message: message}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
