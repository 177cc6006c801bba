package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"campusvoice/internal/domain"
	"campusvoice/internal/ports"
)

// askOutcome is the completion of one answering-service call, tagged with
// the token it was issued under.
type askOutcome struct {
	token  uint64
	result domain.AskResult
	err    error
}

// coordinator owns at most one in-flight answering-service request.
// Every send is issued under a monotonically increasing token; completion
// callbacks that carry a token other than the current one are dropped
// without reaching the conversation. Invalidation only ever bumps the
// token while the conversation's lock is held, which is what makes the
// staleness check authoritative.
type coordinator struct {
	service ports.AnswerService
	timeout time.Duration

	onAuthExpired func()
	deliver       func(askOutcome)

	mu     sync.Mutex
	token  uint64
	cancel context.CancelFunc
}

func newCoordinator(service ports.AnswerService, timeout time.Duration) *coordinator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &coordinator{service: service, timeout: timeout}
}

// send issues one outbound call and returns the token it runs under.
// A prior in-flight call, if any, is superseded: its transport context is
// cancelled and its eventual completion will fail the staleness check.
func (c *coordinator) send(question string, sessionID string) uint64 {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.token++
	token := c.token
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		defer cancel()
		result, err := c.service.Ask(ctx, question, sessionID)
		if err != nil && errors.Is(err, domain.ErrAuthExpired) {
			// Expired credentials never surface as a conversation
			// failure; the auth collaborator takes over and nothing
			// further is emitted.
			if c.stillCurrent(token) && c.onAuthExpired != nil {
				c.onAuthExpired()
			}
			return
		}
		c.deliver(askOutcome{token: token, result: result, err: err})
	}()

	return token
}

// invalidate supersedes the in-flight request, if any: the transport is
// cancelled best-effort and the token is bumped so a late completion is
// discarded. Safe to call with nothing pending.
func (c *coordinator) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.token++
}

// stillCurrent reports whether the token identifies the latest send.
func (c *coordinator) stillCurrent(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return token == c.token
}

// finish clears the cancel handle once a current request has completed.
func (c *coordinator) finish(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token == c.token && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
