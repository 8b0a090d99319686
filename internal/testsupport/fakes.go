package testsupport

import (
	"context"
	"sync"
	"time"

	"postline/internal/publisher"
	"postline/internal/session"
)

// StaticSession is a session.Loader that returns a fixed handle.
type StaticSession struct {
	Handle  session.Handle
	LoadErr error
	Invalid bool

	mu    sync.Mutex
	loads int
}

// NewStaticSession returns a loader with one valid session cookie.
func NewStaticSession() *StaticSession {
	return &StaticSession{Handle: session.Handle{
		Source:   "static",
		Cookies:  []session.Cookie{{Name: "sessionid", Value: "static"}},
		LoadedAt: time.Now(),
	}}
}

func (s *StaticSession) Load(context.Context) (session.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.LoadErr != nil {
		return session.Handle{}, s.LoadErr
	}
	return s.Handle, nil
}

func (s *StaticSession) Verify(context.Context, session.Handle) bool {
	return !s.Invalid
}

// Loads returns how many times Load was called.
func (s *StaticSession) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

// ScriptedPublisher returns queued outcomes in order. Once the script is
// exhausted it keeps returning the last entry, or success when empty.
type ScriptedPublisher struct {
	// Delay blocks each Submit until it elapses or ctx is cancelled.
	Delay time.Duration
	// Panic makes Submit panic with this value.
	Panic any

	mu       sync.Mutex
	script   []publisher.Outcome
	requests []publisher.Request
	active   int
	maxSeen  int
}

// NewScriptedPublisher returns a publisher that replays outcomes.
func NewScriptedPublisher(outcomes ...publisher.Outcome) *ScriptedPublisher {
	return &ScriptedPublisher{script: outcomes}
}

func (p *ScriptedPublisher) Submit(ctx context.Context, req publisher.Request) publisher.Outcome {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.active++
	if p.active > p.maxSeen {
		p.maxSeen = p.active
	}
	var out publisher.Outcome
	switch len(p.script) {
	case 0:
		out = publisher.Success()
	case 1:
		out = p.script[0]
	default:
		out = p.script[0]
		p.script = p.script[1:]
	}
	delay := p.Delay
	panicValue := p.Panic
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()

	if panicValue != nil {
		panic(panicValue)
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return publisher.OutcomeFromError(ctx.Err())
		}
	}
	return out
}

// Requests returns a copy of every request received.
func (p *ScriptedPublisher) Requests() []publisher.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publisher.Request(nil), p.requests...)
}

// Calls returns the number of Submit calls.
func (p *ScriptedPublisher) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// MaxConcurrent returns the highest number of overlapping Submit calls seen.
func (p *ScriptedPublisher) MaxConcurrent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxSeen
}
