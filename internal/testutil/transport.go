package testutil

import (
	"context"
	"net/http"
	"sync"

	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/dispatch"
)

// StubTransport records requests and answers them with Handler.
// A nil Handler answers 200 with an empty body.
type StubTransport struct {
	Handler func(req *core.Request) (*core.Response, error)

	mu       sync.Mutex
	requests []*core.Request
}

// Execute implements transport.Transport.
func (s *StubTransport) Execute(ctx context.Context, req *core.Request) (*core.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.Handler == nil {
		return &core.Response{Status: http.StatusOK, Header: http.Header{}}, nil
	}
	return s.Handler(req)
}

// Requests returns the requests seen so far.
func (s *StubTransport) Requests() []*core.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*core.Request(nil), s.requests...)
}

// JSONResponse returns a handler answering every request with status and body.
func JSONResponse(status int, body string) func(*core.Request) (*core.Response, error) {
	return func(*core.Request) (*core.Response, error) {
		h := http.Header{}
		h.Set("Content-Type", core.MediaTypeJSON)
		return &core.Response{Status: status, Header: h, Body: []byte(body)}, nil
	}
}

// MemoryJournal keeps journal entries in memory.
type MemoryJournal struct {
	// Err is returned from every Record call when set.
	Err error

	mu      sync.Mutex
	entries []dispatch.Entry
}

// Record implements dispatch.Journal.
func (j *MemoryJournal) Record(_ context.Context, e dispatch.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return j.Err
}

// Entries returns the recorded entries.
func (j *MemoryJournal) Entries() []dispatch.Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]dispatch.Entry(nil), j.entries...)
}
