package reconcile

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/gpml/i18nsync/internal/record"
)

// op is one call observed by memorySink.
type op struct {
	Action string // "create" or "delete"
	ID     string
	Key    string
}

// memorySink is an in-memory Sink and Querier that records every call.
type memorySink struct {
	mu         sync.Mutex
	records    map[string]*record.Record
	ops        []op
	failCreate map[string]bool // by key
	failDelete map[string]bool // by id
}

func newMemorySink() *memorySink {
	return &memorySink{
		records:    make(map[string]*record.Record),
		failCreate: make(map[string]bool),
		failDelete: make(map[string]bool),
	}
}

var errSinkDown = errors.New("sink unavailable")

func (s *memorySink) Create(_ context.Context, r *record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreate[r.Key] {
		return errSinkDown
	}
	s.ops = append(s.ops, op{Action: "create", ID: r.ID, Key: r.Key})
	cp := *r
	s.records[r.ID] = &cp
	return nil
}

func (s *memorySink) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failDelete[id] {
		return errSinkDown
	}
	key := ""
	if r, ok := s.records[id]; ok {
		key = r.Key
	}
	s.ops = append(s.ops, op{Action: "delete", ID: id, Key: key})
	delete(s.records, id)
	return nil
}

func (s *memorySink) QueryAll(_ context.Context, kind record.Kind) ([]*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*record.Record
	for _, r := range s.records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

// take returns and clears the observed operations.
func (s *memorySink) take() []op {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := s.ops
	s.ops = nil
	return ops
}

// keys returns the sorted keys of all stored records.
func (s *memorySink) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for _, r := range s.records {
		keys = append(keys, r.Key)
	}
	sort.Strings(keys)
	return keys
}

func (s *memorySink) get(id string) *record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

func (s *memorySink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
