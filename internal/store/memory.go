package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store used as the embedded mode and by tests.
// Snapshot fan-out is synchronous with the mutation that caused it.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Fields
	subs        map[int]*memorySub
	nextSub     int
}

type memorySub struct {
	query      Query
	onSnapshot func(Snapshot)
	onError    func(error)
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]Fields),
		subs:        make(map[int]*memorySub),
	}
}

// Insert stores a new document under a generated id.
func (m *Memory) Insert(_ context.Context, collection string, fields Fields) (string, error) {
	id := uuid.New().String()
	m.mu.Lock()
	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string]Fields)
		m.collections[collection] = docs
	}
	docs[id] = copyFields(fields)
	m.mu.Unlock()

	m.broadcast(collection)
	return id, nil
}

// Put stores a document under a caller-chosen id.
func (m *Memory) Put(_ context.Context, collection, id string, fields Fields) error {
	m.mu.Lock()
	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string]Fields)
		m.collections[collection] = docs
	}
	docs[id] = copyFields(fields)
	m.mu.Unlock()

	m.broadcast(collection)
	return nil
}

// Delete removes a document.
func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	docs := m.collections[collection]
	if _, ok := docs[id]; !ok {
		m.mu.Unlock()
		return &Error{Code: "not-found"}
	}
	delete(docs, id)
	m.mu.Unlock()

	m.broadcast(collection)
	return nil
}

// ReadOne fetches a single document's fields.
func (m *Memory) ReadOne(_ context.Context, collection, id string) (Fields, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fields, ok := m.collections[collection][id]
	if !ok {
		return nil, false, nil
	}
	return copyFields(fields), true, nil
}

// Increment atomically adds delta to an integer field.
func (m *Memory) Increment(_ context.Context, collection, id, field string, delta int64) error {
	m.mu.Lock()
	fields, ok := m.collections[collection][id]
	if !ok {
		m.mu.Unlock()
		return &Error{Code: "not-found"}
	}
	fields[field] = asInt64(fields[field]) + delta
	m.mu.Unlock()

	m.broadcast(collection)
	return nil
}

// Subscribe registers a live query and delivers the current snapshot
// immediately.
func (m *Memory) Subscribe(q Query, onSnapshot func(Snapshot), onError func(error)) CancelFunc {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = &memorySub{query: q, onSnapshot: onSnapshot, onError: onError}
	m.mu.Unlock()

	onSnapshot(m.snapshot(q))

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *Memory) broadcast(collection string) {
	m.mu.RLock()
	targets := make([]*memorySub, 0, len(m.subs))
	for _, sub := range m.subs {
		if sub.query.Collection == collection {
			targets = append(targets, sub)
		}
	}
	m.mu.RUnlock()

	for _, sub := range targets {
		sub.onSnapshot(m.snapshot(sub.query))
	}
}

func (m *Memory) snapshot(q Query) Snapshot {
	m.mu.RLock()
	docs := m.collections[q.Collection]
	snap := make(Snapshot, 0, len(docs))
	for id, fields := range docs {
		snap = append(snap, Document{ID: id, Fields: copyFields(fields)})
	}
	m.mu.RUnlock()

	sort.Slice(snap, func(i, j int) bool {
		a := asString(snap[i].Fields[q.OrderBy])
		b := asString(snap[j].Fields[q.OrderBy])
		if a != b {
			if q.Descending {
				return a > b
			}
			return a < b
		}
		return snap[i].ID < snap[j].ID
	})
	return snap
}

func copyFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		if vs, ok := v.([]string); ok {
			cp := make([]string, len(vs))
			copy(cp, vs)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}
