// Package store defines the document-store contract the feed and session
// components are written against: schemaless collections of {id, fields}
// documents with insert/delete/read/atomic-increment operations and live
// query subscriptions that deliver complete ordered snapshots.
package store

import (
	"context"
	"time"
)

// Collection names used by the application.
const (
	CollectionUsers   = "users"
	CollectionPosts   = "posts"
	CollectionDevices = "devices"
)

// Fields is the schemaless body of a document.
type Fields map[string]any

// Document is one stored record.
type Document struct {
	ID     string
	Fields Fields
}

// Snapshot is one complete, ordered delivery of a subscribed query's
// current contents.
type Snapshot []Document

// Query selects and orders a collection for a live subscription.
type Query struct {
	Collection string
	OrderBy    string
	Descending bool
}

// CancelFunc tears down a subscription. Safe to call exactly once;
// implementations tolerate repeated calls.
type CancelFunc func()

// Store is the document-store collaborator surface.
type Store interface {
	// Insert stores a new document and returns its generated id.
	Insert(ctx context.Context, collection string, fields Fields) (string, error)
	// Put stores a document under a caller-chosen id, replacing any
	// existing document. Profiles are keyed by identity uid this way.
	Put(ctx context.Context, collection, id string, fields Fields) error
	// Delete removes a document. Returns a coded not-found error when
	// the document does not exist.
	Delete(ctx context.Context, collection, id string) error
	// ReadOne fetches a single document's fields. The bool reports
	// whether the document exists.
	ReadOne(ctx context.Context, collection, id string) (Fields, bool, error)
	// Increment atomically adds delta to an integer field.
	Increment(ctx context.Context, collection, id, field string, delta int64) error
	// Subscribe opens a standing live query. onSnapshot receives the
	// full current contents immediately and again after every change;
	// onError receives delivery failures. The returned cancel must be
	// invoked when the consumer goes away.
	Subscribe(q Query, onSnapshot func(Snapshot), onError func(error)) CancelFunc
}

// Error is a store failure carrying a stable machine code, so callers
// can translate it without inspecting backend-specific errors.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// timeLayout is fixed-width UTC so the lexicographic order of encoded
// values equals chronological order. Snapshot ordering relies on this.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// EncodeTime renders t in the store's sortable timestamp encoding.
func EncodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// DecodeTime parses a stored timestamp. Zero time on failure.
func DecodeTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
