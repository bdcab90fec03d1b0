package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const notifyChannel = "document_changes"

// Postgres is a Store backed by a single JSONB documents table. Every
// mutation emits a NOTIFY; a listener connection re-queries the affected
// collection and fans the fresh snapshot out to all its subscribers, so
// deliveries reach subscribers in other processes as well.
type Postgres struct {
	db *pgxpool.Pool

	mu      sync.RWMutex
	subs    map[int]*postgresSub
	nextSub int

	cancelListener context.CancelFunc
}

type postgresSub struct {
	query      Query
	onSnapshot func(Snapshot)
	onError    func(error)
}

// NewPostgres creates the store and starts its notification listener.
func NewPostgres(ctx context.Context, db *pgxpool.Pool) *Postgres {
	listenerCtx, cancel := context.WithCancel(ctx)
	p := &Postgres{
		db:             db,
		subs:           make(map[int]*postgresSub),
		cancelListener: cancel,
	}
	go p.listen(listenerCtx)
	return p
}

// Close stops the notification listener. The pool is owned by the caller.
func (p *Postgres) Close() {
	p.cancelListener()
}

// Insert stores a new document and notifies subscribers.
func (p *Postgres) Insert(ctx context.Context, collection string, fields Fields) (string, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	id := uuid.New().String()
	query := `
		INSERT INTO documents (collection, id, fields, inserted_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := p.db.Exec(ctx, query, collection, id, body, time.Now()); err != nil {
		return "", codedError("failed to insert document", err)
	}

	p.notify(ctx, collection)
	return id, nil
}

// Put stores a document under a caller-chosen id, replacing any
// existing document with that id.
func (p *Postgres) Put(ctx context.Context, collection, id string, fields Fields) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	query := `
		INSERT INTO documents (collection, id, fields, inserted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id) DO UPDATE SET fields = EXCLUDED.fields
	`
	if _, err := p.db.Exec(ctx, query, collection, id, body, time.Now()); err != nil {
		return codedError("failed to put document", err)
	}

	p.notify(ctx, collection)
	return nil
}

// Delete removes a document and notifies subscribers.
func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	query := `DELETE FROM documents WHERE collection = $1 AND id = $2`
	result, err := p.db.Exec(ctx, query, collection, id)
	if err != nil {
		return codedError("failed to delete document", err)
	}
	if result.RowsAffected() == 0 {
		return &Error{Code: "not-found"}
	}

	p.notify(ctx, collection)
	return nil
}

// ReadOne fetches a single document's fields.
func (p *Postgres) ReadOne(ctx context.Context, collection, id string) (Fields, bool, error) {
	query := `SELECT fields FROM documents WHERE collection = $1 AND id = $2`
	var body []byte
	err := p.db.QueryRow(ctx, query, collection, id).Scan(&body)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, codedError("failed to read document", err)
	}

	var fields Fields
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, false, fmt.Errorf("failed to decode document: %w", err)
	}
	return fields, true, nil
}

// Increment atomically adds delta to an integer field inside the document.
func (p *Postgres) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	query := `
		UPDATE documents
		SET fields = jsonb_set(fields, ARRAY[$3], to_jsonb(COALESCE((fields->>$3)::bigint, 0) + $4))
		WHERE collection = $1 AND id = $2
	`
	result, err := p.db.Exec(ctx, query, collection, id, field, delta)
	if err != nil {
		return codedError("failed to increment field", err)
	}
	if result.RowsAffected() == 0 {
		return &Error{Code: "not-found"}
	}

	p.notify(ctx, collection)
	return nil
}

// Subscribe registers a live query. The current snapshot is delivered
// asynchronously right away, then again after every collection change.
func (p *Postgres) Subscribe(q Query, onSnapshot func(Snapshot), onError func(error)) CancelFunc {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	sub := &postgresSub{query: q, onSnapshot: onSnapshot, onError: onError}
	p.subs[id] = sub
	p.mu.Unlock()

	go p.deliver(sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

func (p *Postgres) notify(ctx context.Context, collection string) {
	if _, err := p.db.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, collection); err != nil {
		log.Error().Err(err).Str("collection", collection).Msg("Failed to notify document change")
	}
}

// listen holds a dedicated connection on LISTEN and re-broadcasts the
// affected collection on every notification. The connection is
// re-acquired after transient failures.
func (p *Postgres) listen(ctx context.Context) {
	for ctx.Err() == nil {
		if err := p.listenOnce(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Document listener failed, reconnecting")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Postgres) listenOnce(ctx context.Context) error {
	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("failed to wait for notification: %w", err)
		}
		p.broadcast(notification.Payload)
	}
}

func (p *Postgres) broadcast(collection string) {
	p.mu.RLock()
	targets := make([]*postgresSub, 0, len(p.subs))
	for _, sub := range p.subs {
		if sub.query.Collection == collection {
			targets = append(targets, sub)
		}
	}
	p.mu.RUnlock()

	for _, sub := range targets {
		p.deliver(sub)
	}
}

func (p *Postgres) deliver(sub *postgresSub) {
	snap, err := p.querySnapshot(context.Background(), sub.query)
	if err != nil {
		sub.onError(err)
		return
	}
	sub.onSnapshot(snap)
}

func (p *Postgres) querySnapshot(ctx context.Context, q Query) (Snapshot, error) {
	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}
	// The order field is a JSONB key operand, so it stays a bind
	// parameter; only the direction is interpolated.
	query := fmt.Sprintf(
		`SELECT id, fields FROM documents WHERE collection = $1 ORDER BY fields->>$2 %s, id`,
		direction,
	)

	rows, err := p.db.Query(ctx, query, q.Collection, q.OrderBy)
	if err != nil {
		return nil, codedError("failed to query snapshot", err)
	}
	defer rows.Close()

	var snap Snapshot
	for rows.Next() {
		var (
			id   string
			body []byte
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		var fields Fields
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		snap = append(snap, Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	if snap == nil {
		snap = Snapshot{}
	}
	return snap, nil
}

// codedError maps backend error classes onto the store's stable codes.
func codedError(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501":
			return &Error{Code: "permission-denied", Err: err}
		case strings.HasPrefix(pgErr.Code, "53"), strings.HasPrefix(pgErr.Code, "54"):
			return &Error{Code: "resource-exhausted", Err: err}
		case strings.HasPrefix(pgErr.Code, "28"):
			return &Error{Code: "unauthenticated", Err: err}
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
