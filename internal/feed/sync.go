// Package feed keeps a live local mirror of the post collection and
// performs the mutations that write through to it. The mirror is
// replaced wholesale by every subscription snapshot and is never
// touched by the mutation paths; create and delete rely on the next
// push to reconcile.
package feed

import (
	"errors"

	"framez-backend/internal/apperr"
	"framez-backend/internal/models"
	"framez-backend/internal/store"
)

// Synchronizer is the session-gated feed component: one standing
// subscription plus the mutation surface, constructed per consuming
// client and torn down when that client goes away.
type Synchronizer struct {
	*Writer
	*Mirror
}

// New refuses construction until the session is present, then opens the
// subscription. onUpdate, when non-nil, receives every applied snapshot.
func New(st store.Store, sessions Sessions, onUpdate func([]*models.Post)) (*Synchronizer, error) {
	if _, ok := sessions.CurrentUser(); !ok {
		return nil, apperr.NewPostError(apperr.CodeUnauthenticated, errors.New("session not present"))
	}
	return &Synchronizer{
		Writer: NewWriter(st, sessions),
		Mirror: NewMirror(st, onUpdate),
	}, nil
}
