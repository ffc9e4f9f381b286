// Package memory provides the in-process store driver. It is the default for
// tests and single-node development rigs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veilrep/repledger/internal/model"
	"github.com/veilrep/repledger/internal/store"
)

// New returns an empty in-memory store.
func New() store.Store {
	return &memStore{
		activities:  make(map[uint64]*model.EncryptedActivity),
		reputations: make(map[uint64]*model.ReputationState),
		requests:    make(map[uint64]*model.DecryptionRequest),
	}
}

type memStore struct {
	mu          sync.RWMutex
	nextID      uint64
	activities  map[uint64]*model.EncryptedActivity
	reputations map[uint64]*model.ReputationState
	requests    map[uint64]*model.DecryptionRequest
}

func (s *memStore) Activities() store.Activities   { return (*activities)(s) }
func (s *memStore) Reputations() store.Reputations { return (*reputations)(s) }
func (s *memStore) Requests() store.Requests       { return (*requests)(s) }

func (s *memStore) HealthPing(ctx context.Context) error { return ctx.Err() }

// --- Activities ---

type activities memStore

func (a *activities) Append(ctx context.Context, in *model.EncryptedActivity) (*model.EncryptedActivity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	out := *in
	out.ActivityID = a.nextID
	out.TraceID = uuid.New().String()
	out.SubmittedAt = time.Now().UTC()
	a.activities[out.ActivityID] = &out
	return &out, nil
}

func (a *activities) Get(ctx context.Context, activityID uint64) (*model.EncryptedActivity, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rec, ok := a.activities[activityID]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (a *activities) ListByUser(ctx context.Context, userID uint64) ([]*model.EncryptedActivity, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []*model.EncryptedActivity
	for _, rec := range a.activities {
		if rec.UserID == userID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivityID < out[j].ActivityID })
	return out, nil
}

// --- Reputations ---

type reputations memStore

func (r *reputations) Get(ctx context.Context, userID uint64) (*model.ReputationState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.reputations[userID]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *st
	return &out, nil
}

func (r *reputations) Put(ctx context.Context, s *model.ReputationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.reputations[s.UserID] = &cp
	return nil
}

// --- Requests ---

type requests memStore

func (q *requests) Create(ctx context.Context, in *model.DecryptionRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := *in
	q.requests[in.RequestID] = &cp
	return nil
}

func (q *requests) Get(ctx context.Context, requestID uint64) (*model.DecryptionRequest, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	req, ok := q.requests[requestID]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *req
	return &out, nil
}

func (q *requests) Resolve(ctx context.Context, requestID uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.requests[requestID]; !ok {
		return model.ErrNotFound
	}
	delete(q.requests, requestID)
	return nil
}

func (q *requests) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for id, req := range q.requests {
		if req.RequestedAt.Before(before) {
			delete(q.requests, id)
			n++
		}
	}
	return n, nil
}
