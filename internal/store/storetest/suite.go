// Package storetest holds a compliance suite run against every store driver.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/veilrep/repledger/internal/model"
	"github.com/veilrep/repledger/internal/store"
)

func ct(payload string) *model.Ciphertext {
	return &model.Ciphertext{Context: "testctx", Data: []byte(payload)}
}

// Run exercises the ledger table contracts against a store.Store
// implementation. makeStore must return a clean, isolated store.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Activity ids are assigned from 1 and strictly increase.
	var lastID uint64
	for i := 0; i < 5; i++ {
		rec, err := s.Activities().Append(ctx, &model.EncryptedActivity{
			UserID: 7, Posts: ct("p"), Replies: ct("r"), Likes: ct("l"),
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if rec.ActivityID <= lastID {
			t.Fatalf("activity id not increasing: %d after %d", rec.ActivityID, lastID)
		}
		if rec.TraceID == "" || rec.SubmittedAt.IsZero() {
			t.Fatalf("Append did not stamp trace/time: %+v", rec)
		}
		lastID = rec.ActivityID
	}

	got, err := s.Activities().Get(ctx, 1)
	if err != nil || got.UserID != 7 || string(got.Posts.Data) != "p" {
		t.Fatalf("Get(1): got=%+v err=%v", got, err)
	}
	if _, err := s.Activities().Get(ctx, 9999); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get(unassigned): want ErrNotFound, got %v", err)
	}

	other, err := s.Activities().Append(ctx, &model.EncryptedActivity{
		UserID: 8, Posts: ct("p"), Replies: ct("r"), Likes: ct("l"),
	})
	if err != nil {
		t.Fatalf("Append other user: %v", err)
	}
	if lst, err := s.Activities().ListByUser(ctx, 7); err != nil || len(lst) != 5 {
		t.Fatalf("ListByUser(7): n=%d err=%v", len(lst), err)
	}
	if lst, err := s.Activities().ListByUser(ctx, 8); err != nil || len(lst) != 1 || lst[0].ActivityID != other.ActivityID {
		t.Fatalf("ListByUser(8): got=%v err=%v", lst, err)
	}

	// Reputation upsert.
	if _, err := s.Reputations().Get(ctx, 7); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Reputations.Get before Put: want ErrNotFound, got %v", err)
	}
	if err := s.Reputations().Put(ctx, &model.ReputationState{UserID: 7, EncryptedScore: ct("s1")}); err != nil {
		t.Fatalf("Reputations.Put: %v", err)
	}
	if err := s.Reputations().Put(ctx, &model.ReputationState{UserID: 7, EncryptedScore: ct("s2"), MintedBadge: true}); err != nil {
		t.Fatalf("Reputations.Put update: %v", err)
	}
	st, err := s.Reputations().Get(ctx, 7)
	if err != nil || string(st.EncryptedScore.Data) != "s2" || !st.MintedBadge {
		t.Fatalf("Reputations.Get after update: got=%+v err=%v", st, err)
	}

	// Requests resolve exactly once.
	now := time.Now().UTC()
	req := &model.DecryptionRequest{RequestID: 42, UserID: 7, RequestedAt: now}
	if err := s.Requests().Create(ctx, req); err != nil {
		t.Fatalf("Requests.Create: %v", err)
	}
	if got, err := s.Requests().Get(ctx, 42); err != nil || got.UserID != 7 {
		t.Fatalf("Requests.Get: got=%+v err=%v", got, err)
	}
	if err := s.Requests().Resolve(ctx, 42); err != nil {
		t.Fatalf("Requests.Resolve: %v", err)
	}
	if err := s.Requests().Resolve(ctx, 42); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("second Resolve: want ErrNotFound, got %v", err)
	}
	if _, err := s.Requests().Get(ctx, 42); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get after Resolve: want ErrNotFound, got %v", err)
	}

	// Expiry pruning.
	old := &model.DecryptionRequest{RequestID: 50, UserID: 7, RequestedAt: now.Add(-2 * time.Hour)}
	fresh := &model.DecryptionRequest{RequestID: 51, UserID: 7, RequestedAt: now}
	if err := s.Requests().Create(ctx, old); err != nil {
		t.Fatalf("Create old: %v", err)
	}
	if err := s.Requests().Create(ctx, fresh); err != nil {
		t.Fatalf("Create fresh: %v", err)
	}
	n, err := s.Requests().DeleteExpired(ctx, now.Add(-time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpired: n=%d err=%v", n, err)
	}
	if _, err := s.Requests().Get(ctx, 50); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expired request still present: %v", err)
	}
	if _, err := s.Requests().Get(ctx, 51); err != nil {
		t.Fatalf("fresh request pruned: %v", err)
	}

	// HealthPing.
	if err := s.HealthPing(ctx); err != nil {
		t.Fatalf("HealthPing: %v", err)
	}
}
