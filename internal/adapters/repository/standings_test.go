package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
)

func TestStandings_BasicOperations(t *testing.T) {
	ctx := context.Background()
	s := NewStandings(WithSeed(1))

	if count := s.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	updated, err := s.UpdateBest(ctx, "alice", 4_750_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated {
		t.Error("expected update to succeed")
	}

	entry, err := s.Rank(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 || entry.Winnings != 4_750_000 {
		t.Errorf("unexpected entry %+v", entry)
	}

	if _, err := s.Rank(ctx, "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestStandings_UpdatesOnlyIncrease(t *testing.T) {
	ctx := context.Background()
	s := NewStandings(WithSeed(2))

	mustUpdate(t, s, "alice", 50)
	if updated, _ := s.UpdateBest(ctx, "alice", 40); updated {
		t.Error("expected lower winnings to be ignored")
	}
	if updated, _ := s.UpdateBest(ctx, "alice", 50); updated {
		t.Error("expected equal winnings to be ignored")
	}
	mustUpdate(t, s, "alice", 60)

	entry, _ := s.Rank(ctx, "alice")
	if entry.Winnings != 60 {
		t.Errorf("expected winnings 60, got %d", entry.Winnings)
	}
	if s.Count(ctx) != 1 {
		t.Errorf("expected one predictor, got %d", s.Count(ctx))
	}
}

func TestStandings_TiesShareRank(t *testing.T) {
	ctx := context.Background()
	s := NewStandings(WithSeed(3))

	mustUpdate(t, s, "carol", 100)
	mustUpdate(t, s, "bob", 200)
	mustUpdate(t, s, "alice", 200)
	mustUpdate(t, s, "dave", 50)

	top, err := s.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Entry{
		{Rank: 1, User: "alice", Winnings: 200},
		{Rank: 1, User: "bob", Winnings: 200},
		{Rank: 3, User: "carol", Winnings: 100},
		{Rank: 4, User: "dave", Winnings: 50},
	}
	if !slices.Equal(top, want) {
		t.Errorf("unexpected standings %+v", top)
	}

	for _, w := range want {
		got, err := s.Rank(ctx, w.User)
		if err != nil || got != w {
			t.Errorf("rank %s: got %+v err %v, want %+v", w.User, got, err, w)
		}
	}

	top2, _ := s.TopN(ctx, 2)
	if len(top2) != 2 || top2[1].User != "bob" {
		t.Errorf("unexpected top 2 %+v", top2)
	}
}

func TestStandings_MatchesSortedReference(t *testing.T) {
	ctx := context.Background()
	s := NewStandings(WithSeed(4))
	rng := rand.New(rand.NewPCG(4, 4))
	best := make(map[string]uint64)

	for i := 0; i < 2000; i++ {
		user := fmt.Sprintf("user-%d", rng.IntN(300))
		w := rng.Uint64N(10_000)
		if _, err := s.UpdateBest(ctx, user, w); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if old, ok := best[user]; !ok || w > old {
			best[user] = w
		}
	}

	var ref []Entry
	for user, w := range best {
		ref = append(ref, Entry{User: user, Winnings: w})
	}
	slices.SortFunc(ref, func(a, b Entry) int {
		if a.Winnings != b.Winnings {
			if a.Winnings > b.Winnings {
				return -1
			}
			return 1
		}
		if a.User < b.User {
			return -1
		}
		return 1
	})
	assignRanks(ref)

	top, _ := s.TopN(ctx, 50)
	if !slices.Equal(top, ref[:50]) {
		t.Errorf("top 50 diverges from reference")
	}
	for _, e := range ref {
		got, err := s.Rank(ctx, e.User)
		if err != nil || got.Rank != e.Rank {
			t.Fatalf("rank %s: got %+v err %v, want %d", e.User, got, err, e.Rank)
		}
	}
}

func TestStandings_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewStandings()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_, _ = s.UpdateBest(ctx, fmt.Sprintf("user-%d", i%50), uint64(g*1000+i))
				_, _ = s.TopN(ctx, 5)
			}
		}(g)
	}
	wg.Wait()

	if s.Count(ctx) != 50 {
		t.Errorf("expected 50 predictors, got %d", s.Count(ctx))
	}
}

func mustUpdate(t *testing.T, s *Standings, user string, winnings uint64) {
	t.Helper()
	updated, err := s.UpdateBest(context.Background(), user, winnings)
	if err != nil || !updated {
		t.Fatalf("update %s to %d: updated=%v err=%v", user, winnings, updated, err)
	}
}
