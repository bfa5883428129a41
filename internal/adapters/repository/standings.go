package repository

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/moodmarket/pkg/metrics"
)

// Treap-based, in-memory predictor standings.
//
// Ordering: winnings DESC, then user ASC (deterministic).
// The BST comparator treats "less" as ranks earlier, so an in-order
// traversal yields the standings from best to worst.

// Entry is one row of the standings.
type Entry struct {
	Rank     int    `json:"rank"`
	User     string `json:"user"`
	Winnings uint64 `json:"winnings"`
}

// treap node
type node struct {
	id    string
	score uint64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) should appear before (bScore, bID).
func less(aScore uint64, aID string, bScore uint64, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score uint64) *node {
	if n == nil {
		return nil
	}
	if score == n.score && id == n.id {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	} else if less(score, id, n.score, n.id) {
		n.left = deleteNode(n.left, id, score)
	} else {
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// countGreater returns how many nodes have a strictly higher score.
func countGreater(n *node, score uint64) int {
	count := 0
	for n != nil {
		if n.score > score {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, Entry{User: n.id, Winnings: n.score})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// assignRanks applies competition ranking: tied winnings share a rank and the
// next distinct value takes its position index.
func assignRanks(entries []Entry) {
	for i := range entries {
		if i > 0 && entries[i].Winnings == entries[i-1].Winnings {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}

// Standings ranks predictors by total winnings.
type Standings struct {
	mu   sync.RWMutex
	root *node
	byID map[string]uint64
	seed uint64
	rng  *rand.Rand
}

// NewStandings constructs empty standings.
func NewStandings(opts ...Option) *Standings {
	s := &Standings{
		byID: make(map[string]uint64),
		seed: uint64(time.Now().UnixNano()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15)) //nolint:gosec // treap priorities, not security sensitive
	return s
}

// UpdateBest records winnings for user when higher than the stored value.
// Winnings are monotonic, so every claim is an improvement.
func (s *Standings) UpdateBest(ctx context.Context, user string, winnings uint64) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	if old, ok := s.byID[user]; ok {
		if winnings <= old {
			s.mu.Unlock()
			return false, nil
		}
		s.root = deleteNode(s.root, user, old)
	}
	s.byID[user] = winnings
	s.root = insert(s.root, user, winnings, s.rng.Uint64())
	count := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateStandingsSize(count)
	return true, nil
}

// Rank returns the standing of user in O(log n).
func (s *Standings) Rank(ctx context.Context, user string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	winnings, ok := s.byID[user]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{
		Rank:     1 + countGreater(s.root, winnings),
		User:     user,
		Winnings: winnings,
	}, nil
}

// TopN returns the best n predictors.
func (s *Standings) TopN(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, &out)
	assignRanks(out)
	return out, nil
}

// Count returns the number of ranked predictors.
func (s *Standings) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
