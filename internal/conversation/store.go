package conversation

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dyike/StockScout/internal/models"
)

var (
	// ErrNotFound means the conversation id is unknown, or its pending
	// queue is already empty.
	ErrNotFound = errors.New("conversation not found")
	// ErrExpired means the conversation existed but its TTL elapsed.
	ErrExpired = errors.New("conversation expired")
)

// Conversation tracks one in-flight multi-turn disambiguation dialogue.
// Pending candidates resolve strictly in FIFO order.
type Conversation struct {
	ID        string
	Query     string
	Pending   []models.Candidate
	Confirmed []string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu sync.Mutex
}

// Head returns the earliest pending candidate without consuming it.
func (c *Conversation) Head() *models.Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Pending) == 0 {
		return nil
	}
	head := c.Pending[0]
	return &head
}

// ConfirmedTickers returns a copy of the confirmed set so far.
func (c *Conversation) ConfirmedTickers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.Confirmed))
	copy(out, c.Confirmed)
	return out
}

// AdvanceResult is the outcome of one confirm/reject step.
type AdvanceResult struct {
	// Next is the new head of the pending queue, nil when the queue
	// emptied.
	Next *models.Candidate
	// Confirmed is the confirmed ticker set after this step.
	Confirmed []string
	// Done means no candidates remain and the caller can proceed.
	Done bool
	// NeedClarification means the queue emptied with nothing confirmed:
	// the ambiguous reference was dropped rather than guessed, ask the
	// user to restate it.
	NeedClarification bool
}

// Store holds in-flight conversations keyed by id. Operations on distinct
// conversations never block each other; a single conversation's advances
// are serialized by its own lock.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	ttl           time.Duration
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{
		conversations: make(map[string]*Conversation),
		ttl:           ttl,
	}
}

// Create opens a conversation for query with the given pending candidates
// and already-confirmed tickers, returning the generated id.
func (s *Store) Create(query string, pending []models.Candidate, confirmed []string) *Conversation {
	now := time.Now()
	conv := &Conversation{
		ID:        uuid.NewString(),
		Query:     query,
		Pending:   append([]models.Candidate(nil), pending...),
		Confirmed: append([]string(nil), confirmed...),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.mu.Unlock()
	return conv
}

// Get returns the conversation for id. Expired conversations are removed
// and reported as ErrExpired even if never advanced.
func (s *Store) Get(id string) (*Conversation, error) {
	s.mu.RLock()
	conv, ok := s.conversations[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(conv.ExpiresAt) {
		s.Delete(id)
		return nil, ErrExpired
	}
	return conv, nil
}

// Advance consumes the earliest pending candidate: accept appends its
// ticker to the confirmed set, reject discards it. Advancing an unknown,
// expired, or already-drained conversation fails.
func (s *Store) Advance(id string, accept bool) (*AdvanceResult, error) {
	conv, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	if len(conv.Pending) == 0 {
		return nil, ErrNotFound
	}

	head := conv.Pending[0]
	conv.Pending = conv.Pending[1:]
	if accept {
		conv.Confirmed = append(conv.Confirmed, head.Ticker)
	}

	result := &AdvanceResult{
		Confirmed: append([]string(nil), conv.Confirmed...),
	}
	if len(conv.Pending) > 0 {
		next := conv.Pending[0]
		result.Next = &next
		return result, nil
	}

	result.Done = true
	result.NeedClarification = len(conv.Confirmed) == 0
	return result, nil
}

// Delete removes a conversation, typically once its analysis launched.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.conversations, id)
	s.mu.Unlock()
}

// Len reports the number of live conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Sweep removes every conversation past its deadline and returns how many
// were dropped.
func (s *Store) Sweep() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, conv := range s.conversations {
		if now.After(conv.ExpiresAt) {
			delete(s.conversations, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on interval until ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					log.Printf("expired %d conversation(s)", n)
				}
			}
		}
	}()
}
