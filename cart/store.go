package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoCart is returned by Edit when the session has no live cart.
var ErrNoCart = errors.New("cart not found")

type session struct {
	cart    Cart
	touched time.Time
}

// Store maps session ids to carts. A cart untouched for longer than the TTL
// is dropped by Sweep.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the session's cart, empty if unknown or expired.
func (s *Store) Get(sessionID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.lookup(sessionID)
	if sess == nil {
		return (&Cart{}).Snapshot()
	}
	sess.touched = s.now()
	return sess.cart.Snapshot()
}

// Update runs fn on the session's cart while holding the store lock. The cart
// is created on first use.
func (s *Store) Update(sessionID string, fn func(c *Cart) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.lookup(sessionID)
	if sess == nil {
		sess = &session{}
		s.sessions[sessionID] = sess
	}
	sess.touched = s.now()

	if err := fn(&sess.cart); err != nil {
		return sess.cart.Snapshot(), err
	}
	return sess.cart.Snapshot(), nil
}

// Edit runs fn on an existing cart. Unlike Update it never creates one, so
// unknown or expired sessions get ErrNoCart and leave the store untouched.
func (s *Store) Edit(sessionID string, fn func(c *Cart) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.lookup(sessionID)
	if sess == nil {
		return (&Cart{}).Snapshot(), ErrNoCart
	}
	sess.touched = s.now()

	if err := fn(&sess.cart); err != nil {
		return sess.cart.Snapshot(), err
	}
	return sess.cart.Snapshot(), nil
}

func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Sweep drops expired carts and returns how many it removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := zerolog.Ctx(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logger.Debug().Int("removed", n).Msg("swept idle carts")
			}
		}
	}
}

func (s *Store) lookup(sessionID string) *session {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if s.expired(sess) {
		delete(s.sessions, sessionID)
		return nil
	}
	return sess
}

func (s *Store) expired(sess *session) bool {
	return s.ttl > 0 && s.now().Sub(sess.touched) > s.ttl
}
