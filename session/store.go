package session

import (
	"errors"
	"sync"

	"github.com/MrEthical07/goIdentity/profile"
)

var (
	// ErrStaleTransition reports a guarded transition overtaken by a sign-out.
	ErrStaleTransition = errors.New("session transition superseded by sign-out")
	// ErrUnknownTransition reports an unsupported transition kind.
	ErrUnknownTransition = errors.New("unknown session transition")
	// ErrMissingUser reports a sign-in without a user.
	ErrMissingUser = errors.New("sign-in transition requires a user")
)

// Store is the single state cell for the current session.
type Store struct {
	mu           sync.RWMutex
	state        State
	epoch        uint64
	signOutEpoch uint64

	// notifyMu serializes observer delivery so subscribers see transitions in order.
	notifyMu  sync.Mutex
	obsMu     sync.RWMutex
	observers map[uint64]func(State)
	nextObsID uint64
}

// NewStore returns a store in the loading state with no user.
func NewStore() *Store {
	return &Store{
		state:     State{Loading: true},
		observers: make(map[uint64]func(State)),
	}
}

// Snapshot returns the current state. The returned user is a copy.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{User: s.state.User.Clone(), Loading: s.state.Loading}
}

// Epoch returns the number of transitions applied so far.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Subscribe registers fn for every subsequent state change and returns a
// function that removes it. fn runs on the writer's goroutine and must not
// call Apply.
func (s *Store) Subscribe(fn func(State)) func() {
	if fn == nil {
		return func() {}
	}
	s.obsMu.Lock()
	s.nextObsID++
	id := s.nextObsID
	s.observers[id] = fn
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

// Apply performs t atomically and notifies observers when anything changed.
func (s *Store) Apply(t Transition) (Result, error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	prev := s.state
	next := prev

	switch t.Kind {
	case KindRestore, KindSignIn:
		if t.Kind == KindSignIn && t.User == nil {
			s.mu.Unlock()
			return Result{}, ErrMissingUser
		}
		if t.Guarded && s.signOutEpoch > t.Since {
			s.mu.Unlock()
			return Result{Current: cloneState(prev)}, ErrStaleTransition
		}
		next = State{User: t.User.Clone(), Loading: false}
	case KindSignOut:
		next = State{User: nil, Loading: false}
	case KindSettle:
		next = State{User: nil, Loading: false}
	default:
		s.mu.Unlock()
		return Result{}, ErrUnknownTransition
	}

	s.epoch++
	if t.Kind == KindSignOut {
		s.signOutEpoch = s.epoch
	}
	s.state = next
	res := Result{
		Previous: prev.User.Clone(),
		Current:  cloneState(next),
		Changed:  !sameUser(prev.User, next.User),
	}
	s.mu.Unlock()

	if res.Changed || prev.Loading != next.Loading {
		s.notify(res.Current)
	}
	return res, nil
}

func (s *Store) notify(state State) {
	s.obsMu.RLock()
	fns := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.RUnlock()

	for _, fn := range fns {
		fn(cloneState(state))
	}
}

func cloneState(s State) State {
	return State{User: s.User.Clone(), Loading: s.Loading}
}

func sameUser(a, b *profile.Profile) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
