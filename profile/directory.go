package profile

import (
	"context"
	"sync"
)

// Directory is an in-memory Resolver keyed by normalized email.
type Directory struct {
	mu      sync.RWMutex
	byEmail map[string]*Profile
}

// NewDirectory returns a Directory seeded with profiles.
func NewDirectory(profiles ...Profile) *Directory {
	d := &Directory{byEmail: make(map[string]*Profile, len(profiles))}
	for i := range profiles {
		d.Put(profiles[i])
	}
	return d
}

// Put inserts or replaces the profile for p.Email.
func (d *Directory) Put(p Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byEmail[NormalizeEmail(p.Email)] = p.Clone()
}

// Delete removes the profile for email, if any.
func (d *Directory) Delete(email string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.byEmail, NormalizeEmail(email))
}

func (d *Directory) FindByEmail(_ context.Context, email string) (*Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}
