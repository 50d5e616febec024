package collection

import "context"

// Scope is the unit of work for collections loaded during one request. It
// replaces implicit persist-at-shutdown callbacks: the caller closes the
// scope at a single, explicit point and every tracked collection that is
// still modified and unlocked is saved exactly once. Closing twice is safe.
type Scope struct {
	tracked []*Collection
	seen    map[*Collection]struct{}
	closed  bool
}

func NewScope() *Scope {
	return &Scope{seen: map[*Collection]struct{}{}}
}

// Track registers a collection for deferred persistence. Safe on a nil
// scope so collections can be used without one.
func (s *Scope) Track(c *Collection) {
	if s == nil || s.closed {
		return
	}
	if _, ok := s.seen[c]; ok {
		return
	}
	s.seen[c] = struct{}{}
	s.tracked = append(s.tracked, c)
}

// Close flushes pending changes. It is a safety net, not the primary save
// path: collections already saved explicitly are not written again.
func (s *Scope) Close(ctx context.Context) error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	for _, c := range s.tracked {
		if !c.IsModified() || c.IsLocked() {
			continue
		}
		if _, err := c.Save(ctx, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.tracked = nil
	return firstErr
}
