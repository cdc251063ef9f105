// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package token

// Batch defers subject invalidation while a group of upstream mutations is
// in progress. Scopes nest; pending invalidations are applied once, when the
// outermost scope closes.
//
//	exit := batch.Enter()
//	defer exit()
//	proxy.SetRaster(r)
//	proxy.SetGeoreferencing(g)
//
// A nil *Batch is valid and invalidates immediately.
type Batch struct {
	depth   int
	pending []*Subject
	seen    map[*Subject]struct{}
}

// NewBatch creates an empty batch context.
func NewBatch() *Batch {
	return &Batch{}
}

// Begin opens a scope.
func (b *Batch) Begin() {
	b.depth++
}

// End closes a scope. Closing the outermost scope flushes pending
// invalidations in the order they were first requested.
// End panics if no scope is open.
func (b *Batch) End() {
	if b.depth == 0 {
		panic("token: Batch.End without matching Begin")
	}
	b.depth--
	if b.depth > 0 {
		return
	}
	pending := b.pending
	b.pending = nil
	b.seen = nil
	for _, s := range pending {
		s.Invalidate()
	}
}

// Enter opens a scope and returns the function that closes it.
// The returned function may be called more than once; only the first call
// has an effect.
func (b *Batch) Enter() func() {
	b.Begin()
	done := false
	return func() {
		if done {
			return
		}
		done = true
		b.End()
	}
}

// Active reports whether at least one scope is open.
func (b *Batch) Active() bool {
	return b != nil && b.depth > 0
}

// Invalidate invalidates s now, or when the outermost scope closes if a
// scope is open. Repeated requests for the same subject are coalesced.
func (b *Batch) Invalidate(s *Subject) {
	if s == nil {
		return
	}
	if !b.Active() {
		s.Invalidate()
		return
	}
	if b.seen == nil {
		b.seen = make(map[*Subject]struct{})
	}
	if _, ok := b.seen[s]; ok {
		return
	}
	b.seen[s] = struct{}{}
	b.pending = append(b.pending, s)
}
