// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package token provides the pull-based invalidation primitive used by the
// layer resource cache.
//
// A producer owns a [Subject]. Each consumer owns one [Observer] per input and
// asks the observer whether it has seen the subject's latest state:
//
//	if !c.rasterObserver.IsUpToDate(src.Subject()) {
//	    c.rebuild()
//	    c.rasterObserver.Sync(src.Subject())
//	}
//
// Invalidation is never pushed to consumers. A subject only advances a
// version counter; consumers discover the change the next time they look.
package token

// Subject advertises the validity of a producer's current state.
// The zero value is ready to use.
type Subject struct {
	version uint64
}

// Invalidate marks every observer synced with s as out of date.
// Calling Invalidate again before any observer resynchronizes has no
// additional effect.
func (s *Subject) Invalidate() {
	s.version++
}

// Observer records the state of a Subject last seen by a consumer.
// The zero value has never seen any subject and is therefore stale.
type Observer struct {
	subject *Subject
	version uint64
}

// IsUpToDate reports whether o was synced with this exact subject instance
// and the subject has not been invalidated since.
func (o *Observer) IsUpToDate(s *Subject) bool {
	return s != nil && o.subject == s && o.version == s.version
}

// Sync records the current state of s as seen.
func (o *Observer) Sync(s *Subject) {
	o.subject = s
	if s != nil {
		o.version = s.version
	}
}

// Reset forgets the subject o was synced with. Consumers call Reset when the
// object supplying an input is replaced, not just its value.
func (o *Observer) Reset() {
	*o = Observer{}
}
