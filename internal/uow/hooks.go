package uow

import "context"

// BeforeFlushFunc runs once per flush, after the pending changes are collected
// and before any SQL is emitted. A returned error aborts the flush.
type BeforeFlushFunc func(ctx context.Context, f *Flush) error

// AfterCommitFunc runs after the session transaction committed.
// It receives the events emitted by the flushes of that transaction.
type AfterCommitFunc func(ctx context.Context, c *Commit)

type namedHook[F any] struct {
	name string
	fn   F
}

// hookList keeps hooks in registration order, at most one per name.
type hookList[F any] struct {
	hooks []namedHook[F]
}

func (l *hookList[F]) add(name string, fn F) bool {
	if l.has(name) {
		return false
	}
	l.hooks = append(l.hooks, namedHook[F]{name: name, fn: fn})
	return true
}

func (l *hookList[F]) remove(name string) bool {
	for i, h := range l.hooks {
		if h.name == name {
			l.hooks = append(l.hooks[:i], l.hooks[i+1:]...)
			return true
		}
	}
	return false
}

func (l *hookList[F]) has(name string) bool {
	for _, h := range l.hooks {
		if h.name == name {
			return true
		}
	}
	return false
}

// snapshot copies the list so hooks may (de)register while it is being run.
func (l *hookList[F]) snapshot() []namedHook[F] {
	out := make([]namedHook[F], len(l.hooks))
	copy(out, l.hooks)
	return out
}

// OnBeforeFlush registers fn under name. It returns false and leaves the
// existing registration in place when name is already taken.
func (s *Session) OnBeforeFlush(name string, fn BeforeFlushFunc) bool {
	return s.beforeFlush.add(name, fn)
}

// RemoveBeforeFlush unregisters the before-flush hook called name.
func (s *Session) RemoveBeforeFlush(name string) bool {
	return s.beforeFlush.remove(name)
}

// HasBeforeFlush reports whether a before-flush hook called name is registered.
func (s *Session) HasBeforeFlush(name string) bool {
	return s.beforeFlush.has(name)
}

// OnAfterCommit registers fn under name; see OnBeforeFlush.
func (s *Session) OnAfterCommit(name string, fn AfterCommitFunc) bool {
	return s.afterCommit.add(name, fn)
}

// RemoveAfterCommit unregisters the after-commit hook called name.
func (s *Session) RemoveAfterCommit(name string) bool {
	return s.afterCommit.remove(name)
}

// HasAfterCommit reports whether an after-commit hook called name is registered.
func (s *Session) HasAfterCommit(name string) bool {
	return s.afterCommit.has(name)
}
