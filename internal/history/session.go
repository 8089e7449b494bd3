package history

import (
	"fmt"
	"reflect"

	"github.com/feral-file/ff-history/internal/domain"
	"github.com/feral-file/ff-history/internal/uow"
)

// HookName is the before-flush hook name versioned sessions carry.
const HookName = "history.versioning"

// VersionSession makes s record history for the models in r. Calling it again
// keeps the existing registration.
func (r *Registry) VersionSession(s *uow.Session) {
	s.OnBeforeFlush(HookName, r.beforeFlush)
}

// DeversionSession stops s from recording history. It is a no-op when s is
// not versioned.
func DeversionSession(s *uow.Session) {
	s.RemoveBeforeFlush(HookName)
}

// IsVersioned reports whether s records history.
func IsVersioned(s *uow.Session) bool {
	return s.HasBeforeFlush(HookName)
}

// VersionSession versions s against the Default registry.
func VersionSession(s *uow.Session) {
	Default.VersionSession(s)
}

// SetVersionMessage attaches a changelog message to the next revision of obj
// in s. The message is consumed by the next history row written for obj and
// discarded at the end of the next flush if none is.
func (r *Registry) SetVersionMessage(s *uow.Session, obj any, msg string) error {
	ht, ok := r.GetHistoryType(obj)
	if !ok {
		return fmt.Errorf("%s: %w", reflect.TypeOf(obj), domain.ErrNotVersioned)
	}
	if !ht.IncludeMessage {
		return fmt.Errorf("%s: %w", ht.Model, domain.ErrVersionMessageUnsupported)
	}
	return s.SetNote(obj, messageNote, msg)
}

// SetVersionMessage sets a message using the Default registry.
func SetVersionMessage(s *uow.Session, obj any, msg string) error {
	return Default.SetVersionMessage(s, obj, msg)
}

// VersionMessage returns the message pending for obj, or "" once consumed.
func VersionMessage(s *uow.Session, obj any) string {
	v, ok := s.Note(obj, messageNote)
	if !ok {
		return ""
	}
	msg, _ := v.(string)
	return msg
}
