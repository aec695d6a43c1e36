// Package session holds the operator's single active subject.
package session

import (
	"sync"

	"github.com/eaglebank/scanpoint/scanner/internal/payload"
)

// Subject is the client's read-only copy of an authoritative record. It is
// replaced wholesale, never edited field by field.
type Subject struct {
	ID          string
	DisplayName string
	Balance     int64
}

// Session is safe for concurrent use by the decode loop and operator input.
type Session struct {
	mu      sync.Mutex
	active  *payload.SubjectRef
	subject *Subject
}

func New() *Session {
	return &Session{}
}

// SetActive replaces the active reference unconditionally. The cached subject
// is dropped when the id changes.
func (s *Session) SetActive(ref payload.SubjectRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.ID != ref.ID {
		s.subject = nil
	}
	s.active = &ref
}

func (s *Session) Active() (payload.SubjectRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return payload.SubjectRef{}, false
	}
	return *s.active, true
}

// IsActive reports whether id is the active subject id.
func (s *Session) IsActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil && s.active.ID == id
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
	s.subject = nil
}

// AcceptSubject caches subj as the authoritative copy for requestedID, but
// only while requestedID is still active. It reports whether subj was kept.
func (s *Session) AcceptSubject(requestedID string, subj Subject) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.ID != requestedID {
		return false
	}
	s.subject = &subj
	return true
}

// Subject returns the cached authoritative copy of the active subject.
func (s *Session) Subject() (Subject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subject == nil {
		return Subject{}, false
	}
	return *s.subject, true
}
