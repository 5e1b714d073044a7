package camera

import (
	"time"

	"github.com/google/uuid"
)

// PendingRequest is an issued request whose completion has not been routed yet.
type PendingRequest struct {
	ID        uuid.UUID
	Operation *Operation
	URL       string
	IssuedAt  time.Time

	// Tracked requests are waited for by Drain. Image fetches are not.
	Tracked bool
}

// completion pairs a finished exchange with the request that produced it.
type completion struct {
	request  *PendingRequest
	envelope *Envelope
}

// pendingSet holds the tracked in-flight requests. It is only touched from
// the goroutine that issues and drains, so it needs no locking.
type pendingSet struct {
	requests map[uuid.UUID]*PendingRequest
}

func newPendingSet() *pendingSet {
	return &pendingSet{requests: make(map[uuid.UUID]*PendingRequest)}
}

func (s *pendingSet) add(p *PendingRequest) {
	s.requests[p.ID] = p
}

// remove deregisters id. Removing an absent id is a no-op.
func (s *pendingSet) remove(id uuid.UUID) bool {
	if _, ok := s.requests[id]; !ok {
		return false
	}
	delete(s.requests, id)
	return true
}

func (s *pendingSet) contains(id uuid.UUID) bool {
	_, ok := s.requests[id]
	return ok
}

func (s *pendingSet) len() int {
	return len(s.requests)
}

// snapshot returns the ids tracked right now. Drain waits on exactly this
// set, so requests issued while draining never extend the wait.
func (s *pendingSet) snapshot() map[uuid.UUID]struct{} {
	ids := make(map[uuid.UUID]struct{}, len(s.requests))
	for id := range s.requests {
		ids[id] = struct{}{}
	}
	return ids
}
