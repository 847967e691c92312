package document

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// ID identifies a document for its whole lifetime.
type ID = uuid.UUID

// NewID generates a random document identity.
func NewID() ID {
	return uuid.New()
}

// Stamp is a modification stamp. Each mutation of any document produces a
// new, strictly larger Stamp.
type Stamp uint64

// stampCounter is shared by all documents so stamps are never reused.
var stampCounter atomic.Uint64

// NextStamp returns a fresh modification stamp.
func NextStamp() Stamp {
	return Stamp(stampCounter.Add(1))
}
