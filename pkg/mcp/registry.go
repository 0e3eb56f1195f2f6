package mcp

import (
	"sync"

	"github.com/google/uuid"

	"github.com/compoundkit/compoundc/pkg/schema"
)

// DocumentRegistry holds the documents an editor session has opened,
// keyed by server-assigned handle. It is in-memory only; nothing is
// persisted across server lifetimes.
type DocumentRegistry struct {
	mu   sync.RWMutex
	docs map[string]*schema.CompoundAction
}

// NewDocumentRegistry creates a new empty DocumentRegistry.
func NewDocumentRegistry() *DocumentRegistry {
	return &DocumentRegistry{docs: make(map[string]*schema.CompoundAction)}
}

// Open registers a document and returns its handle.
func (r *DocumentRegistry) Open(doc *schema.CompoundAction) string {
	id := uuid.New().String()
	r.mu.Lock()
	r.docs[id] = doc
	r.mu.Unlock()
	return id
}

// Get returns the document for the given handle, if opened.
func (r *DocumentRegistry) Get(id string) (*schema.CompoundAction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	return doc, ok
}

// Replace swaps the document behind an existing handle. Returns false
// when the handle is unknown.
func (r *DocumentRegistry) Replace(id string, doc *schema.CompoundAction) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return false
	}
	r.docs[id] = doc
	return true
}

// Close removes a document handle.
func (r *DocumentRegistry) Close(id string) {
	r.mu.Lock()
	delete(r.docs, id)
	r.mu.Unlock()
}

// Len returns the number of open documents.
func (r *DocumentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
