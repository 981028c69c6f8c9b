package imagesource

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
)

const blobPrefix = "blob:"

type blob struct {
	name string
	data []byte
}

// BlobStore holds file contents behind revocable "blob:<id>" references
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

func NewBlobStore() *BlobStore {
	return &BlobStore{
		blobs: make(map[string]blob),
	}
}

// Create stores data and returns a new reference to it
func (s *BlobStore) Create(name string, data []byte) string {
	ref := blobPrefix + generateBlobID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ref] = blob{name: name, data: data}
	return ref
}

// Get returns the data behind ref; revoked or unknown refs report false
func (s *BlobStore) Get(ref string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[ref]
	return b.data, b.name, ok
}

// Revoke releases the data behind ref. Unknown refs are ignored.
func (s *BlobStore) Revoke(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, ref)
}

func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// IsBlobRef reports whether ref was issued by a BlobStore
func IsBlobRef(ref string) bool {
	return strings.HasPrefix(ref, blobPrefix)
}

func generateBlobID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
