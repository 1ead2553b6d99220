package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/shelfmark/shelfmark/internal/media"
)

// MemoryMediaBaseURL prefixes every URL handed out by MemoryMedia.
const MemoryMediaBaseURL = "https://media.test/books/"

// MemoryMedia is an in-memory image host. Payloads go through the same
// decoding rules as the S3 store.
type MemoryMedia struct {
	mu      sync.Mutex
	objects map[string]media.Image

	// UploadErr and DeleteErr, when set, fail the matching call.
	UploadErr error
	DeleteErr error
}

// NewMemoryMedia creates an empty MemoryMedia.
func NewMemoryMedia() *MemoryMedia {
	return &MemoryMedia{objects: make(map[string]media.Image)}
}

// Upload decodes payload and stores it under a fresh URL.
func (m *MemoryMedia) Upload(_ context.Context, payload string) (string, error) {
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	img, err := media.DecodeImage(payload, media.DefaultMaxImageBytes)
	if err != nil {
		return "", err
	}

	url := MemoryMediaBaseURL + ulid.Make().String() + img.Ext()
	m.mu.Lock()
	m.objects[url] = img
	m.mu.Unlock()
	return url, nil
}

// Delete removes an image this store handed out. Unknown URLs are ignored.
func (m *MemoryMedia) Delete(_ context.Context, imageURL string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if !strings.HasPrefix(imageURL, MemoryMediaBaseURL) {
		return nil
	}
	m.mu.Lock()
	delete(m.objects, imageURL)
	m.mu.Unlock()
	return nil
}

// Has reports whether imageURL is currently stored.
func (m *MemoryMedia) Has(imageURL string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[imageURL]
	return ok
}

// Len returns the number of stored images.
func (m *MemoryMedia) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
