package services

import (
	"fmt"
	"sync"
)

// MockS3Service is a mock implementation of S3Interface for testing
type MockS3Service struct {
	// BaseURL is prepended to generated URLs; tests can point it at an
	// httptest server so presigned PUT URLs actually resolve
	BaseURL string

	presignedPuts map[string]string // key -> content type
	deletedKeys   []string
	mu            sync.RWMutex
}

// NewMockS3Service creates a new mock S3 service
func NewMockS3Service() *MockS3Service {
	return &MockS3Service{
		BaseURL:       "https://test-bucket.s3.us-east-1.amazonaws.com",
		presignedPuts: make(map[string]string),
	}
}

// SetAsMockForTesting sets this mock as the global S3 service instance for testing
func (m *MockS3Service) SetAsMockForTesting() {
	SetS3Service(m)
}

// PresignPutURL simulates generating a presigned upload URL
func (m *MockS3Service) PresignPutURL(key, contentType string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}

	m.mu.Lock()
	m.presignedPuts[key] = contentType
	m.mu.Unlock()

	return fmt.Sprintf("%s/%s?presigned=put", m.BaseURL, key), nil
}

// PresignGetURL simulates generating a presigned read URL
func (m *MockS3Service) PresignGetURL(key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return fmt.Sprintf("%s/%s?presigned=get", m.BaseURL, key), nil
}

// DeleteObject simulates deleting an object
func (m *MockS3Service) DeleteObject(key string) error {
	if key == "" {
		return nil
	}

	m.mu.Lock()
	delete(m.presignedPuts, key)
	m.deletedKeys = append(m.deletedKeys, key)
	m.mu.Unlock()

	return nil
}

// PresignedPutKeys returns the keys a presigned PUT URL was issued for
// (for testing assertions)
func (m *MockS3Service) PresignedPutKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.presignedPuts))
	for k := range m.presignedPuts {
		keys = append(keys, k)
	}
	return keys
}

// WasDeleted checks whether DeleteObject was called for the key
func (m *MockS3Service) WasDeleted(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, k := range m.deletedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Clear resets the mock state
func (m *MockS3Service) Clear() {
	m.mu.Lock()
	m.presignedPuts = make(map[string]string)
	m.deletedKeys = nil
	m.mu.Unlock()
}
