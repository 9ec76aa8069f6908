package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/google/uuid"

	"vendibook/internal/app/policies"
)

var ErrDocumentNotFound = errors.New("memory: staged document not found")

// DocumentStager keeps uploads in memory for local runs without object storage.
type DocumentStager struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewDocumentStager() *DocumentStager {
	return &DocumentStager{objects: make(map[string][]byte)}
}

func (s *DocumentStager) Stage(ctx context.Context, req policies.StageRequest) (string, error) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("staging/%s/%s/%s%s", req.SessionID, req.DocType, uuid.NewString(), path.Ext(req.FileName))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return key, nil
}

func (s *DocumentStager) Promote(ctx context.Context, stagingKey, reservationID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[stagingKey]
	if !ok {
		return "", ErrDocumentNotFound
	}
	key := "reservations/" + reservationID + "/" + path.Base(stagingKey)
	s.objects[key] = data
	delete(s.objects, stagingKey)
	return key, nil
}

// Object returns a stored object; used by tests.
func (s *DocumentStager) Object(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}

var _ policies.DocumentStager = (*DocumentStager)(nil)
