package uploadsvc

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ujuzi/core"
)

var errUploadNotFound = errors.New("upload not found")

// memoryService keeps uploads in a guarded map; used in tests.
type memoryService struct {
	mu    sync.RWMutex
	files map[string][]byte
}

var _ core.UploadService = (*memoryService)(nil)

func NewMemoryService() *memoryService {
	return &memoryService{files: make(map[string][]byte)}
}

func (svc *memoryService) Save(filename string, data []byte) (string, error) {
	ref := uuid.New().String() + "_" + sanitize(filename)
	cp := make([]byte, len(data))
	copy(cp, data)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.files[ref] = cp
	return ref, nil
}

func (svc *memoryService) Open(ref string) ([]byte, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	data, ok := svc.files[ref]
	if !ok {
		return nil, errUploadNotFound
	}
	return data, nil
}

func (svc *memoryService) Remove(ref string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	delete(svc.files, ref)
	return nil
}

// Len reports the number of stored uploads.
func (svc *memoryService) Len() int {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return len(svc.files)
}
