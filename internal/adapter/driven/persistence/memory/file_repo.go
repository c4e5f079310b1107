package memory

import (
	"context"
	"sync"

	"github.com/Wyydra/lyra/internal/core/domain"
	"github.com/Wyydra/lyra/internal/core/port"
)

type FileRepository struct {
	mu    sync.Mutex
	files map[domain.FileID]domain.FileTransfer
}

func NewFileRepository() *FileRepository {
	return &FileRepository{
		files: make(map[domain.FileID]domain.FileTransfer),
	}
}

func (r *FileRepository) Save(ctx context.Context, f domain.FileTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[f.ID] = f
	return nil
}

func (r *FileRepository) Get(ctx context.Context, id domain.FileID) (domain.FileTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return domain.FileTransfer{}, port.ErrNotFound
	}
	return f, nil
}
