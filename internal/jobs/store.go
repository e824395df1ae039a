package jobs

import (
	"context"
	"sort"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store persists jobs across tracker restarts.
type Store interface {
	Insert(ctx context.Context, job *Job) error
	Update(ctx context.Context, job *Job) error
	Get(ctx context.Context, id uuid.UUID) (*Job, error)
	List(ctx context.Context) ([]*Job, error)
}

// MemoryStore keeps jobs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
}

// NewMemoryStore builds an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[uuid.UUID]*Job)}
}

func (s *MemoryStore) Insert(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) Update(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return ErrJobNotFound
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// BunStore persists jobs through a bun-backed repository.
type BunStore struct {
	repo repository.Repository[*Job]
}

// NewBunStore builds a job store on top of the given database handle.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{repo: newJobRepository(db)}
}

func newJobRepository(db *bun.DB) repository.Repository[*Job] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Job]{
		NewRecord: func() *Job { return &Job{} },
		GetID: func(j *Job) uuid.UUID {
			return j.ID
		},
		SetID: func(j *Job, id uuid.UUID) {
			j.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(j *Job) string {
			if j == nil {
				return ""
			}
			return j.ID.String()
		},
	})
}

func (s *BunStore) Insert(ctx context.Context, job *Job) error {
	_, err := s.repo.Create(ctx, job)
	return err
}

func (s *BunStore) Update(ctx context.Context, job *Job) error {
	_, err := s.repo.Update(ctx, job)
	if err != nil && goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return ErrJobNotFound
	}
	return err
}

func (s *BunStore) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	job, err := s.repo.GetByID(ctx, id.String())
	if err != nil {
		if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *BunStore) List(ctx context.Context) ([]*Job, error) {
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("job.created_at ASC")
		}),
	)
	if err != nil {
		return nil, err
	}
	return records, nil
}
