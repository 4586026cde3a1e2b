package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/GoSim-25-26J-441/estimation-core/internal/optimization"
	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
)

const checkpointExt = ".ckpt"

// CheckpointStore keeps the latest checkpoint of every job, in memory and,
// when a directory is set, on disk so warm starts survive restarts.
type CheckpointStore struct {
	dir string

	mu   sync.RWMutex
	jobs map[string][]byte
}

// NewCheckpointStore creates a store persisting to dir; an empty dir keeps
// checkpoints in memory only.
func NewCheckpointStore(dir string) (*CheckpointStore, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create checkpoint dir %s: %w", dir, err)
		}
	}
	return &CheckpointStore{dir: dir, jobs: make(map[string][]byte)}, nil
}

// checkJobID rejects IDs that cannot be used as a file name inside a
// store or output directory.
func checkJobID(jobID string) error {
	if jobID == "" || jobID == "." || jobID == ".." || strings.ContainsAny(jobID, `/\`) {
		return quantum.Invalid("job id", "%q cannot name a file", jobID)
	}
	return nil
}

func (s *CheckpointStore) path(jobID string) string {
	return filepath.Join(s.dir, jobID+checkpointExt)
}

// Save records the job's current checkpoint.
func (s *CheckpointStore) Save(job *optimization.Job) error {
	if err := checkJobID(job.ID); err != nil {
		return err
	}
	data, err := job.Checkpoint()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		if err := os.WriteFile(s.path(job.ID), data, 0o644); err != nil {
			return fmt.Errorf("write checkpoint %s: %w", job.ID, err)
		}
	}
	s.jobs[job.ID] = data
	return nil
}

// Load restores the job saved under jobID. The bool is false when no
// checkpoint exists.
func (s *CheckpointStore) Load(jobID string) (*optimization.Job, bool, error) {
	if err := checkJobID(jobID); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	data, ok := s.jobs[jobID]
	s.mu.RUnlock()

	if !ok && s.dir != "" {
		var err error
		data, err = os.ReadFile(s.path(jobID))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("read checkpoint %s: %w", jobID, err)
		}
		ok = true
	}
	if !ok {
		return nil, false, nil
	}
	job, err := optimization.RestoreJob(data)
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

// List returns the IDs of all known checkpoints, sorted.
func (s *CheckpointStore) List() ([]string, error) {
	s.mu.RLock()
	seen := make(map[string]bool, len(s.jobs))
	for id := range s.jobs {
		seen[id] = true
	}
	s.mu.RUnlock()

	if s.dir != "" {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			return nil, fmt.Errorf("list checkpoints: %w", err)
		}
		for _, e := range entries {
			if name := e.Name(); !e.IsDir() && strings.HasSuffix(name, checkpointExt) {
				seen[strings.TrimSuffix(name, checkpointExt)] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
