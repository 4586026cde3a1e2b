package results

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/GoSim-25-26J-441/estimation-core/pkg/logger"
)

// Normalizer rewrites engine-written artifacts in place.
type Normalizer struct {
	log *slog.Logger
}

// NewNormalizer creates a Normalizer. A nil logger uses logger.Default.
func NewNormalizer(l *slog.Logger) *Normalizer {
	return &Normalizer{log: logger.OrDefault(l)}
}

// NormalizeFile normalizes the artifact at path and reports whether it
// had to be rewritten. An already-normalized artifact is left untouched.
func (n *Normalizer) NormalizeFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat artifact %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read artifact %s: %w", path, err)
	}
	out := Normalize(data)
	if bytes.Equal(out, data) {
		n.log.Debug("artifact already normalized", "path", path)
		return false, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return false, fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return false, fmt.Errorf("write artifact %s: %w", path, err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return false, fmt.Errorf("chmod artifact %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("close artifact %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, fmt.Errorf("replace artifact %s: %w", path, err)
	}
	n.log.Info("artifact normalized", "path", path, "bytes_before", len(data), "bytes_after", len(out))
	return true, nil
}

// NormalizeAll normalizes every path, stopping at the first failure.
func (n *Normalizer) NormalizeAll(paths []string) error {
	for _, p := range paths {
		if _, err := n.NormalizeFile(p); err != nil {
			return err
		}
	}
	return nil
}
