package report

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/CaioMussatto/Cacaio-docker/enrichr"
	"github.com/CaioMussatto/Cacaio-docker/similarity"
)

// Snapshot kinds.
const (
	KindCompare    = "compare"
	KindCrossModal = "crossmodal"
)

var ErrSnapshot = errors.New("report: invalid snapshot")

// Snapshot bundles one run's results for later browsing.
type Snapshot struct {
	RunID     string    `msgpack:"run_id"`
	Kind      string    `msgpack:"kind"`
	Dataset   string    `msgpack:"dataset"`
	CreatedAt time.Time `msgpack:"created_at"`

	// Entries is the full tidy table, sorted by value descending.
	Entries []similarity.Entry `msgpack:"entries"`

	// Best holds the global best match for comparisons and the per-row
	// best matches for cross-modal runs.
	Best []similarity.Match `msgpack:"best"`

	// SampleTypes maps the categorised ids to cell_line or primary_tumor.
	SampleTypes map[string]string `msgpack:"sample_types"`

	Enrichment []enrichr.Result `msgpack:"enrichment,omitempty"`
}

// Headers returns the tidy column headers for the snapshot's kind.
func (s *Snapshot) Headers() []string {
	if s.Kind == KindCrossModal {
		return CrossModalHeaders
	}
	return CompareHeaders
}

// Save writes the snapshot to path.
func (s *Snapshot) Save(path string) error {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadSnapshot reads a snapshot written by Save.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var snapshot Snapshot
	if err := msgpack.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSnapshot, path, err)
	}
	if snapshot.Kind != KindCompare && snapshot.Kind != KindCrossModal {
		return nil, fmt.Errorf("%w: %s: unknown kind %q", ErrSnapshot, path, snapshot.Kind)
	}
	return &snapshot, nil
}
