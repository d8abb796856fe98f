package report

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CaioMussatto/Cacaio-docker/enrichr"
	"github.com/CaioMussatto/Cacaio-docker/similarity"
)

var entries = []similarity.Entry{
	{Row: "CL1", Column: "TUMOR2", Value: 0.91234},
	{Row: "CL2", Column: "TUMOR1", Value: 0.5},
}

func TestWriteDelimited(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDelimited(&buf, CompareHeaders, entries, '\t'); err != nil {
		t.Fatalf("WriteDelimited: %v", err)
	}
	want := "cell_line\ttumor\tdistance_correlation\n" +
		"CL1\tTUMOR2\t0.9123\n" +
		"CL2\tTUMOR1\t0.5000\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestSortedMatches(t *testing.T) {
	best := map[string]similarity.Match{
		"B2": {Row: "B2", Column: "CL1", Value: 0.4},
		"B1": {Row: "B1", Column: "CL2", Value: 0.7},
	}

	sorted := SortedMatches(best, nil)
	if len(sorted) != 2 || sorted[0].Row != "B1" {
		t.Errorf("sorted = %v", sorted)
	}

	ordered := SortedMatches(best, []string{"B2", "B3", "B1"})
	if len(ordered) != 2 || ordered[0].Row != "B2" || ordered[1].Row != "B1" {
		t.Errorf("ordered = %v", ordered)
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(CompareHeaders, EntryRows(entries))
	for _, want := range []string{"cell_line", "TUMOR2", "0.9123", "CL2"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestEnrichmentRows(t *testing.T) {
	rows := EnrichmentRows([]enrichr.Result{{
		GeneSet:        "KEGG",
		Term:           "Cell cycle",
		Overlap:        "3/120",
		AdjustedPValue: 0.00213,
		CombinedScore:  210.333,
		Genes:          []string{"CDK1", "CCNB1", "MKI67"},
	}})
	want := []string{"KEGG", "Cell cycle", "3/120", "0.00213", "210.33", "3"}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Errorf("cell %d = %q, want %q", i, rows[0][i], want[i])
		}
	}
}

func TestSnapshot_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.msgpack")
	snapshot := &Snapshot{
		RunID:       "run-1",
		Kind:        KindCrossModal,
		Dataset:     "Demo",
		CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Entries:     entries,
		Best:        []similarity.Match{{Row: "CL1", Column: "TUMOR2", Value: 0.91234}},
		SampleTypes: map[string]string{"TUMOR2": "primary_tumor"},
	}
	if err := snapshot.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.RunID != "run-1" || len(loaded.Entries) != 2 || loaded.Entries[0] != entries[0] {
		t.Errorf("loaded = %+v", loaded)
	}
	if !loaded.CreatedAt.Equal(snapshot.CreatedAt) {
		t.Errorf("created at = %v", loaded.CreatedAt)
	}
	if loaded.Headers()[0] != "bulk_sample" {
		t.Errorf("headers = %v", loaded.Headers())
	}
}

func TestLoadSnapshot_UnknownKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.msgpack")
	if err := (&Snapshot{Kind: "other"}).Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := LoadSnapshot(path); !errors.Is(err, ErrSnapshot) {
		t.Fatalf("expected ErrSnapshot, got %v", err)
	}
}
