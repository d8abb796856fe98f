package preload

import (
	"path/filepath"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/CaioMussatto/Cacaio-docker/catalog"
	"github.com/CaioMussatto/Cacaio-docker/dataimport"
)

func TestGenes_Unique(t *testing.T) {
	seen := map[string]bool{}
	for _, gene := range Genes() {
		if seen[gene] {
			t.Errorf("duplicate gene %s", gene)
		}
		seen[gene] = true
	}
	if len(seen) != 64 {
		t.Errorf("expected 64 genes, got %d", len(seen))
	}
}

func TestGenerate(t *testing.T) {
	demo, err := Generate(DefaultDemoConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if demo.Embedding.Rows() != 6*20 {
		t.Errorf("embedding rows = %d, want 120", demo.Embedding.Rows())
	}
	if len(demo.Embedding.Components) != 10 {
		t.Errorf("components = %d, want 10", len(demo.Embedding.Components))
	}
	if r, c := demo.HarmonyEmbedding.Values.Dims(); r != 120 || c != 10 {
		t.Errorf("harmony embedding = %dx%d, want 120x10", r, c)
	}

	reindexed, missing, err := demo.Bulk.Reindex(demo.Panel)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if !reflect.DeepEqual(missing, []string{"IDH1", "FASN"}) {
		t.Errorf("missing = %v, want the last two panel genes", missing)
	}
	if _, cols := reindexed.Values.Dims(); cols != len(demo.Panel) {
		t.Errorf("reindexed width = %d", cols)
	}
	if demo.BulkSources["BULK1"] != "CL1" {
		t.Errorf("bulk sources = %v", demo.BulkSources)
	}
	if len(demo.DEGs[DatasetName]) != 9 {
		t.Errorf("contrasts = %d, want 9", len(demo.DEGs[DatasetName]))
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate(DefaultDemoConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, _ := Generate(DefaultDemoConfig())
	if !mat.Equal(a.Embedding.Values, b.Embedding.Values) || !mat.Equal(a.Bulk.Values, b.Bulk.Values) {
		t.Error("same seed produced different data")
	}
}

func TestWrite_OpensAsCatalog(t *testing.T) {
	demo, err := Generate(DefaultDemoConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	dir := t.TempDir()
	manifest, err := demo.Write(dir)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	c, err := catalog.Open(manifest)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	dataset, err := c.Dataset(DatasetName)
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	if dataset.Embedding.Rows() != demo.Embedding.Rows() {
		t.Errorf("rows = %d, want %d", dataset.Embedding.Rows(), demo.Embedding.Rows())
	}
	if !mat.EqualApprox(dataset.Embedding.Values, demo.Embedding.Values, 1e-12) {
		t.Error("embedding values changed on disk")
	}
	if !reflect.DeepEqual(dataset.Panel, demo.Panel) {
		t.Error("panel changed on disk")
	}
	if dataset.HarmonyEmbedding == nil || dataset.CompareEmbedding() != dataset.HarmonyEmbedding {
		t.Fatal("harmony embedding not listed in the catalogue")
	}
	if !mat.EqualApprox(dataset.HarmonyEmbedding.Values, demo.HarmonyEmbedding.Values, 1e-12) {
		t.Error("harmony embedding values changed on disk")
	}

	contrasts, err := c.Contrasts(DatasetName)
	if err != nil || len(contrasts) != 9 {
		t.Errorf("contrasts = %v, %v", contrasts, err)
	}

	bulk, err := dataimport.LoadExpression(filepath.Join(dir, "bulk.csv"))
	if err != nil {
		t.Fatalf("LoadExpression: %v", err)
	}
	if !reflect.DeepEqual(bulk.Samples, demo.Bulk.Samples) || !reflect.DeepEqual(bulk.Genes, demo.Bulk.Genes) {
		t.Error("bulk labels changed on disk")
	}
}
