package dataimport

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/CaioMussatto/Cacaio-docker/embedding"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadEmbeddingTable(t *testing.T) {
	path := writeFile(t, "embedding.csv", ",sample,dataset,PC1,PC2,PCA_note\n"+
		"c1,S1,CCLE,1.5,2,x\n"+
		"c2,S1,CCLE,2.5,NA,y\n"+
		"c3,T1,TCGA,-1,0,z\n")

	table, err := LoadEmbeddingTable(path, "PC")
	if err != nil {
		t.Fatalf("LoadEmbeddingTable: %v", err)
	}
	if !reflect.DeepEqual(table.Components, []string{"PC1", "PC2"}) {
		t.Errorf("components = %v", table.Components)
	}
	if table.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", table.Rows())
	}
	if got := table.Values.At(1, 0); got != 2.5 {
		t.Errorf("PC1 row 2 = %g", got)
	}
	if !math.IsNaN(table.Values.At(1, 1)) {
		t.Errorf("NA should parse as NaN")
	}
	if got := table.Metadata["dataset"]; !reflect.DeepEqual(got, []string{"CCLE", "CCLE", "TCGA"}) {
		t.Errorf("dataset column = %v", got)
	}
	if got := table.Metadata[IndexColumn]; !reflect.DeepEqual(got, []string{"c1", "c2", "c3"}) {
		t.Errorf("index column = %v", got)
	}
	if _, ok := table.Metadata["PCA_note"]; !ok {
		t.Error("non-numbered PC column should be metadata")
	}
}

func TestLoadEmbeddingTable_NoComponents(t *testing.T) {
	path := writeFile(t, "embedding.csv", "sample,dataset\nS1,CCLE\n")
	_, err := LoadEmbeddingTable(path, "PC")
	if !errors.Is(err, embedding.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestLoadEmbeddingTable_BadNumber(t *testing.T) {
	path := writeFile(t, "embedding.csv", "sample,PC1\nS1,abc\n")
	if _, err := LoadEmbeddingTable(path, "PC"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadExpression_TSV(t *testing.T) {
	path := writeFile(t, "bulk.tsv", "\tTP53\tMYC\n"+
		"B1\t1\t2\n"+
		"B2\t3\t4\n")

	bulk, err := LoadExpression(path)
	if err != nil {
		t.Fatalf("LoadExpression: %v", err)
	}
	if !reflect.DeepEqual(bulk.Samples, []string{"B1", "B2"}) {
		t.Errorf("samples = %v", bulk.Samples)
	}
	if !reflect.DeepEqual(bulk.Genes, []string{"TP53", "MYC"}) {
		t.Errorf("genes = %v", bulk.Genes)
	}
	if got := bulk.Values.At(1, 1); got != 4 {
		t.Errorf("B2/MYC = %g, want 4", got)
	}
}

func TestLoadExpression_RaggedRow(t *testing.T) {
	path := writeFile(t, "bulk.csv", ",TP53,MYC\nB1,1\n")
	if _, err := LoadExpression(path); err == nil {
		t.Fatal("expected error for short row")
	}
}

func TestLoadGenePanel(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"text", "panel.txt", "# panel\nTP53\n\nMYC\nEGFR\n"},
		{"csv", "panel.csv", "rank,gene\n1,TP53\n2,MYC\n3,EGFR\n"},
		{"json strings", "panel.json", `["TP53","MYC","EGFR"]`},
		{"json objects", "panel.json", `[{"gene":"TP53"},{"gene":"MYC"},{"gene":"EGFR"}]`},
	}
	want := []string{"TP53", "MYC", "EGFR"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			genes, err := LoadGenePanel(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("LoadGenePanel: %v", err)
			}
			if !reflect.DeepEqual(genes, want) {
				t.Errorf("genes = %v, want %v", genes, want)
			}
		})
	}
}

func TestLoadGenePanel_Unsupported(t *testing.T) {
	_, err := LoadGenePanel(writeFile(t, "panel.xlsx", ""))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadDEGs(t *testing.T) {
	yamlPath := writeFile(t, "degs.yaml", "Lung:\n  tumor_vs_normal:\n    - TP53\n    - EGFR\n")
	jsonPath := writeFile(t, "degs.json", `{"Lung":{"tumor_vs_normal":["TP53","EGFR"]}}`)

	for _, path := range []string{yamlPath, jsonPath} {
		degs, err := LoadDEGs(path)
		if err != nil {
			t.Fatalf("LoadDEGs(%s): %v", filepath.Base(path), err)
		}
		if got := degs["Lung"]["tumor_vs_normal"]; !reflect.DeepEqual(got, []string{"TP53", "EGFR"}) {
			t.Errorf("%s: genes = %v", filepath.Base(path), got)
		}
	}
}
