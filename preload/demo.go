// Package preload synthesises a small, deterministic dataset for demos and
// end-to-end tests: single cells drawn from per-sample expression programmes,
// the embedding fitted on them, and a drifted bulk table.
package preload

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-yaml"
	"gonum.org/v1/gonum/mat"

	"github.com/CaioMussatto/Cacaio-docker/catalog"
	"github.com/CaioMussatto/Cacaio-docker/dataimport"
	"github.com/CaioMussatto/Cacaio-docker/embedding"
	"github.com/CaioMussatto/Cacaio-docker/expression"
	"github.com/CaioMussatto/Cacaio-docker/projection"
)

// DatasetName is the catalogue name of the demo dataset.
const DatasetName = "Demo"

// DemoConfig sizes the synthetic dataset.
type DemoConfig struct {
	CellLines      int     // Samples labelled CCLE (default: 3)
	Tumors         int     // Samples labelled TCGA (default: 3)
	CellsPerSample int     // Single cells per sample (default: 20)
	Components     int     // Principal components fitted (default: 10)
	BulkSamples    int     // External bulk samples (default: 4)
	MissingGenes   int     // Panel genes absent from the bulk table (default: 2)
	BatchOffset    float64 // Shift added to every bulk value (default: 1.5)
	Seed           int64
}

// DefaultDemoConfig returns a dataset small enough for tests.
func DefaultDemoConfig() DemoConfig {
	return DemoConfig{
		CellLines:      3,
		Tumors:         3,
		CellsPerSample: 20,
		Components:     10,
		BulkSamples:    4,
		MissingGenes:   2,
		BatchOffset:    1.5,
		Seed:           1,
	}
}

// Demo is a generated dataset.
type Demo struct {
	Cells     *expression.Matrix
	Embedding *embedding.Table

	// HarmonyEmbedding is Embedding corrected across dataset labels.
	HarmonyEmbedding *embedding.Table
	Panel     []string
	Scaler    *projection.Scaler
	PCA       *projection.PCA
	Bulk      *expression.Matrix

	// BulkSources maps each bulk sample to the sample it was drawn from.
	BulkSources map[string]string

	DEGs dataimport.DEGs
}

// Projection returns the fitted scaler and PCA as one transform.
func (d *Demo) Projection() projection.Fitted {
	return projection.Fitted{Scaler: d.Scaler, PCA: d.PCA}
}

// Generate builds a demo dataset.
func Generate(config DemoConfig) (*Demo, error) {
	defaults := DefaultDemoConfig()
	if config.CellLines < 1 {
		config.CellLines = defaults.CellLines
	}
	if config.Tumors < 1 {
		config.Tumors = defaults.Tumors
	}
	if config.CellsPerSample < 1 {
		config.CellsPerSample = defaults.CellsPerSample
	}
	if config.Components < 1 {
		config.Components = defaults.Components
	}
	if config.BulkSamples < 1 {
		config.BulkSamples = defaults.BulkSamples
	}

	rng := rand.New(rand.NewSource(config.Seed))
	programmes := Programmes()
	panel := Genes()

	var samples, datasets []string
	for i := 1; i <= config.CellLines; i++ {
		samples = append(samples, fmt.Sprintf("CL%d", i))
		datasets = append(datasets, embedding.CellLineDataset)
	}
	for i := 1; i <= config.Tumors; i++ {
		samples = append(samples, fmt.Sprintf("TUMOR%d", i))
		datasets = append(datasets, "TCGA")
	}

	// Step 1: One mean expression profile per sample
	profiles := make([][]float64, len(samples))
	for s := range samples {
		profile := make([]float64, len(panel))
		active := s % len(programmes)
		for g := range profile {
			profile[g] = 2 + rng.NormFloat64()*0.5
			if g/len(programmes[0]) == active {
				profile[g] += 3
			}
		}
		profiles[s] = profile
	}

	// Step 2: Single cells scattered around their sample profile
	cellCount := len(samples) * config.CellsPerSample
	cellValues := mat.NewDense(cellCount, len(panel), nil)
	cellIDs := make([]string, cellCount)
	cellSamples := make([]string, cellCount)
	cellDatasets := make([]string, cellCount)
	for s, sample := range samples {
		for c := 0; c < config.CellsPerSample; c++ {
			row := s*config.CellsPerSample + c
			for g, level := range profiles[s] {
				cellValues.Set(row, g, level+rng.NormFloat64()*0.4)
			}
			cellIDs[row] = fmt.Sprintf("%s_cell%d", sample, c+1)
			cellSamples[row] = sample
			cellDatasets[row] = datasets[s]
		}
	}
	cells, err := expression.NewMatrix(cellIDs, panel, cellValues)
	if err != nil {
		return nil, err
	}

	// Step 3: Fitted scaler and PCA define the embedding
	scaler := projection.FitScaler(cellValues)
	scaled, err := scaler.Transform(cellValues)
	if err != nil {
		return nil, err
	}
	pca, err := projection.FitPCA(scaled, config.Components)
	if err != nil {
		return nil, fmt.Errorf("fit PCA: %w", err)
	}
	embedded, err := pca.Transform(scaled)
	if err != nil {
		return nil, err
	}
	table, err := embedding.NewTable(
		embedding.ComponentNames(embedding.DefaultComponentPrefix, config.Components),
		embedded,
		map[string][]string{
			"cell":                         cellIDs,
			embedding.DefaultSampleColumn:  cellSamples,
			embedding.DefaultDatasetColumn: cellDatasets,
		},
	)
	if err != nil {
		return nil, err
	}

	// Step 4: The same cells batch-corrected across dataset labels
	harmonyConfig := projection.DefaultHarmonyConfig(len(samples))
	harmonyConfig.Seed = config.Seed
	harmonized, err := projection.Harmonize(embedded, cellDatasets, harmonyConfig)
	if err != nil {
		return nil, fmt.Errorf("harmonize: %w", err)
	}
	harmonyTable, err := embedding.NewTable(table.Components, harmonized.Corrected, table.Metadata)
	if err != nil {
		return nil, err
	}

	// Step 5: Bulk samples drifted by a batch offset, missing trailing genes
	missing := config.MissingGenes
	if missing < 0 || missing >= len(panel) {
		missing = 0
	}
	bulkGenes := append(append([]string(nil), panel[:len(panel)-missing]...), "MALAT1")
	bulkValues := mat.NewDense(config.BulkSamples, len(bulkGenes), nil)
	bulkIDs := make([]string, config.BulkSamples)
	sources := make(map[string]string, config.BulkSamples)
	for b := 0; b < config.BulkSamples; b++ {
		source := b % len(samples)
		bulkIDs[b] = fmt.Sprintf("BULK%d", b+1)
		sources[bulkIDs[b]] = samples[source]
		for g := range bulkGenes {
			level := 8 + rng.NormFloat64()
			if g < len(panel)-missing {
				level = profiles[source][g] + config.BatchOffset + rng.NormFloat64()*0.2
			}
			bulkValues.Set(b, g, level)
		}
	}
	bulk, err := expression.NewMatrix(bulkIDs, bulkGenes, bulkValues)
	if err != nil {
		return nil, err
	}

	degs := dataimport.DEGs{DatasetName: {}}
	for i, programme := range programmes {
		degs[DatasetName][fmt.Sprintf("programme_%d_up", i+1)] = programme
	}
	degs[DatasetName]["cell_line_vs_tumor"] = programmes[0][:4]

	return &Demo{
		Cells:            cells,
		Embedding:        table,
		HarmonyEmbedding: harmonyTable,
		Panel:            panel,
		Scaler:           scaler,
		PCA:              pca,
		Bulk:             bulk,
		BulkSources:      sources,
		DEGs:             degs,
	}, nil
}

// Write stores the demo as a catalogue under dir and returns the manifest
// path. The bulk table is written next to it as bulk.csv.
func (d *Demo) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	if err := writeEmbedding(filepath.Join(dir, "embedding.csv"), d.Embedding); err != nil {
		return "", err
	}
	if err := writeEmbedding(filepath.Join(dir, "harmony_embedding.csv"), d.HarmonyEmbedding); err != nil {
		return "", err
	}
	if err := writeExpression(filepath.Join(dir, "bulk.csv"), d.Bulk); err != nil {
		return "", err
	}

	artifact, err := catalog.NewArtifact(d.Panel, d.Scaler, d.PCA)
	if err != nil {
		return "", err
	}
	if err := catalog.WriteArtifact(filepath.Join(dir, "projection.msgpack"), artifact); err != nil {
		return "", err
	}

	degs, err := yaml.Marshal(d.DEGs)
	if err != nil {
		return "", fmt.Errorf("marshal DEGs: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "degs.yaml"), degs, 0644); err != nil {
		return "", fmt.Errorf("write DEGs: %w", err)
	}

	manifestPath := filepath.Join(dir, "catalog.yaml")
	err = catalog.WriteManifest(manifestPath, catalog.Manifest{
		Datasets: []catalog.Entry{{
			Name:             DatasetName,
			Description:      "synthetic cells, cell lines and tumors",
			Embedding:        "embedding.csv",
			HarmonyEmbedding: "harmony_embedding.csv",
			Projection:       "projection.msgpack",
		}},
		DEGs: "degs.yaml",
	})
	if err != nil {
		return "", err
	}
	return manifestPath, nil
}

func writeEmbedding(path string, table *embedding.Table) error {
	metadata := []string{"cell", embedding.DefaultSampleColumn, embedding.DefaultDatasetColumn}
	header := append(append([]string(nil), metadata...), table.Components...)

	records := [][]string{header}
	for i := 0; i < table.Rows(); i++ {
		record := make([]string, 0, len(header))
		for _, name := range metadata {
			record = append(record, table.Metadata[name][i])
		}
		for j := range table.Components {
			record = append(record, formatFloat(table.Values.At(i, j)))
		}
		records = append(records, record)
	}
	return writeCSV(path, records)
}

func writeExpression(path string, m *expression.Matrix) error {
	header := append([]string{""}, m.Genes...)
	records := [][]string{header}
	for i, sample := range m.Samples {
		record := []string{sample}
		for j := range m.Genes {
			record = append(record, formatFloat(m.Values.At(i, j)))
		}
		records = append(records, record)
	}
	return writeCSV(path, records)
}

func writeCSV(path string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
