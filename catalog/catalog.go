// Package catalog describes the datasets available to the pipelines. A YAML
// manifest lists, per dataset, its embedding table and fitted projection
// artifact, plus one DEG catalogue shared by all datasets. Files are loaded on
// demand; nothing is held in package-level state.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/CaioMussatto/Cacaio-docker/dataimport"
	"github.com/CaioMussatto/Cacaio-docker/embedding"
	"github.com/CaioMussatto/Cacaio-docker/projection"
)

var (
	ErrUnknownDataset  = errors.New("catalog: unknown dataset")
	ErrUnknownContrast = errors.New("catalog: unknown contrast")
)

// Manifest is the YAML catalogue file.
type Manifest struct {
	Datasets []Entry `yaml:"datasets"`
	DEGs     string  `yaml:"degs,omitempty"`
}

// Entry describes one dataset. Relative paths are resolved against the
// manifest's directory.
type Entry struct {
	Name            string `yaml:"name"`
	Description     string `yaml:"description,omitempty"`
	Embedding       string `yaml:"embedding"`
	ComponentPrefix string `yaml:"component_prefix,omitempty"`
	Projection      string `yaml:"projection,omitempty"`

	// HarmonyEmbedding is the batch-corrected embedding of the same cells,
	// used for same-space comparisons.
	HarmonyEmbedding string `yaml:"harmony_embedding,omitempty"`
}

// Dataset is a loaded catalogue entry.
type Dataset struct {
	Name      string
	Embedding *embedding.Table

	// HarmonyEmbedding is nil when the entry lists none.
	HarmonyEmbedding *embedding.Table

	// Panel and Projection are empty when the entry has no artifact.
	Panel      []string
	Projection projection.Fitted
}

// HasProjection reports whether bulk data can be projected into this
// dataset's embedding.
func (d *Dataset) HasProjection() bool {
	return d.Projection.PCA != nil
}

// CompareEmbedding returns the table for same-space comparisons: the
// batch-corrected embedding when present, the PCA embedding otherwise.
func (d *Dataset) CompareEmbedding() *embedding.Table {
	if d.HarmonyEmbedding != nil {
		return d.HarmonyEmbedding
	}
	return d.Embedding
}

// Catalog is an opened manifest.
type Catalog struct {
	dir      string
	manifest Manifest
	degs     dataimport.DEGs
}

// Open reads the manifest at path and the DEG catalogue it references.
func Open(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	c := &Catalog{dir: filepath.Dir(path), manifest: manifest}
	seen := map[string]bool{}
	for i, entry := range manifest.Datasets {
		if entry.Name == "" || entry.Embedding == "" {
			return nil, fmt.Errorf("%s: dataset %d needs a name and an embedding", path, i+1)
		}
		if seen[entry.Name] {
			return nil, fmt.Errorf("%s: dataset %q listed twice", path, entry.Name)
		}
		seen[entry.Name] = true
	}

	if manifest.DEGs != "" {
		degs, err := dataimport.LoadDEGs(c.resolve(manifest.DEGs))
		if err != nil {
			return nil, err
		}
		c.degs = degs
	}
	return c, nil
}

// WriteManifest stores manifest as YAML at path.
func WriteManifest(path string, manifest Manifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Names lists datasets in manifest order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.manifest.Datasets))
	for i, entry := range c.manifest.Datasets {
		names[i] = entry.Name
	}
	return names
}

// Dataset loads the named dataset.
func (c *Catalog) Dataset(name string) (*Dataset, error) {
	entry, ok := c.entry(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}

	prefix := entry.ComponentPrefix
	if prefix == "" {
		prefix = embedding.DefaultComponentPrefix
	}
	table, err := dataimport.LoadEmbeddingTable(c.resolve(entry.Embedding), prefix)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}

	dataset := &Dataset{Name: name, Embedding: table}
	if entry.HarmonyEmbedding != "" {
		corrected, err := dataimport.LoadEmbeddingTable(c.resolve(entry.HarmonyEmbedding), prefix)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: harmony embedding: %w", name, err)
		}
		dataset.HarmonyEmbedding = corrected
	}
	if entry.Projection == "" {
		return dataset, nil
	}
	artifact, err := ReadArtifact(c.resolve(entry.Projection))
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	fitted, err := artifact.Fitted()
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	dataset.Panel = artifact.Panel
	dataset.Projection = fitted
	return dataset, nil
}

// Contrasts lists the DEG contrasts of a dataset in sorted order.
func (c *Catalog) Contrasts(dataset string) ([]string, error) {
	contrasts, ok := c.degs[dataset]
	if !ok {
		return nil, fmt.Errorf("%w: no DEGs for %q", ErrUnknownDataset, dataset)
	}
	names := make([]string, 0, len(contrasts))
	for name := range contrasts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Genes returns the DEG list of one contrast.
func (c *Catalog) Genes(dataset, contrast string) ([]string, error) {
	contrasts, ok := c.degs[dataset]
	if !ok {
		return nil, fmt.Errorf("%w: no DEGs for %q", ErrUnknownDataset, dataset)
	}
	genes, ok := contrasts[contrast]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %q", ErrUnknownContrast, contrast, dataset)
	}
	return genes, nil
}

func (c *Catalog) entry(name string) (Entry, bool) {
	for _, entry := range c.manifest.Datasets {
		if entry.Name == name {
			return entry, true
		}
	}
	return Entry{}, false
}

func (c *Catalog) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.dir, path)
}
