// Package dataimport reads the tabular inputs of the pipelines from disk:
// embedding tables, bulk expression tables, gene panels and DEG catalogues.
package dataimport

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"gonum.org/v1/gonum/mat"

	"github.com/CaioMussatto/Cacaio-docker/embedding"
	"github.com/CaioMussatto/Cacaio-docker/expression"
)

var ErrUnsupportedFormat = errors.New("dataimport: unsupported file format")

// IndexColumn names a header cell left empty, as written for a row index.
const IndexColumn = "index"

// DEGs maps dataset → contrast → differentially expressed genes.
type DEGs map[string]map[string][]string

// geneObject is the object form accepted in JSON gene panels.
type geneObject struct {
	Gene string `json:"gene"`
}

// LoadEmbeddingTable reads a delimited embedding table. Columns named prefix
// followed by an integer are numeric components; every other column is kept
// as categorical metadata.
func LoadEmbeddingTable(path, prefix string) (*embedding.Table, error) {
	records, err := readDelimited(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: file is empty", path)
	}

	componentPattern := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + `\d+$`)
	header := records[0]
	var components []string
	var componentColumns []int
	metadataColumns := map[string]int{}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = IndexColumn
		}
		if componentPattern.MatchString(name) {
			components = append(components, name)
			componentColumns = append(componentColumns, i)
			continue
		}
		metadataColumns[name] = i
	}
	if len(components) == 0 {
		return nil, fmt.Errorf("%s: %w: no %s columns", path, embedding.ErrMissingColumn, prefix)
	}

	rows := records[1:]
	metadata := make(map[string][]string, len(metadataColumns))
	for name := range metadataColumns {
		metadata[name] = make([]string, len(rows))
	}

	var values *mat.Dense
	if len(rows) > 0 {
		values = mat.NewDense(len(rows), len(components), nil)
	}
	for r, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("%s: line %d has %d fields, want %d", path, r+2, len(row), len(header))
		}
		for j, column := range componentColumns {
			value, err := parseFloat(row[column])
			if err != nil {
				return nil, fmt.Errorf("%s: line %d column %s: %w", path, r+2, components[j], err)
			}
			values.Set(r, j, value)
		}
		for name, column := range metadataColumns {
			metadata[name][r] = row[column]
		}
	}

	return embedding.NewTable(components, values, metadata)
}

// LoadExpression reads a delimited samples × genes table. The first column
// holds sample identifiers and the header holds gene identifiers.
func LoadExpression(path string) (*expression.Matrix, error) {
	records, err := readDelimited(path)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: %w", path, expression.ErrEmpty)
	}

	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%s: no gene columns", path)
	}
	genes := make([]string, len(header)-1)
	for j, gene := range header[1:] {
		genes[j] = strings.TrimSpace(gene)
	}

	rows := records[1:]
	samples := make([]string, len(rows))
	values := mat.NewDense(len(rows), len(genes), nil)
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("%s: line %d has %d fields, want %d", path, i+2, len(row), len(header))
		}
		samples[i] = row[0]
		for j, cell := range row[1:] {
			value, err := parseFloat(cell)
			if err != nil {
				return nil, fmt.Errorf("%s: line %d gene %s: %w", path, i+2, genes[j], err)
			}
			values.Set(i, j, value)
		}
	}

	return expression.NewMatrix(samples, genes, values)
}

// LoadGenePanel reads an ordered gene list. Plain text files hold one gene
// per line; CSV files use a "gene" column (or the first column); JSON files
// hold an array of strings or of objects with a "gene" field.
func LoadGenePanel(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt":
		return loadLines(path)
	case ".csv", ".tsv":
		return loadPanelCSV(path)
	case ".json":
		return loadPanelJSON(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// LoadDEGs reads a DEG catalogue from YAML or JSON.
func LoadDEGs(path string) (DEGs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DEG file: %w", err)
	}

	var degs DEGs
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &degs); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &degs); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return degs, nil
}

func readDelimited(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()
	return parseDelimited(file, delimiterFor(path))
}

func parseDelimited(r io.Reader, comma rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading delimited file: %w", err)
	}
	return records, nil
}

func delimiterFor(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return '\t'
	default:
		return ','
	}
}

// parseFloat accepts the spellings of missing values common in exported
// tables and maps them to NaN.
func parseFloat(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "na", "nan":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

func loadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading gene list: %w", err)
	}
	var genes []string
	for _, line := range strings.Split(string(data), "\n") {
		if gene := strings.TrimSpace(line); gene != "" && !strings.HasPrefix(gene, "#") {
			genes = append(genes, gene)
		}
	}
	return genes, nil
}

func loadPanelCSV(path string) ([]string, error) {
	records, err := readDelimited(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	geneCol := 0
	for i, header := range records[0] {
		if strings.EqualFold(strings.TrimSpace(header), "gene") {
			geneCol = i
			break
		}
	}

	genes := make([]string, 0, len(records)-1)
	for _, row := range records[1:] {
		if geneCol < len(row) && row[geneCol] != "" {
			genes = append(genes, strings.TrimSpace(row[geneCol]))
		}
	}
	return genes, nil
}

func loadPanelJSON(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading JSON file: %w", err)
	}

	var stringArray []string
	if err := json.Unmarshal(data, &stringArray); err == nil {
		return stringArray, nil
	}

	var objectArray []geneObject
	if err := json.Unmarshal(data, &objectArray); err != nil {
		return nil, fmt.Errorf("parsing JSON: expected array of strings or objects with 'gene' field: %w", err)
	}

	genes := make([]string, 0, len(objectArray))
	for i, obj := range objectArray {
		if obj.Gene == "" {
			return nil, fmt.Errorf("entry %d missing gene field", i)
		}
		genes = append(genes, obj.Gene)
	}
	return genes, nil
}
