package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"

	"github.com/CaioMussatto/Cacaio-docker/projection"
)

var ErrArtifact = errors.New("catalog: invalid projection artifact")

// Artifact is the on-disk form of a fitted projection and the gene panel it
// was fitted on.
type Artifact struct {
	Panel             []string    `msgpack:"panel"`
	ScalerMean        []float64   `msgpack:"scaler_mean"`
	ScalerScale       []float64   `msgpack:"scaler_scale"`
	PCAMean           []float64   `msgpack:"pca_mean"`
	Components        [][]float64 `msgpack:"components"`
	ExplainedVariance []float64   `msgpack:"explained_variance"`
}

// NewArtifact captures a fitted scaler and PCA.
func NewArtifact(panel []string, scaler *projection.Scaler, pca *projection.PCA) (*Artifact, error) {
	if scaler == nil || pca.NComponents() == 0 {
		return nil, projection.ErrNotFitted
	}
	rows, _ := pca.Components.Dims()
	components := make([][]float64, rows)
	for i := range components {
		components[i] = mat.Row(nil, i, pca.Components)
	}
	artifact := &Artifact{
		Panel:             panel,
		ScalerMean:        scaler.Mean,
		ScalerScale:       scaler.Scale,
		PCAMean:           pca.Mean,
		Components:        components,
		ExplainedVariance: pca.ExplainedVariance,
	}
	if err := artifact.validate(); err != nil {
		return nil, err
	}
	return artifact, nil
}

// Fitted rebuilds the projection.
func (a *Artifact) Fitted() (projection.Fitted, error) {
	if err := a.validate(); err != nil {
		return projection.Fitted{}, err
	}
	values := make([]float64, 0, len(a.Components)*len(a.Panel))
	for _, row := range a.Components {
		values = append(values, row...)
	}
	return projection.Fitted{
		Scaler: &projection.Scaler{Mean: a.ScalerMean, Scale: a.ScalerScale},
		PCA: &projection.PCA{
			Mean:              a.PCAMean,
			Components:        mat.NewDense(len(a.Components), len(a.Panel), values),
			ExplainedVariance: a.ExplainedVariance,
		},
	}, nil
}

func (a *Artifact) validate() error {
	genes := len(a.Panel)
	switch {
	case genes == 0:
		return fmt.Errorf("%w: empty gene panel", ErrArtifact)
	case len(a.ScalerMean) != genes || len(a.ScalerScale) != genes:
		return fmt.Errorf("%w: scaler covers %d features, panel has %d genes", ErrArtifact, len(a.ScalerMean), genes)
	case len(a.PCAMean) != genes:
		return fmt.Errorf("%w: PCA mean covers %d features, panel has %d genes", ErrArtifact, len(a.PCAMean), genes)
	case len(a.Components) == 0:
		return fmt.Errorf("%w: no components", ErrArtifact)
	}
	for i, row := range a.Components {
		if len(row) != genes {
			return fmt.Errorf("%w: component %d has %d loadings, panel has %d genes", ErrArtifact, i+1, len(row), genes)
		}
	}
	return nil
}

// WriteArtifact stores a msgpack-encoded artifact at path.
func WriteArtifact(path string, artifact *Artifact) error {
	data, err := msgpack.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadArtifact loads an artifact written by WriteArtifact.
func ReadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var artifact Artifact
	if err := msgpack.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifact, path, err)
	}
	if err := artifact.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &artifact, nil
}
