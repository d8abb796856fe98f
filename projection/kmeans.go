package projection

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type KMeansConfig struct {
	Clusters int
	MaxIter  int
	Restarts int
	Seed     int64
}

func DefaultKMeansConfig(clusters int) KMeansConfig {
	return KMeansConfig{
		Clusters: clusters,
		MaxIter:  25,
		Restarts: 10,
		Seed:     0,
	}
}

type KMeansResult struct {
	Centroids *mat.Dense
	Labels    []int
	Inertia   float64
}

// KMeans clusters the rows of data with k-means++ seeding and Lloyd
// iterations, keeping the restart with the lowest inertia.
func KMeans(data mat.Matrix, config KMeansConfig) (*KMeansResult, error) {
	n, _ := data.Dims()
	if config.Clusters < 1 || config.Clusters > n {
		return nil, fmt.Errorf("%w: %d clusters for %d points", ErrDimension, config.Clusters, n)
	}
	if config.MaxIter < 1 {
		config.MaxIter = 25
	}
	if config.Restarts < 1 {
		config.Restarts = 1
	}

	points := make([][]float64, n)
	for i := range points {
		points[i] = mat.Row(nil, i, data)
	}

	rng := rand.New(rand.NewSource(config.Seed))
	var best *KMeansResult
	for restart := 0; restart < config.Restarts; restart++ {
		centroids := seedPlusPlus(points, config.Clusters, rng)
		labels, inertia := lloyd(points, centroids, config.MaxIter)
		if best == nil || inertia < best.Inertia {
			best = &KMeansResult{Centroids: toDense(centroids), Labels: labels, Inertia: inertia}
		}
	}
	return best, nil
}

func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, cloneVector(points[rng.Intn(n)]))

	closest := make([]float64, n)
	for i, p := range points {
		closest[i] = squaredDistance(p, centroids[0])
	}

	for len(centroids) < k {
		total := floats.Sum(closest)
		next := rng.Intn(n)
		if total > 0 {
			target := rng.Float64() * total
			cumulative := 0.0
			for i, d := range closest {
				cumulative += d
				if cumulative >= target {
					next = i
					break
				}
			}
		}

		centroid := cloneVector(points[next])
		centroids = append(centroids, centroid)
		for i, p := range points {
			if d := squaredDistance(p, centroid); d < closest[i] {
				closest[i] = d
			}
		}
	}
	return centroids
}

func lloyd(points [][]float64, centroids [][]float64, maxIter int) ([]int, float64) {
	n := len(points)
	k := len(centroids)
	dim := len(points[0])
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	var inertia float64
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		inertia = 0
		for i, p := range points {
			nearest, nearestDistance := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := squaredDistance(p, centroid); d < nearestDistance {
					nearest, nearestDistance = c, d
				}
			}
			if labels[i] != nearest {
				labels[i] = nearest
				changed = true
			}
			inertia += nearestDistance
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		// An empty cluster keeps its previous centroid.
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}
	}
	return labels, inertia
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func cloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func toDense(rows [][]float64) *mat.Dense {
	dense := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		dense.SetRow(i, row)
	}
	return dense
}
