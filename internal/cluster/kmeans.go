package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrClusteringFailed is returned when the rows cannot be split into K groups
var ErrClusteringFailed = errors.New("clustering failed")

// Config controls the k-means fit
type Config struct {
	K             int
	Seed          uint64
	MaxIterations int
	Restarts      int
	// Tolerance is the centroid shift (sum of squared moves) below which
	// Lloyd iterations stop early.
	Tolerance float64
}

// DefaultConfig mirrors a standard scaler + k-means setup with three tiers
func DefaultConfig() Config {
	return Config{
		K:             3,
		Seed:          42,
		MaxIterations: 300,
		Restarts:      10,
		Tolerance:     1e-4,
	}
}

// Result is the outcome of one fit
type Result struct {
	// Labels[i] is the cluster id of row i, in 0..K-1.
	Labels     []int
	Centroids  *mat.Dense
	Inertia    float64
	Iterations int
}

// Sizes returns the member count of each cluster
func (r *Result) Sizes() []int {
	k, _ := r.Centroids.Dims()
	sizes := make([]int, k)
	for _, l := range r.Labels {
		sizes[l]++
	}
	return sizes
}

// Members returns the row indices assigned to cluster id
func (r *Result) Members(id int) []int {
	var out []int
	for i, l := range r.Labels {
		if l == id {
			out = append(out, i)
		}
	}
	return out
}

// KMeans partitions the rows of data into cfg.K groups, minimizing the
// within-cluster squared Euclidean distance. Runs with the same data and
// seed produce identical labels.
func KMeans(ctx context.Context, data mat.Matrix, cfg Config) (*Result, error) {
	cfg = withDefaults(cfg)
	rows, cols := data.Dims()

	points := make([][]float64, rows)
	for i := range points {
		points[i] = mat.Row(nil, i, data)
	}

	if cfg.K < 1 {
		return nil, fmt.Errorf("%w: cluster count %d", ErrClusteringFailed, cfg.K)
	}
	if n := distinctRows(points); n < cfg.K {
		return nil, fmt.Errorf("%w: %d distinct rows for %d clusters", ErrClusteringFailed, n, cfg.K)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	var best *Result
	for run := 0; run < cfg.Restarts; run++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := lloyd(points, cols, seedPlusPlus(points, cfg.K, rng), cfg)
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}

	canonicalize(best)
	return best, nil
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.Restarts <= 0 {
		cfg.Restarts = 1
	}
	if cfg.Tolerance < 0 {
		cfg.Tolerance = 0
	}
	return cfg
}

// seedPlusPlus picks initial centroids with k-means++ weighting
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	first := points[rng.IntN(len(points))]
	centers = append(centers, append([]float64(nil), first...))

	dist := make([]float64, len(points))
	for i, p := range points {
		dist[i] = sqDist(p, centers[0])
	}

	for len(centers) < k {
		total := floats.Sum(dist)
		var next int
		if total == 0 {
			next = rng.IntN(len(points))
		} else {
			target := rng.Float64() * total
			var acc float64
			next = len(points) - 1
			for i, d := range dist {
				acc += d
				if acc > target {
					next = i
					break
				}
			}
		}
		c := append([]float64(nil), points[next]...)
		centers = append(centers, c)
		for i, p := range points {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centers
}

func lloyd(points [][]float64, cols int, centers [][]float64, cfg Config) *Result {
	k := len(centers)
	labels := make([]int, len(points))
	counts := make([]int, k)
	iter := 0

	for iter = 1; iter <= cfg.MaxIterations; iter++ {
		assign(points, centers, labels)

		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, cols)
			counts[c] = 0
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}

		for c := range centers {
			if counts[c] == 0 {
				steal(points, centers, labels, sums, counts, c)
			}
		}

		var shift float64
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			shift += sqDist(sums[c], centers[c])
			centers[c] = sums[c]
		}

		if shift <= cfg.Tolerance {
			break
		}
	}
	if iter > cfg.MaxIterations {
		iter = cfg.MaxIterations
	}

	// final assignment against the converged centroids
	assign(points, centers, labels)
	fixEmpty(points, centers, labels)

	var inertia float64
	for i, p := range points {
		inertia += sqDist(p, centers[labels[i]])
	}

	cm := mat.NewDense(k, cols, nil)
	for c, v := range centers {
		cm.SetRow(c, v)
	}
	return &Result{Labels: labels, Centroids: cm, Inertia: inertia, Iterations: iter}
}

func assign(points, centers [][]float64, labels []int) {
	for i, p := range points {
		best, bestD := 0, math.Inf(1)
		for c, center := range centers {
			if d := sqDist(p, center); d < bestD {
				best, bestD = c, d
			}
		}
		labels[i] = best
	}
}

// fixEmpty guarantees every cluster keeps at least one member after the
// final assignment by moving the worst-fitting points into empty clusters.
func fixEmpty(points, centers [][]float64, labels []int) {
	counts := make([]int, len(centers))
	for _, l := range labels {
		counts[l]++
	}
	for c := range centers {
		if counts[c] > 0 {
			continue
		}
		far := farthestMovable(points, centers, labels, counts)
		if far < 0 {
			return
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c] = 1
		copy(centers[c], points[far])
	}
}

// steal moves the point farthest from its centroid into the empty cluster
// c, taking it out of the donor's running sum and count. Donors are only
// clusters with another member, so no cluster is emptied in turn.
func steal(points, centers [][]float64, labels []int, sums [][]float64, counts []int, c int) {
	far := farthestMovable(points, centers, labels, counts)
	if far < 0 {
		return
	}
	old := labels[far]
	floats.Sub(sums[old], points[far])
	counts[old]--

	labels[far] = c
	copy(sums[c], points[far])
	counts[c] = 1
}

func farthestMovable(points, centers [][]float64, labels, counts []int) int {
	idx, best := -1, -1.0
	for i, p := range points {
		if counts[labels[i]] < 2 {
			continue
		}
		if d := sqDist(p, centers[labels[i]]); d > best {
			idx, best = i, d
		}
	}
	return idx
}

// canonicalize relabels clusters in order of first appearance so the
// output does not depend on which restart won.
func canonicalize(r *Result) {
	k, cols := r.Centroids.Dims()
	remap := make([]int, k)
	for i := range remap {
		remap[i] = -1
	}
	next := 0
	for _, l := range r.Labels {
		if remap[l] < 0 {
			remap[l] = next
			next++
		}
	}
	for c := range remap {
		if remap[c] < 0 {
			remap[c] = next
			next++
		}
	}

	cm := mat.NewDense(k, cols, nil)
	for c := 0; c < k; c++ {
		cm.SetRow(remap[c], r.Centroids.RawRowView(c))
	}
	for i, l := range r.Labels {
		r.Labels[i] = remap[l]
	}
	r.Centroids = cm
}

func distinctRows(points [][]float64) int {
	seen := make(map[string]struct{}, len(points))
	var sb strings.Builder
	for _, p := range points {
		sb.Reset()
		for _, v := range p {
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			sb.WriteByte(',')
		}
		seen[sb.String()] = struct{}{}
	}
	return len(seen)
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
