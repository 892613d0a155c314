package cleaning

import (
	"math"
	"math/rand/v2"
	"sort"
)

const (
	forestTrees      = 100
	forestSampleSize = 256
)

// rejectOutliers scores every row with an isolation forest and marks the
// round(contamination*N) most anomalous for rejection. Rows with residual
// NaN cells are scored against column means; columns empty across the whole
// batch are excluded from scoring. The returned map is nil-safe to index.
func rejectOutliers(m [][numFeatures]float64) map[int]bool {
	n := len(m)
	reject := int(math.Round(contamination * float64(n)))
	if reject == 0 {
		return nil
	}

	cols, X := scoringMatrix(m)
	if len(cols) == 0 {
		return nil
	}

	// Seeded per batch size so repeated cleaning of the same batch is
	// reproducible.
	rng := rand.New(rand.NewPCG(0x6f6365616e, uint64(n)))
	forest := growForest(rng, X)

	scores := make([]float64, n)
	for i, row := range X {
		scores[i] = forest.score(row)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	rejected := make(map[int]bool, reject)
	for _, idx := range order[:reject] {
		rejected[idx] = true
	}
	return rejected
}

// scoringMatrix projects the feature matrix onto the columns that have at
// least one observed value, substituting column means for residual NaNs so
// incompleteness alone never makes a row anomalous.
func scoringMatrix(m [][numFeatures]float64) ([]int, [][]float64) {
	means := columnMeans(m)
	cols := make([]int, 0, numFeatures)
	for c := 0; c < numFeatures; c++ {
		if !math.IsNaN(means[c]) {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return nil, nil
	}
	X := make([][]float64, len(m))
	for i, row := range m {
		v := make([]float64, len(cols))
		for j, c := range cols {
			if math.IsNaN(row[c]) {
				v[j] = means[c]
			} else {
				v[j] = row[c]
			}
		}
		X[i] = v
	}
	return cols, X
}

type isoForest struct {
	trees      []*isoNode
	sampleSize int
}

type isoNode struct {
	split   float64
	feature int
	left    *isoNode
	right   *isoNode
	size    int
}

func growForest(rng *rand.Rand, X [][]float64) *isoForest {
	sample := forestSampleSize
	if len(X) < sample {
		sample = len(X)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sample)))) + 1

	f := &isoForest{trees: make([]*isoNode, forestTrees), sampleSize: sample}
	for t := range f.trees {
		idx := rng.Perm(len(X))[:sample]
		rows := make([][]float64, sample)
		for i, j := range idx {
			rows[i] = X[j]
		}
		f.trees[t] = growTree(rng, rows, 0, maxDepth)
	}
	return f
}

func growTree(rng *rand.Rand, rows [][]float64, depth, maxDepth int) *isoNode {
	if len(rows) <= 1 || depth >= maxDepth {
		return &isoNode{size: len(rows)}
	}

	feature := rng.IntN(len(rows[0]))
	lo, hi := rows[0][feature], rows[0][feature]
	for _, r := range rows[1:] {
		lo = math.Min(lo, r[feature])
		hi = math.Max(hi, r[feature])
	}
	if lo == hi {
		return &isoNode{size: len(rows)}
	}
	split := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, r := range rows {
		if r[feature] < split {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return &isoNode{
		feature: feature,
		split:   split,
		left:    growTree(rng, left, depth+1, maxDepth),
		right:   growTree(rng, right, depth+1, maxDepth),
	}
}

// score is the standard anomaly score: 2^(-E[path]/c(sampleSize)), higher
// meaning more isolated.
func (f *isoForest) score(row []float64) float64 {
	total := 0.0
	for _, t := range f.trees {
		total += pathLength(t, row, 0)
	}
	avg := total / float64(len(f.trees))
	return math.Pow(2, -avg/avgPathLength(f.sampleSize))
}

func pathLength(n *isoNode, row []float64, depth int) float64 {
	if n.left == nil {
		return float64(depth) + avgPathLength(n.size)
	}
	if row[n.feature] < n.split {
		return pathLength(n.left, row, depth+1)
	}
	return pathLength(n.right, row, depth+1)
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n nodes.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649 // harmonic number approximation
	return 2*h - 2*float64(n-1)/float64(n)
}
