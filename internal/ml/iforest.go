package ml

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
)

const (
	defaultMaxSamples = 256
	eulerGamma        = 0.5772156649015329
	// autoOffset is the decision offset used with automatic contamination.
	autoOffset = -0.5
)

// IsolationForest isolates samples with random axis-aligned splits; anomalies
// are isolated in fewer splits.
type IsolationForest struct {
	Trees      []*isoNode `json:"trees"`
	SampleSize int        `json:"sample_size"`
	Offset     float64    `json:"offset"`
	Width      int        `json:"width"`
}

type isoNode struct {
	Feature   int      `json:"f"`
	Threshold float64  `json:"t"`
	Left      *isoNode `json:"l,omitempty"`
	Right     *isoNode `json:"r,omitempty"`
	Size      int      `json:"n,omitempty"`
}

func (n *isoNode) leaf() bool { return n.Left == nil || n.Right == nil }

func (f *IsolationForest) Kind() string    { return kindIsolationForest }
func (f *IsolationForest) InputWidth() int { return f.Width }

// FitIsolationForest grows nTrees isolation trees on sub-samples of x.
func FitIsolationForest(ctx context.Context, x [][]float64, nTrees int, seed int64) (*IsolationForest, error) {
	if len(x) == 0 {
		return nil, errors.New("isolation forest: no samples")
	}
	width := len(x[0])
	psi := min(defaultMaxSamples, len(x))
	depthLimit := int(math.Ceil(math.Log2(math.Max(float64(psi), 2))))

	trees, err := fitTrees(ctx, nTrees, seed, func(rng *rand.Rand) *isoNode {
		idx := rng.Perm(len(x))[:psi]
		return growIsoTree(x, idx, 0, depthLimit, width, rng)
	})
	if err != nil {
		return nil, err
	}
	return &IsolationForest{Trees: trees, SampleSize: psi, Offset: autoOffset, Width: width}, nil
}

func growIsoTree(x [][]float64, idx []int, depth, limit, width int, rng *rand.Rand) *isoNode {
	if depth >= limit || len(idx) <= 1 {
		return &isoNode{Size: len(idx)}
	}

	// Candidate features are those that still vary inside this node.
	lo := make([]float64, width)
	hi := make([]float64, width)
	for j := 0; j < width; j++ {
		lo[j], hi[j] = math.Inf(1), math.Inf(-1)
	}
	for _, i := range idx {
		for j, v := range x[i] {
			lo[j] = math.Min(lo[j], v)
			hi[j] = math.Max(hi[j], v)
		}
	}
	var varying []int
	for j := 0; j < width; j++ {
		if hi[j] > lo[j] {
			varying = append(varying, j)
		}
	}
	if len(varying) == 0 {
		return &isoNode{Size: len(idx)}
	}

	feat := varying[rng.IntN(len(varying))]
	thr := lo[feat] + rng.Float64()*(hi[feat]-lo[feat])

	var left, right []int
	for _, i := range idx {
		if x[i][feat] < thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &isoNode{
		Feature:   feat,
		Threshold: thr,
		Left:      growIsoTree(x, left, depth+1, limit, width, rng),
		Right:     growIsoTree(x, right, depth+1, limit, width, rng),
	}
}

// averagePathLength is c(n), the mean path length of an unsuccessful BST search.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

func (n *isoNode) pathLength(x []float64, depth int) float64 {
	if n.leaf() {
		return float64(depth) + averagePathLength(n.Size)
	}
	if x[n.Feature] < n.Threshold {
		return n.Left.pathLength(x, depth+1)
	}
	return n.Right.pathLength(x, depth+1)
}

// ScoreSamples is the opposite of the anomaly score: values near -1 are anomalous.
func (f *IsolationForest) ScoreSamples(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var total float64
	for _, t := range f.Trees {
		total += t.pathLength(x, 0)
	}
	mean := total / float64(len(f.Trees))
	c := averagePathLength(f.SampleSize)
	if c == 0 {
		c = 1
	}
	return -math.Pow(2, -mean/c)
}

func (f *IsolationForest) DecisionFunction(x []float64) float64 {
	return f.ScoreSamples(x) - f.Offset
}

func (f *IsolationForest) Predict(x []float64) int {
	if f.DecisionFunction(x) < 0 {
		return -1
	}
	return 1
}
