package ml

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
)

const defaultForestDepth = 20

// RandomForestRegressor averages bootstrap-trained regression trees.
type RandomForestRegressor struct {
	Trees []*regNode `json:"trees"`
	Width int        `json:"width"`
}

type regNode struct {
	Feature   int      `json:"f"`
	Threshold float64  `json:"t"`
	Left      *regNode `json:"l,omitempty"`
	Right     *regNode `json:"r,omitempty"`
	Value     float64  `json:"v"`
}

func (f *RandomForestRegressor) Kind() string    { return kindRandomForest }
func (f *RandomForestRegressor) InputWidth() int { return f.Width }

// FitRandomForest grows nTrees trees in parallel on bootstrap samples of (x, y).
// maxDepth <= 0 uses the default depth guard.
func FitRandomForest(ctx context.Context, x [][]float64, y []float64, nTrees, maxDepth int, seed int64) (*RandomForestRegressor, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, errors.New("random forest: samples and targets must be non-empty and aligned")
	}
	if maxDepth <= 0 {
		maxDepth = defaultForestDepth
	}
	width := len(x[0])
	trees, err := fitTrees(ctx, nTrees, seed, func(rng *rand.Rand) *regNode {
		idx := make([]int, len(x))
		for i := range idx {
			idx[i] = rng.IntN(len(x))
		}
		return growRegTree(x, y, idx, 0, maxDepth, width)
	})
	if err != nil {
		return nil, err
	}
	return &RandomForestRegressor{Trees: trees, Width: width}, nil
}

func growRegTree(x [][]float64, y []float64, idx []int, depth, maxDepth, width int) *regNode {
	var sum, sumSq float64
	for _, i := range idx {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	n := float64(len(idx))
	node := &regNode{Value: sum / n}
	if depth >= maxDepth || len(idx) < 2 || sumSq-sum*sum/n <= 1e-12 {
		return node
	}

	bestFeat, bestThr := -1, 0.0
	bestSSE := sumSq - sum*sum/n
	sorted := make([]int, len(idx))
	for j := 0; j < width; j++ {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return x[sorted[a]][j] < x[sorted[b]][j] })

		var lSum, lSq float64
		for k := 0; k < len(sorted)-1; k++ {
			v := y[sorted[k]]
			lSum += v
			lSq += v * v
			cur, next := x[sorted[k]][j], x[sorted[k+1]][j]
			if cur == next {
				continue
			}
			ln := float64(k + 1)
			rn := n - ln
			rSum := sum - lSum
			rSq := sumSq - lSq
			sse := (lSq - lSum*lSum/ln) + (rSq - rSum*rSum/rn)
			if sse < bestSSE-1e-12 {
				bestSSE = sse
				bestFeat = j
				bestThr = (cur + next) / 2
			}
		}
	}
	if bestFeat < 0 {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if x[i][bestFeat] <= bestThr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	node.Feature = bestFeat
	node.Threshold = bestThr
	node.Left = growRegTree(x, y, left, depth+1, maxDepth, width)
	node.Right = growRegTree(x, y, right, depth+1, maxDepth, width)
	return node
}

func (n *regNode) predict(x []float64) float64 {
	for n.Left != nil && n.Right != nil {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

func (f *RandomForestRegressor) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var total float64
	for _, t := range f.Trees {
		total += t.predict(x)
	}
	return total / float64(len(f.Trees))
}
