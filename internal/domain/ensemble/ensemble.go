// Package ensemble evaluates pre-trained regression tree ensembles and
// explains their predictions with exact TreeSHAP attributions.
//
// An Ensemble is immutable once constructed and safe for concurrent use.
package ensemble

import (
	"encoding/json"
	"fmt"
	"math"
)

// Format tags the supported artifact layout.
const Format = "fasal-tree-ensemble/v1"

// coverTolerance bounds the relative mismatch between a node's cover and
// the sum of its children's covers.
const coverTolerance = 1e-6

// Aggregation selects how tree outputs are combined.
type Aggregation string

const (
	// AggregationMean averages tree outputs (random forests).
	AggregationMean Aggregation = "mean"
	// AggregationSum adds tree outputs to the base score (boosting).
	AggregationSum Aggregation = "sum"
)

// Node is one node of a tree stored in preorder. Leaves have Feature < 0.
// Samples with x[Feature] <= Threshold go Left.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Cover     float64 `json:"cover"`
}

// IsLeaf reports whether n terminates a path.
func (n Node) IsLeaf() bool { return n.Feature < 0 }

// Leaf builds a leaf node.
func Leaf(value, cover float64) Node {
	return Node{Feature: -1, Left: -1, Right: -1, Value: value, Cover: cover}
}

// Split builds an internal node.
func Split(feature int, threshold float64, left, right int, cover float64) Node {
	return Node{Feature: feature, Threshold: threshold, Left: left, Right: right, Cover: cover}
}

// Tree is a single regression tree.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Ensemble is a validated, read-only tree ensemble.
type Ensemble struct {
	featureNames []string
	aggregation  Aggregation
	baseScore    float64
	trees        []Tree
	maxDepth     int
	expected     float64
}

// artifact is the on-disk JSON shape.
type artifact struct {
	Format       string      `json:"format"`
	FeatureNames []string    `json:"feature_names"`
	Aggregation  Aggregation `json:"aggregation"`
	BaseScore    float64     `json:"base_score"`
	Trees        []Tree      `json:"trees"`
}

// New validates the trees and returns an immutable ensemble. An empty
// aggregation means AggregationMean.
func New(featureNames []string, aggregation Aggregation, baseScore float64, trees []Tree) (*Ensemble, error) {
	if aggregation == "" {
		aggregation = AggregationMean
	}
	if aggregation != AggregationMean && aggregation != AggregationSum {
		return nil, fmt.Errorf("%w: unknown aggregation %q", ErrMalformed, aggregation)
	}
	if len(featureNames) == 0 {
		return nil, fmt.Errorf("%w: no feature names", ErrMalformed)
	}
	seen := make(map[string]struct{}, len(featureNames))
	for _, name := range featureNames {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate feature %q", ErrMalformed, name)
		}
		seen[name] = struct{}{}
	}
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: no trees", ErrMalformed)
	}
	if !isFinite(baseScore) {
		return nil, fmt.Errorf("%w: base score is not finite", ErrMalformed)
	}

	e := &Ensemble{
		featureNames: append([]string(nil), featureNames...),
		aggregation:  aggregation,
		baseScore:    baseScore,
		trees:        make([]Tree, len(trees)),
	}
	sum := 0.0
	for i, t := range trees {
		depth, err := validateTree(t, len(featureNames))
		if err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", ErrMalformed, i, err)
		}
		e.trees[i] = Tree{Nodes: append([]Node(nil), t.Nodes...)}
		if depth > e.maxDepth {
			e.maxDepth = depth
		}
		sum += e.trees[i].expectation(0)
	}
	e.expected = e.combine(sum)
	return e, nil
}

func validateTree(t Tree, numFeatures int) (int, error) {
	n := len(t.Nodes)
	if n == 0 {
		return 0, fmt.Errorf("no nodes")
	}
	parents := make([]int, n)
	depth := make([]int, n)
	maxDepth := 0
	for i, node := range t.Nodes {
		if !(node.Cover > 0) || !isFinite(node.Cover) {
			return 0, fmt.Errorf("node %d: cover must be positive", i)
		}
		if node.IsLeaf() {
			if !isFinite(node.Value) {
				return 0, fmt.Errorf("node %d: leaf value is not finite", i)
			}
			continue
		}
		if node.Feature >= numFeatures {
			return 0, fmt.Errorf("node %d: feature %d out of range", i, node.Feature)
		}
		if !isFinite(node.Threshold) {
			return 0, fmt.Errorf("node %d: threshold is not finite", i)
		}
		for _, child := range []int{node.Left, node.Right} {
			if child <= i || child >= n {
				return 0, fmt.Errorf("node %d: child %d out of preorder range", i, child)
			}
			parents[child]++
			if parents[child] > 1 {
				return 0, fmt.Errorf("node %d has more than one parent", child)
			}
			depth[child] = depth[i] + 1
			if depth[child] > maxDepth {
				maxDepth = depth[child]
			}
		}
		if node.Left == node.Right {
			return 0, fmt.Errorf("node %d: children must differ", i)
		}
		childCover := t.Nodes[node.Left].Cover + t.Nodes[node.Right].Cover
		if math.Abs(childCover-node.Cover) > coverTolerance*node.Cover {
			return 0, fmt.Errorf("node %d: children cover %g, node cover %g", i, childCover, node.Cover)
		}
	}
	for i := 1; i < n; i++ {
		if parents[i] == 0 {
			return 0, fmt.Errorf("node %d is unreachable", i)
		}
	}
	return maxDepth, nil
}

// FeatureNames returns the feature order the ensemble was trained on.
func (e *Ensemble) FeatureNames() []string {
	return append([]string(nil), e.featureNames...)
}

// NumTrees returns the number of trees.
func (e *Ensemble) NumTrees() int { return len(e.trees) }

// MaxDepth returns the depth of the deepest tree.
func (e *Ensemble) MaxDepth() int { return e.maxDepth }

// Aggregation returns how tree outputs are combined.
func (e *Ensemble) Aggregation() Aggregation { return e.aggregation }

// ExpectedValue is the cover-weighted mean prediction, i.e. the average
// training label the attributions are measured from.
func (e *Ensemble) ExpectedValue() float64 { return e.expected }

// Predict evaluates the ensemble on x.
func (e *Ensemble) Predict(x []float64) (float64, error) {
	if len(x) != len(e.featureNames) {
		return 0, fmt.Errorf("%w: got %d values, want %d", ErrFeatureMismatch, len(x), len(e.featureNames))
	}
	sum := 0.0
	for i := range e.trees {
		sum += e.trees[i].predict(x)
	}
	return e.combine(sum), nil
}

func (e *Ensemble) combine(sum float64) float64 {
	if e.aggregation == AggregationSum {
		return e.baseScore + sum
	}
	return sum / float64(len(e.trees))
}

func (t *Tree) predict(x []float64) float64 {
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.IsLeaf() {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

// expectation is the cover-weighted mean leaf value below node j.
func (t *Tree) expectation(j int) float64 {
	node := t.Nodes[j]
	if node.IsLeaf() {
		return node.Value
	}
	left, right := t.Nodes[node.Left], t.Nodes[node.Right]
	return (left.Cover*t.expectation(node.Left) + right.Cover*t.expectation(node.Right)) / (left.Cover + right.Cover)
}

// MarshalJSON encodes the ensemble in the artifact format.
func (e *Ensemble) MarshalJSON() ([]byte, error) {
	return json.Marshal(artifact{
		Format:       Format,
		FeatureNames: e.featureNames,
		Aggregation:  e.aggregation,
		BaseScore:    e.baseScore,
		Trees:        e.trees,
	})
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
