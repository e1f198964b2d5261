package ensemble

import "fmt"

// Explanation decomposes one prediction into additive feature attributions:
// Expected + sum(Phi) == Prediction.
type Explanation struct {
	Prediction float64
	Expected   float64
	Phi        []float64
}

// Explain computes exact path-dependent TreeSHAP values for x. The
// conditional expectations are taken over the training distribution recorded
// in node covers, so no background sample is needed.
func (e *Ensemble) Explain(x []float64) (Explanation, error) {
	prediction, err := e.Predict(x)
	if err != nil {
		return Explanation{}, err
	}
	phi := make([]float64, len(e.featureNames))
	scale := 1.0
	if e.aggregation == AggregationMean {
		scale = 1 / float64(len(e.trees))
	}
	for i := range e.trees {
		e.trees[i].shap(x, phi, scale)
	}
	for i, v := range phi {
		if !isFinite(v) {
			return Explanation{}, fmt.Errorf("%w: attribution for %s is not finite", ErrAttribution, e.featureNames[i])
		}
	}
	return Explanation{Prediction: prediction, Expected: e.expected, Phi: phi}, nil
}

// pathElem tracks one feature on the current root-to-node path: the fraction
// of "feature absent" paths flowing through (zero), whether x follows it
// (one) and the permutation weight of the subset size it sits at.
type pathElem struct {
	feature int
	zero    float64
	one     float64
	weight  float64
}

func (t *Tree) shap(x, phi []float64, scale float64) {
	t.recurse(x, phi, scale, 0, nil, 1, 1, -1)
}

func (t *Tree) recurse(x, phi []float64, scale float64, j int, path []pathElem, zero, one float64, feature int) {
	path = extend(path, zero, one, feature)
	node := t.Nodes[j]
	if node.IsLeaf() {
		for i := 1; i < len(path); i++ {
			w := unwoundSum(path, i)
			phi[path[i].feature] += w * (path[i].one - path[i].zero) * node.Value * scale
		}
		return
	}

	hot, cold := node.Left, node.Right
	if !(x[node.Feature] <= node.Threshold) {
		hot, cold = cold, hot
	}

	// A feature split on twice along a path is only counted once.
	incomingZero, incomingOne := 1.0, 1.0
	for k := 1; k < len(path); k++ {
		if path[k].feature == node.Feature {
			incomingZero, incomingOne = path[k].zero, path[k].one
			path = unwind(path, k)
			break
		}
	}

	t.recurse(x, phi, scale, hot, path, incomingZero*t.Nodes[hot].Cover/node.Cover, incomingOne, node.Feature)
	t.recurse(x, phi, scale, cold, path, incomingZero*t.Nodes[cold].Cover/node.Cover, 0, node.Feature)
}

// extend returns a copy of path grown by one feature.
func extend(path []pathElem, zero, one float64, feature int) []pathElem {
	l := len(path)
	next := make([]pathElem, l+1)
	copy(next, path)
	w := 0.0
	if l == 0 {
		w = 1
	}
	next[l] = pathElem{feature: feature, zero: zero, one: one, weight: w}
	for i := l - 1; i >= 0; i-- {
		next[i+1].weight += one * next[i].weight * float64(i+1) / float64(l+1)
		next[i].weight = zero * next[i].weight * float64(l-i) / float64(l+1)
	}
	return next
}

// unwind returns a copy of path with element i removed, undoing extend.
func unwind(path []pathElem, i int) []pathElem {
	l := len(path) - 1
	next := make([]pathElem, len(path))
	copy(next, path)
	one, zero := next[i].one, next[i].zero
	n := next[l].weight
	for j := l - 1; j >= 0; j-- {
		if one != 0 {
			tmp := next[j].weight
			next[j].weight = n * float64(l+1) / (float64(j+1) * one)
			n = tmp - next[j].weight*zero*float64(l-j)/float64(l+1)
		} else {
			next[j].weight = next[j].weight * float64(l+1) / (zero * float64(l-j))
		}
	}
	for j := i; j < l; j++ {
		next[j].feature = next[j+1].feature
		next[j].zero = next[j+1].zero
		next[j].one = next[j+1].one
	}
	return next[:l]
}

// unwoundSum is the total weight of path with element i removed.
func unwoundSum(path []pathElem, i int) float64 {
	l := len(path) - 1
	one, zero := path[i].one, path[i].zero
	n := path[l].weight
	total := 0.0
	for j := l - 1; j >= 0; j-- {
		switch {
		case one != 0:
			tmp := n * float64(l+1) / (float64(j+1) * one)
			total += tmp
			n = path[j].weight - tmp*zero*float64(l-j)/float64(l+1)
		case zero != 0:
			total += path[j].weight * float64(l+1) / (zero * float64(l-j))
		}
	}
	return total
}
