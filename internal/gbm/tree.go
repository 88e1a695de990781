// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package gbm

import (
	"math"
	"sort"
)

// Node is one tree node. Leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

// IsLeaf reports whether n is a leaf.
func (n *Node) IsLeaf() bool { return n.Feature < 0 }

// Tree is a regression tree stored as a flat node slice; node 0 is the root.
type Tree struct {
	Nodes []Node
}

// Predict walks the tree for one row. Values below the threshold and
// missing values go left.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		v := x[n.Feature]
		if math.IsNaN(v) || v < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// builder grows one tree from gradient statistics.
type builder struct {
	x      [][]float64
	grad   []float64
	hess   []float64
	params Params
	gain   []float64
	tree   *Tree
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

func (b *builder) build(rows []int) *Tree {
	b.tree = &Tree{}
	b.grow(rows, 0)
	return b.tree
}

// grow appends the subtree for rows and returns its node index.
func (b *builder) grow(rows []int, depth int) int {
	g, h := b.sums(rows)
	idx := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Feature: -1})

	if depth < b.params.MaxDepth && len(rows) > 1 {
		if s, ok := b.bestSplit(rows, g, h); ok {
			b.gain[s.feature] += s.gain
			left := b.grow(s.left, depth+1)
			right := b.grow(s.right, depth+1)
			b.tree.Nodes[idx] = Node{
				Feature:   s.feature,
				Threshold: s.threshold,
				Left:      left,
				Right:     right,
			}
			return idx
		}
	}

	b.tree.Nodes[idx].Value = b.params.Eta * leafWeight(g, h, b.params.Lambda)
	return idx
}

func (b *builder) sums(rows []int) (g, h float64) {
	for _, r := range rows {
		g += b.grad[r]
		h += b.hess[r]
	}
	return g, h
}

// bestSplit scans every feature for the split with the largest positive
// loss reduction. Missing values always go left.
func (b *builder) bestSplit(rows []int, g, h float64) (split, bool) {
	lambda := b.params.Lambda
	parent := score(g, h, lambda)
	best := split{gain: 0}
	found := false

	nFeatures := len(b.x[rows[0]])
	present := make([]int, 0, len(rows))
	for f := 0; f < nFeatures; f++ {
		present = present[:0]
		var gMiss, hMiss float64
		for _, r := range rows {
			if math.IsNaN(b.x[r][f]) {
				gMiss += b.grad[r]
				hMiss += b.hess[r]
				continue
			}
			present = append(present, r)
		}
		if len(present) < 2 {
			continue
		}
		sort.Slice(present, func(i, j int) bool {
			return b.x[present[i]][f] < b.x[present[j]][f]
		})

		gl, hl := gMiss, hMiss
		for k := 0; k < len(present)-1; k++ {
			r := present[k]
			gl += b.grad[r]
			hl += b.hess[r]

			cur, next := b.x[r][f], b.x[present[k+1]][f]
			if cur == next {
				continue
			}
			gr, hr := g-gl, h-hl
			if hl < b.params.MinChildWeight || hr < b.params.MinChildWeight {
				continue
			}
			gain := 0.5*(score(gl, hl, lambda)+score(gr, hr, lambda)-parent) - b.params.Gamma
			if gain > best.gain {
				best = split{feature: f, threshold: cur + (next-cur)/2, gain: gain}
				found = true
			}
		}
	}
	if !found {
		return best, false
	}

	for _, r := range rows {
		v := b.x[r][best.feature]
		if math.IsNaN(v) || v < best.threshold {
			best.left = append(best.left, r)
		} else {
			best.right = append(best.right, r)
		}
	}
	if len(best.left) == 0 || len(best.right) == 0 {
		return best, false
	}
	return best, true
}

func score(g, h, lambda float64) float64 {
	return g * g / (h + lambda)
}

func leafWeight(g, h, lambda float64) float64 {
	return -g / (h + lambda)
}
