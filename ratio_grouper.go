// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package terarkdb

import "math"

// Group describes one contiguous group RatioGroup carved out of the input
// sequence: runs [Start, Start+Count) belong to it, and Ratio is the
// group's aggregate weight (the sum of its members' inputs). SortedRunLazy
// reads only Start and Count.
type Group struct {
	Start int
	Count int
	Ratio float64
}

// ratioQ solves sum_{i=1..g} q^i = S for q, where S is the sum of sr, via
// 8 iterations of Newton-Raphson seeded at q = S^(1/g). When S <= g+1, q
// is pinned to 1 instead of solved for, which also keeps F's (q - 1)
// denominator away from zero (spec §4.4.3 step 1, §9).
func ratioQ(sr []float64, g int) float64 {
	S := 0.0
	for _, v := range sr {
		S += v
	}
	F := func(q float64, n int) float64 {
		return (math.Pow(q, float64(n+1)) - q) / (q - 1)
	}
	if S <= float64(g+1) {
		return 1
	}
	q := math.Pow(S, 1.0/float64(g))
	for c := 0; c < 8; c++ {
		Fp := q
		qk := q
		for k := 2; k <= g; k++ {
			qk *= q
			Fp += float64(k) * qk
		}
		q -= (F(q, g) - S) / Fp
	}
	return q
}

// RatioGroup partitions sr into `group` contiguous groups whose sizes form
// an approximately geometric sequence with common ratio q (spec §4.4.3).
//
// The algorithm in three passes:
//  1. Solve for q across the whole sequence.
//  2. Tail-trim: peel trailing singleton groups off the back whenever
//     re-solving for q over the shorter prefix yields a smaller ratio,
//     since a smaller q means a better (gentler) geometric fit.
//  3. Greedy assignment from the right: walk the sequence backwards,
//     accumulating run sizes into the current group until the cumulative
//     weight would overshoot the next power of q, then close the group.
//
// RatioGroup does not mutate sr. group is clamped to [1, len(sr)].
func RatioGroup(sr []float64, group int) ([]Group, float64) {
	n := len(sr)
	if n == 0 {
		return nil, 1
	}
	if group < 1 {
		group = 1
	}
	if group > n {
		group = n
	}

	o := make([]Group, group)
	retQ := ratioQ(sr, group)
	srSize := n
	g := group
	q := retQ
	for i := g - 1; q > 1 && i > 0; i-- {
		e := g - i
		newQ := ratioQ(sr[:srSize-e], g-e)
		if newQ < q {
			for j := i; j < g; j++ {
				start := j + srSize - g
				o[j] = Group{Start: start, Count: 1, Ratio: sr[start]}
			}
			srSize -= e
			g -= e
			q = newQ
		}
	}

	srAcc := sr[srSize-1]
	qAcc := math.Pow(q, float64(g))
	qI := g - 1
	o[qI].Ratio = srAcc
	o[0].Start = 0
	for i := srSize - 2; i >= 0; i-- {
		newAcc := srAcc + sr[i]
		if (i < qI || srAcc > qAcc || math.Abs(newAcc-qAcc) > math.Abs(srAcc-qAcc)) && qI > 0 {
			o[qI].Start = i + 1
			qAcc += math.Pow(q, float64(qI))
			qI--
			o[qI].Ratio = 0
		}
		srAcc = newAcc
		o[qI].Ratio += sr[i]
	}
	for i := 1; i < g; i++ {
		o[i-1].Count = o[i].Start - o[i-1].Start
	}
	o[g-1].Count = srSize - o[g-1].Start

	return o, retQ
}
