// Copyright (C) 2025 The University of Chicago
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package tophits maintains the N most significant GWAS hits seen across an
// arbitrarily long, single-pass stream of summary-statistic rows, using
// bounded memory. Scores are oriented so that larger means more significant;
// callers feeding p-values negate them before inserting.
package tophits

import (
	"cmp"
	"container/heap"
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrInvalidCapacity is returned by New for non-positive capacities.
	ErrInvalidCapacity = errors.New("capacity must be a positive integer")

	// ErrNonFiniteScore is returned by Insert for NaN scores, which have no
	// place in a total order and would silently corrupt the heap.
	ErrNonFiniteScore = errors.New("score must not be NaN")
)

// Hit is one scored record under consideration. Row is the original CSV row,
// carried alongside the score but never interpreted or compared; two Hits
// with equal Score are interchangeable for ranking purposes.
type Hit struct {
	Score float64
	Row   map[string]string
}

// hitHeap is a min-heap on Score, so the root is always the least
// significant hit currently held and therefore the easiest to evict.
type hitHeap []Hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x any) {
	*h = append(*h, x.(Hit))
}

func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Collector retains the capacity highest-scoring Hits inserted so far.
// Insert is O(log capacity) and memory stays O(capacity) no matter how many
// hits stream through. It is not safe for concurrent use; callers with
// parallel producers must serialize inserts externally.
type Collector struct {
	capacity int
	items    hitHeap
	min      Hit
	max      Hit
	filled   bool
}

// DefaultCapacity is the number of hits kept when callers have no opinion.
const DefaultCapacity = 100

// New creates a Collector that keeps the top capacity hits. Capacity must be
// positive; zero is rejected rather than guessing "keep nothing" semantics.
func New(capacity int) (*Collector, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	return &Collector{
		capacity: capacity,
		items:    make(hitHeap, 0, capacity),
	}, nil
}

// Insert considers one hit for retention. Below capacity every hit is kept.
// Once full, a hit scoring strictly below the current worst-kept score is
// discarded; anything at or above it evicts the worst-kept hit. Ties at the
// boundary are admitted, so an equal-scoring hit replaces an arbitrary held
// one rather than being dropped.
func (c *Collector) Insert(hit Hit) error {
	if math.IsNaN(hit.Score) {
		return fmt.Errorf("%w: %v", ErrNonFiniteScore, hit.Score)
	}

	if len(c.items) < c.capacity {
		heap.Push(&c.items, hit)
		return nil
	}

	if !c.filled {
		c.resetMinMax()
		c.filled = true
	}

	if hit.Score < c.min.Score {
		return nil
	}

	// Replace the root in place and sift; cheaper than pop+push.
	c.items[0] = hit
	heap.Fix(&c.items, 0)
	c.resetMinMax()
	return nil
}

// resetMinMax caches the worst and best held hits. The min is the heap root;
// the max is found by a linear scan, which is fine for the small capacities
// this is used with.
func (c *Collector) resetMinMax() {
	c.min = c.items[0]
	c.max = c.items[0]
	for _, it := range c.items[1:] {
		if it.Score > c.max.Score {
			c.max = it
		}
	}
}

// Snapshot returns all currently held hits sorted most-significant first.
// It never mutates the collector and may be called at any point, including
// before the collector has filled.
func (c *Collector) Snapshot() []Hit {
	out := make([]Hit, len(c.items))
	copy(out, c.items)
	slices.SortStableFunc(out, func(a, b Hit) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}

// Len reports how many hits are currently held.
func (c *Collector) Len() int { return len(c.items) }

// Capacity reports the fixed retention limit set at construction.
func (c *Collector) Capacity() int { return c.capacity }
