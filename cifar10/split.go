package cifar10

import (
	"fmt"
	"math/rand"
)

// Subset is an index-based read-only view over a Pool. Subsets produced by
// randomSplit are disjoint and together cover the whole pool.
type Subset struct {
	pool    *Pool
	indices []int
}

// Len returns the number of examples in the subset.
func (s *Subset) Len() int { return len(s.indices) }

// At returns the image buffer and label of the subset's i-th example.
// The image slice aliases the pool and must not be mutated.
func (s *Subset) At(i int) ([]float32, int32) {
	idx := s.indices[i]
	return s.pool.Image(idx), s.pool.Label(idx)
}

// Labels returns the labels of all examples in subset order.
func (s *Subset) Labels() []int32 {
	labels := make([]int32, len(s.indices))
	for i, idx := range s.indices {
		labels[i] = s.pool.Label(idx)
	}
	return labels
}

// Indices returns a copy of the pool indices backing the subset, in subset
// order. Useful for checking reproducibility of a split.
func (s *Subset) Indices() []int {
	out := make([]int, len(s.indices))
	copy(out, s.indices)
	return out
}

// randomSplit partitions the pool into three disjoint subsets of the given
// sizes using a seeded permutation of the pool indices: the same seed and
// sizes always produce the same subsets, across calls and across processes.
// It fails if the sizes do not sum to the pool size.
func randomSplit(pool *Pool, sizes [3]int, seed int64) ([3]*Subset, error) {
	var subsets [3]*Subset
	total := 0
	for _, size := range sizes {
		if size < 0 {
			return subsets, fmt.Errorf("split size %d is negative", size)
		}
		total += size
	}
	if total != pool.Len() {
		return subsets, fmt.Errorf("split sizes %v sum to %d, want pool size %d", sizes, total, pool.Len())
	}

	perm := rand.New(rand.NewSource(seed)).Perm(pool.Len())
	offset := 0
	for i, size := range sizes {
		subsets[i] = &Subset{pool: pool, indices: perm[offset : offset+size]}
		offset += size
	}
	return subsets, nil
}
