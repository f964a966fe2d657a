package cifar10

import (
	"reflect"
	"strings"
	"testing"
)

// newTestPool builds an in-memory pool of n examples where example i is
// identifiable: its first float is float32(i) and its label is i%10.
func newTestPool(n int) *Pool {
	pool := &Pool{
		images: make([]float32, n*imageFloats),
		labels: make([]int32, n),
	}
	for i := 0; i < n; i++ {
		pool.images[i*imageFloats] = float32(i)
		pool.labels[i] = int32(i % 10)
	}
	return pool
}

func TestRandomSplit_Deterministic(t *testing.T) {
	pool := newTestPool(60)
	sizes := [3]int{40, 10, 10}

	first, err := randomSplit(pool, sizes, 42)
	if err != nil {
		t.Fatalf("randomSplit failed: %v", err)
	}
	second, err := randomSplit(pool, sizes, 42)
	if err != nil {
		t.Fatalf("second randomSplit failed: %v", err)
	}

	for i := range first {
		if first[i].Len() != sizes[i] {
			t.Fatalf("subset %d has %d examples, want %d", i, first[i].Len(), sizes[i])
		}
		if !reflect.DeepEqual(first[i].Indices(), second[i].Indices()) {
			t.Fatalf("subset %d differs between identically-seeded splits", i)
		}
	}

	// A different seed must give a different partition.
	other, err := randomSplit(pool, sizes, 43)
	if err != nil {
		t.Fatalf("randomSplit with other seed failed: %v", err)
	}
	if reflect.DeepEqual(first[0].Indices(), other[0].Indices()) {
		t.Fatalf("expected different train subsets for different seeds")
	}
}

func TestRandomSplit_DisjointAndCovering(t *testing.T) {
	pool := newTestPool(60)
	subsets, err := randomSplit(pool, [3]int{40, 10, 10}, 7)
	if err != nil {
		t.Fatalf("randomSplit failed: %v", err)
	}

	seen := make(map[int]int)
	for si, s := range subsets {
		for _, idx := range s.Indices() {
			if prev, dup := seen[idx]; dup {
				t.Fatalf("pool index %d appears in subsets %d and %d", idx, prev, si)
			}
			seen[idx] = si
		}
	}
	if len(seen) != pool.Len() {
		t.Fatalf("subsets cover %d of %d pool indices", len(seen), pool.Len())
	}
}

func TestRandomSplit_SizeMismatch(t *testing.T) {
	pool := newTestPool(60)

	// (30,10,10) does not sum to 60.
	_, err := randomSplit(pool, [3]int{30, 10, 10}, 42)
	if err == nil {
		t.Fatalf("expected size-mismatch error, got nil")
	}
	if !strings.Contains(err.Error(), "sum to 50, want pool size 60") {
		t.Fatalf("unexpected error message: %v", err)
	}

	_, err = randomSplit(pool, [3]int{40, -10, 30}, 42)
	if err == nil {
		t.Fatalf("expected error for negative split size, got nil")
	}
}

func TestSubset_At(t *testing.T) {
	pool := newTestPool(20)
	subsets, err := randomSplit(pool, [3]int{10, 5, 5}, 1)
	if err != nil {
		t.Fatalf("randomSplit failed: %v", err)
	}

	// Every subset entry must map back to its pool example.
	for _, s := range subsets {
		indices := s.Indices()
		labels := s.Labels()
		for i := 0; i < s.Len(); i++ {
			img, label := s.At(i)
			if img[0] != float32(indices[i]) {
				t.Fatalf("subset image %d resolves to pool example %v, want %d", i, img[0], indices[i])
			}
			if label != pool.Label(indices[i]) || label != labels[i] {
				t.Fatalf("subset label %d mismatch: %d vs pool %d", i, label, pool.Label(indices[i]))
			}
		}
	}
}
