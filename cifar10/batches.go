package cifar10

import (
	"io"
	"math/rand"
	"sync"

	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gopjrt/dtypes"
)

// BatchSource implements train.Dataset over a Subset. Each Yield returns one
// batch: an image tensor shaped [batch, Height, Width, Depth] (float32) and
// a label tensor shaped [batch] (int32). The final batch of an epoch may be
// smaller than the configured batch size; after the epoch is exhausted Yield
// returns io.EOF until Reset.
//
// When constructed with a shuffle generator the example order is re-shuffled
// on every Reset, i.e. on every pass; with a nil generator the order is fixed
// across passes. Training sources shuffle, validation/test sources do not.
type BatchSource struct {
	name      string
	subset    *Subset
	batchSize int
	shuffle   *rand.Rand
	workers   int

	// pinMemory is accepted for parity with the host contract's loader
	// options. Batch tensors here are always host-local, so there is no
	// separate pinned staging buffer to opt into.
	pinMemory bool

	// mu guards order, next and seq, shared with worker goroutines.
	mu    sync.Mutex
	order []int // positions into subset, re-shuffled per Reset when shuffling
	next  int   // cursor into order
	seq   int   // sequence number of the next batch handed out

	// Prefetch pipeline, active between Reset and exhaustion when workers > 0.
	stopCh     chan struct{}
	results    chan batchResult
	wg         sync.WaitGroup
	pending    map[int]batchResult
	wantSeq    int
	numBatches int
}

var _ train.Dataset = &BatchSource{}

type batchResult struct {
	seq            int
	inputs, labels []*tensors.Tensor
}

// NewBatchSource creates a batch source over subset.
//
//   - shuffle: if not nil, used to re-shuffle the example order on every
//     Reset. Pass nil for a fixed order (validation/test).
//   - workers: if > 0, that many goroutines assemble batches ahead of the
//     consumer. Yield order is unaffected: batches are handed out in
//     sequence regardless of which worker finished first.
//   - pinMemory: threaded through from the loader configuration, see the
//     field comment.
func NewBatchSource(name string, subset *Subset, batchSize int, shuffle *rand.Rand, workers int, pinMemory bool) *BatchSource {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if workers < 0 {
		workers = 0
	}
	bs := &BatchSource{
		name:      name,
		subset:    subset,
		batchSize: batchSize,
		shuffle:   shuffle,
		workers:   workers,
		pinMemory: pinMemory,
		order:     make([]int, subset.Len()),
	}
	for i := range bs.order {
		bs.order[i] = i
	}
	bs.Reset()
	return bs
}

// Name implements train.Dataset.
func (bs *BatchSource) Name() string { return bs.name }

// Yield implements train.Dataset.
func (bs *BatchSource) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	spec = bs
	if bs.workers > 0 {
		inputs, labels, err = bs.yieldOrdered()
		return
	}
	_, positions, ok := bs.claimBatch()
	if !ok {
		err = io.EOF
		return
	}
	inputs, labels = bs.buildBatch(positions)
	return
}

// Reset implements train.Dataset: it restarts the epoch, re-shuffling the
// example order if the source was constructed with a shuffle generator.
func (bs *BatchSource) Reset() {
	bs.stopWorkers()
	bs.mu.Lock()
	bs.next = 0
	bs.seq = 0
	if bs.shuffle != nil {
		bs.shuffle.Shuffle(len(bs.order), func(i, j int) {
			bs.order[i], bs.order[j] = bs.order[j], bs.order[i]
		})
	}
	bs.mu.Unlock()
	if bs.workers > 0 {
		bs.startWorkers()
	}
}

// claimBatch hands out the next batch of subset positions along with its
// sequence number. ok is false once the epoch is exhausted.
func (bs *BatchSource) claimBatch() (seq int, positions []int, ok bool) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if bs.next >= len(bs.order) {
		return 0, nil, false
	}
	end := min(bs.next+bs.batchSize, len(bs.order))
	// Copy: order is re-shuffled in place on Reset.
	positions = append([]int(nil), bs.order[bs.next:end]...)
	bs.next = end
	seq = bs.seq
	bs.seq++
	return seq, positions, true
}

// buildBatch assembles the image and label tensors for the given subset
// positions.
func (bs *BatchSource) buildBatch(positions []int) (inputs, labels []*tensors.Tensor) {
	n := len(positions)
	labelValues := make([]int32, n)
	imgT := tensors.FromShape(shapes.Make(dtypes.Float32, n, Height, Width, Depth))
	imgT.MutableFlatData(func(flatAny any) {
		data := flatAny.([]float32)
		for i, pos := range positions {
			img, label := bs.subset.At(pos)
			copy(data[i*imageFloats:(i+1)*imageFloats], img)
			labelValues[i] = label
		}
	})
	labT := tensors.FromValue(labelValues)
	return []*tensors.Tensor{imgT}, []*tensors.Tensor{labT}
}

// startWorkers launches the prefetch goroutines for a fresh epoch.
func (bs *BatchSource) startWorkers() {
	bs.numBatches = (len(bs.order) + bs.batchSize - 1) / bs.batchSize
	bs.wantSeq = 0
	bs.pending = make(map[int]batchResult)
	bs.stopCh = make(chan struct{})
	bs.results = make(chan batchResult, bs.workers)
	for range bs.workers {
		bs.wg.Add(1)
		go func() {
			defer bs.wg.Done()
			bs.workerLoop()
		}()
	}
}

func (bs *BatchSource) workerLoop() {
	for {
		seq, positions, ok := bs.claimBatch()
		if !ok {
			return
		}
		inputs, labels := bs.buildBatch(positions)
		select {
		case bs.results <- batchResult{seq: seq, inputs: inputs, labels: labels}:
		case <-bs.stopCh:
			return
		}
	}
}

// yieldOrdered returns the next batch in sequence order, buffering batches
// that workers finished early.
func (bs *BatchSource) yieldOrdered() (inputs, labels []*tensors.Tensor, err error) {
	if bs.wantSeq >= bs.numBatches {
		return nil, nil, io.EOF
	}
	for {
		if r, ok := bs.pending[bs.wantSeq]; ok {
			delete(bs.pending, bs.wantSeq)
			bs.wantSeq++
			return r.inputs, r.labels, nil
		}
		r, ok := <-bs.results
		if !ok {
			return nil, nil, io.EOF
		}
		bs.pending[r.seq] = r
	}
}

// stopWorkers tears down the prefetch pipeline, discarding any batches that
// were assembled but not consumed.
func (bs *BatchSource) stopWorkers() {
	if bs.stopCh == nil {
		return
	}
	close(bs.stopCh)
	bs.wg.Wait()
	for {
		select {
		case <-bs.results:
		default:
			bs.stopCh = nil
			bs.results = nil
			bs.pending = nil
			return
		}
	}
}
