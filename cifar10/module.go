package cifar10

import (
	"errors"
	"math/rand"
	"time"

	"github.com/gomlx/gomlx/pkg/ml/train"
)

// Default configuration values, mirroring the host orchestrator's data
// module defaults.
const (
	DefaultDataDir   = "data"
	DefaultTrainSize = 45000
	DefaultValidSize = 5000
	DefaultTestSize  = 10000
	DefaultBatchSize = 64

	// DefaultSeed for the deterministic re-split of the pool. The split must
	// be identical on every process of a distributed run, so the seed is
	// fixed rather than time-based.
	DefaultSeed = 42
)

// Config for a DataModule. Immutable after New; the host persists it
// alongside checkpoints.
type Config struct {
	// DataDir is where the raw dataset archive is cached and extracted.
	DataDir string

	// Split holds the train, validation and test subset sizes. They must
	// sum to the size of the combined pool (60000 for the full dataset) or
	// Setup fails.
	Split [3]int

	// BatchSize for all three batch sources.
	BatchSize int

	// Workers is the number of prefetch goroutines per batch source.
	// Zero means batches are assembled inline on Yield.
	Workers int

	// PinMemory is threaded through to the batch sources, see
	// BatchSource for its meaning here.
	PinMemory bool

	// Seed for the deterministic split. Zero selects DefaultSeed.
	Seed int64
}

// Module is the lifecycle surface consumed by the host orchestrator. The
// host guarantees the methods are invoked in a defined, non-overlapping
// order per process: Prepare on one process, then Setup on every process,
// then the batch-source factories, then Teardown.
type Module interface {
	Prepare() error
	Setup(stage string) error
	TrainBatches() (train.Dataset, error)
	ValidBatches() (train.Dataset, error)
	TestBatches() (train.Dataset, error)
	Teardown(stage string)
	State() map[string]any
	LoadState(state map[string]any) error
}

// DataModule bridges the CIFAR-10 dataset source and the configured split
// sizes to three batch sources. It holds the decoded pool and its three
// subsets for the process lifetime; nothing else is shared or mutated after
// Setup.
type DataModule struct {
	// Config used to build the module. Read-only.
	Config Config

	pool  *Pool
	train *Subset
	valid *Subset
	test  *Subset
}

var _ Module = &DataModule{}

// New creates a DataModule with the provided configuration, applying
// defaults for zero values. The zero Config gives a
// (45000, 5000, 10000) split of the full 60000-example pool.
func New(cfg Config) (*DataModule, error) {
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.Split == [3]int{} {
		cfg.Split = [3]int{DefaultTrainSize, DefaultValidSize, DefaultTestSize}
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize < 0 {
		return nil, errors.New("cifar10: batch size must be positive")
	}
	if cfg.Workers < 0 {
		return nil, errors.New("cifar10: workers must not be negative")
	}
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}
	return &DataModule{Config: cfg}, nil
}

// Prepare downloads the dataset archive if it is not already cached under
// Config.DataDir. It assigns no state: the host runs it on a single process
// while Setup runs on all of them.
func (m *DataModule) Prepare() error {
	return Download(m.Config.DataDir)
}

// Setup loads the pool (original train and test partitions concatenated)
// and splits it into the three subsets. It is idempotent: the host invokes
// it for both the fit and the test stage, and the second invocation is a
// no-op so the split is never redone. stage is not consulted; all three
// subsets are materialized either way.
func (m *DataModule) Setup(stage string) error {
	if m.train != nil && m.valid != nil && m.test != nil {
		return nil
	}
	pool, err := LoadPool(m.Config.DataDir, false)
	if err != nil {
		return err
	}
	subsets, err := randomSplit(pool, m.Config.Split, m.Config.Seed)
	if err != nil {
		return err
	}
	m.pool = pool
	m.train, m.valid, m.test = subsets[0], subsets[1], subsets[2]
	return nil
}

// TrainBatches returns a batch source over the training subset. Order is
// re-shuffled on every pass.
func (m *DataModule) TrainBatches() (train.Dataset, error) {
	if m.train == nil {
		return nil, errors.New("cifar10: Setup must succeed before TrainBatches")
	}
	shuffle := rand.New(rand.NewSource(time.Now().UnixNano()))
	return NewBatchSource("cifar10-train", m.train, m.Config.BatchSize, shuffle, m.Config.Workers, m.Config.PinMemory), nil
}

// ValidBatches returns a batch source over the validation subset, in fixed
// order across passes.
func (m *DataModule) ValidBatches() (train.Dataset, error) {
	if m.valid == nil {
		return nil, errors.New("cifar10: Setup must succeed before ValidBatches")
	}
	return NewBatchSource("cifar10-valid", m.valid, m.Config.BatchSize, nil, m.Config.Workers, m.Config.PinMemory), nil
}

// TestBatches returns a batch source over the test subset, in fixed order
// across passes.
func (m *DataModule) TestBatches() (train.Dataset, error) {
	if m.test == nil {
		return nil, errors.New("cifar10: Setup must succeed before TestBatches")
	}
	return NewBatchSource("cifar10-test", m.test, m.Config.BatchSize, nil, m.Config.Workers, m.Config.PinMemory), nil
}

// TrainSet, ValidSet and TestSet expose the split subsets directly, for
// inspection. They are nil before Setup succeeds.
func (m *DataModule) TrainSet() *Subset { return m.train }
func (m *DataModule) ValidSet() *Subset { return m.valid }
func (m *DataModule) TestSet() *Subset  { return m.test }

// Teardown is a no-op: the subsets stay usable until the process ends, and
// the host may still run the test stage after tearing down fit.
func (m *DataModule) Teardown(stage string) {}

// State exports the module's extra checkpoint state. The split is fully
// determined by Config, so there is nothing to persist.
func (m *DataModule) State() map[string]any {
	return map[string]any{}
}

// LoadState restores checkpoint state exported by State. Nothing is
// persisted, so nothing is restored.
func (m *DataModule) LoadState(state map[string]any) error {
	return nil
}
