package main

// Example command that walks the CIFAR-10 data module through its full
// lifecycle: download the binary distribution (once), load and split the
// combined pool, then pull a couple of batches from each batch source and
// print their shapes.
//
// Usage:
//   go run ./example
//
// The first run downloads ~160MB into ./data; later runs reuse the cache.

import (
	"fmt"
	"io"
	"log"

	"github.com/Noofbiz/cifarBowl/cifar10"

	"github.com/gomlx/gomlx/pkg/ml/train"
)

func main() {
	m, err := cifar10.New(cifar10.Config{DataDir: "data", Workers: 2})
	if err != nil {
		log.Fatalf("failed to create data module: %v", err)
	}

	fmt.Println("Preparing CIFAR-10 (download if missing)...")
	if err := m.Prepare(); err != nil {
		log.Fatalf("failed to prepare dataset: %v", err)
	}

	if err := m.Setup("fit"); err != nil {
		log.Fatalf("failed to set up dataset: %v", err)
	}
	fmt.Printf("Split sizes: train=%d valid=%d test=%d\n",
		m.TrainSet().Len(), m.ValidSet().Len(), m.TestSet().Len())

	sources := []func() (train.Dataset, error){m.TrainBatches, m.ValidBatches, m.TestBatches}
	for _, source := range sources {
		ds, err := source()
		if err != nil {
			log.Fatalf("failed to create batch source: %v", err)
		}
		for batch := 0; batch < 2; batch++ {
			_, inputs, labels, err := ds.Yield()
			if err == io.EOF {
				break
			}
			if err != nil {
				log.Fatalf("failed to yield from %s: %v", ds.Name(), err)
			}
			fmt.Printf("%s batch %d: images=%s labels=%s\n",
				ds.Name(), batch, inputs[0].Shape(), labels[0].Shape())
			if batch == 0 {
				labelValues := labels[0].Value().([]int32)
				first := labelValues[0]
				fmt.Printf("  first example class: %d (%s)\n", first, cifar10.Names[first])
			}
		}
	}

	m.Teardown("fit")
	fmt.Println("\nExample completed successfully!")
}
