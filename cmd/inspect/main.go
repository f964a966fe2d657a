package main

// inspect downloads CIFAR-10 (if missing), performs the configured
// deterministic split, prints per-subset class counts and renders a grouped
// bar chart of the class distribution so a skewed split is easy to spot.
//
// Usage:
//   go run ./cmd/inspect -data-dir data -out class_dist.png

import (
	"flag"
	"fmt"
	"image/color"
	"log"

	"github.com/Noofbiz/cifarBowl/cifar10"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	dataDir   = flag.String("data-dir", "data", "directory where the dataset archive is cached")
	trainSize = flag.Int("train", cifar10.DefaultTrainSize, "training subset size")
	validSize = flag.Int("val", cifar10.DefaultValidSize, "validation subset size")
	testSize  = flag.Int("test", cifar10.DefaultTestSize, "test subset size")
	batchSize = flag.Int("batch-size", cifar10.DefaultBatchSize, "batch size (reported only)")
	seed      = flag.Int64("seed", cifar10.DefaultSeed, "seed for the deterministic split")
	plotOut   = flag.String("out", "class_dist.png", "output path for the class-distribution chart; empty disables plotting")
)

func main() {
	flag.Parse()

	m, err := cifar10.New(cifar10.Config{
		DataDir:   *dataDir,
		Split:     [3]int{*trainSize, *validSize, *testSize},
		BatchSize: *batchSize,
		Seed:      *seed,
	})
	if err != nil {
		log.Fatalf("failed to create data module: %v", err)
	}
	if err := m.Prepare(); err != nil {
		log.Fatalf("failed to prepare dataset: %v", err)
	}
	if err := m.Setup("fit"); err != nil {
		log.Fatalf("failed to set up dataset: %v", err)
	}

	subsets := []struct {
		name string
		set  *cifar10.Subset
	}{
		{"train", m.TrainSet()},
		{"valid", m.ValidSet()},
		{"test", m.TestSet()},
	}

	counts := make([][]float64, len(subsets))
	fmt.Printf("%-12s", "class")
	for _, s := range subsets {
		fmt.Printf("%10s", s.name)
	}
	fmt.Println()
	for i, s := range subsets {
		counts[i] = classCounts(s.set)
	}
	for class := 0; class < cifar10.NumClasses; class++ {
		fmt.Printf("%-12s", cifar10.Names[class])
		for i := range subsets {
			fmt.Printf("%10.0f", counts[i][class])
		}
		fmt.Println()
	}
	fmt.Printf("%-12s", "total")
	for _, s := range subsets {
		fmt.Printf("%10d", s.set.Len())
	}
	fmt.Println()

	if *plotOut == "" {
		return
	}
	if err := plotDistribution(*plotOut, counts); err != nil {
		log.Fatalf("failed to plot class distribution: %v", err)
	}
	fmt.Printf("\nWrote class-distribution chart to %s\n", *plotOut)
}

// classCounts tallies how many examples of each class the subset holds.
func classCounts(s *cifar10.Subset) []float64 {
	counts := make([]float64, cifar10.NumClasses)
	for _, label := range s.Labels() {
		counts[label]++
	}
	return counts
}

// plotDistribution renders one bar group per class with one bar per subset.
func plotDistribution(outPath string, counts [][]float64) error {
	p := plot.New()
	p.Title.Text = "CIFAR-10 class distribution per split"
	p.Y.Label.Text = "examples"
	p.X.Tick.Label.Rotation = -0.6
	p.X.Tick.Label.XAlign = -0.2

	names := []string{"train", "valid", "test"}
	colors := []color.Color{
		color.RGBA{R: 60, G: 120, B: 216, A: 255},
		color.RGBA{R: 230, G: 160, B: 40, A: 255},
		color.RGBA{R: 70, G: 170, B: 90, A: 255},
	}
	w := vg.Points(7)
	for i, c := range counts {
		bars, err := plotter.NewBarChart(plotter.Values(c), w)
		if err != nil {
			return err
		}
		bars.LineStyle.Width = 0
		bars.Color = colors[i]
		bars.Offset = vg.Length(i-1) * w
		p.Add(bars)
		p.Legend.Add(names[i], bars)
	}
	p.Legend.Top = true
	p.NominalX(cifar10.Names...)

	return p.Save(9*vg.Inch, 4*vg.Inch, outPath)
}
