package dcgan_go

import (
	"fmt"
	"image/color"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gorgonia.org/tensor"
)

// NormRandDense Return reference to tensor.Dense filled with normally distributed float64 values
//
// batchSize - Simply batch size
// n - Number of elements in each batch (latent space size)
// Resulting dense will have batchSize*n elements
//
func NormRandDense(batchSize, n int) *tensor.Dense {
	data := make([]float64, batchSize*n)
	for i := range data {
		data[i] = rand.NormFloat64()
	}
	return tensor.New(tensor.WithShape(batchSize, n), tensor.WithBacking(data))
}

// UniformRandDense Return reference to tensor.Dense filled with pseudo-random float64 values in range [-1.0,1.0)
//
// batchSize - Simply batch size
// n - Number of elements in each batch (latent space size)
// Resulting dense will have batchSize*n elements
//
func UniformRandDense(batchSize, n int) *tensor.Dense {
	data := make([]float64, batchSize*n)
	for i := range data {
		data[i] = 2*rand.Float64() - 1
	}
	return tensor.New(tensor.WithShape(batchSize, n), tensor.WithBacking(data))
}

// LossHistory Losses of both parts collected during training
type LossHistory struct {
	Generator     []float64
	Discriminator []float64
}

// Append Adds losses of a single step
func (h *LossHistory) Append(generatorLoss, discriminatorLoss float64) {
	h.Generator = append(h.Generator, generatorLoss)
	h.Discriminator = append(h.Discriminator, discriminatorLoss)
}

// PlotLosses Plot chart of both losses over steps and save it to file (format is taken from extension)
func PlotLosses(history LossHistory, fname string) error {
	if len(history.Generator) != len(history.Discriminator) {
		return fmt.Errorf("Generator and Discriminator must have same number of losses, but Generator has %d and Discriminator has %d", len(history.Generator), len(history.Discriminator))
	}
	if len(history.Generator) == 0 {
		return fmt.Errorf("Nothing to plot")
	}
	p := plot.New()
	p.Title.Text = "DCGAN losses"
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Loss"
	p.Add(plotter.NewGrid())

	series := []struct {
		name   string
		values []float64
		color  color.RGBA
	}{
		{"generator", history.Generator, color.RGBA{R: 255, B: 128, A: 255}},
		{"discriminator", history.Discriminator, color.RGBA{G: 128, B: 255, A: 255}},
	}
	for _, s := range series {
		xys := make(plotter.XYs, len(s.values))
		for i, v := range s.values {
			xys[i].X = float64(i)
			xys[i].Y = v
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't init new line for %s", s.name))
		}
		line.Color = s.color
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	// Save the plot to a PNG file.
	if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}
