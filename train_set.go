package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// TrainSet Real images of shape (DataLength, height, width, channels)
type TrainSet struct {
	TrainData  *tensor.Dense
	DataLength int
}

// Batch Returns b-th batch of real images. Shape is (batchSize, height, width, channels)
func (ts *TrainSet) Batch(b, batchSize int) (*tensor.Dense, error) {
	start := b * batchSize
	end := start + batchSize
	if batchSize < 1 || start < 0 || end > ts.DataLength {
		return nil, fmt.Errorf("Batch #%d of size %d is out of range [0; %d)", b, batchSize, ts.DataLength)
	}
	view, err := ts.TrainData.Slice(tensor.S(start, end))
	if err != nil {
		return nil, errors.Wrap(err, "Can't slice train data")
	}
	batch := view.Materialize().(*tensor.Dense)
	if batch.Dims() != ts.TrainData.Dims() {
		// single-row slice drops the first dimension
		if err := batch.Reshape(append([]int{batchSize}, ts.TrainData.Shape()[1:]...)...); err != nil {
			return nil, errors.Wrap(err, "Can't reshape batch")
		}
	}
	return batch, nil
}
