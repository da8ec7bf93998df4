package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// SpreadMatrix Returns (n, stride*n) matrix with ones at (i, stride*i).
// Multiplying a row of length n by it inserts stride-1 zeros after every element.
func SpreadMatrix(n, stride int) *tensor.Dense {
	data := make([]float64, n*stride*n)
	for i := 0; i < n; i++ {
		data[i*stride*n+stride*i] = 1
	}
	return tensor.New(tensor.WithShape(n, stride*n), tensor.WithBacking(data))
}

// newSpreadNode Constant node holding SpreadMatrix
func newSpreadNode(g *gorgonia.ExprGraph, n, stride int, name string) *gorgonia.Node {
	return gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(n, stride*n), gorgonia.WithName(name), gorgonia.WithValue(SpreadMatrix(n, stride)))
}

// zeroInsert Spreads NCHW input: (b, c, h, w) => (b, c, s*h, s*w), where x[.., i, j] lands on [.., s*i, s*j] and the rest is zero
func zeroInsert(x, spreadHeight, spreadWidth *gorgonia.Node) (*gorgonia.Node, error) {
	shp := x.Shape()
	if shp.Dims() != 4 {
		return nil, fmt.Errorf("Input must be 4D (NCHW), but got %v", shp)
	}
	b, c, h, w := shp[0], shp[1], shp[2], shp[3]
	if spreadHeight.Shape()[0] != h || spreadWidth.Shape()[0] != w {
		return nil, fmt.Errorf("Spread matrices %v and %v don't match input %v", spreadHeight.Shape(), spreadWidth.Shape(), shp)
	}
	sh, sw := spreadHeight.Shape()[1], spreadWidth.Shape()[1]

	rows, err := gorgonia.Reshape(x, tensor.Shape{b * c * h, w})
	if err != nil {
		return nil, errors.Wrap(err, "Can't flatten input rows")
	}
	wide, err := gorgonia.Mul(rows, spreadWidth)
	if err != nil {
		return nil, errors.Wrap(err, "Can't spread columns")
	}
	wide, err = gorgonia.Reshape(wide, tensor.Shape{b, c, h, sw})
	if err != nil {
		return nil, errors.Wrap(err, "Can't reshape spread columns")
	}
	cols, err := gorgonia.Transpose(wide, 0, 1, 3, 2)
	if err != nil {
		return nil, errors.Wrap(err, "Can't swap spatial axes")
	}
	cols, err = gorgonia.Reshape(cols, tensor.Shape{b * c * sw, h})
	if err != nil {
		return nil, errors.Wrap(err, "Can't flatten input columns")
	}
	tall, err := gorgonia.Mul(cols, spreadHeight)
	if err != nil {
		return nil, errors.Wrap(err, "Can't spread rows")
	}
	tall, err = gorgonia.Reshape(tall, tensor.Shape{b, c, sw, sh})
	if err != nil {
		return nil, errors.Wrap(err, "Can't reshape spread rows")
	}
	return gorgonia.Transpose(tall, 0, 1, 3, 2)
}

// transposedConv2d Learned upsampling of NCHW input to (outHeight, outWidth).
//
// Input is zero-inserted, padded by transposedPadding on each side and convolved with stride 1.
// Trailing rows and columns beyond the target are sliced off, so only leading padding matters:
// the result equals SAME transposed convolution with stride 2 for any kernel size.
//
func transposedConv2d(x, filter, spreadHeight, spreadWidth *gorgonia.Node, kernelHeight, kernelWidth, outHeight, outWidth int) (*gorgonia.Node, error) {
	if spreadHeight == nil || spreadWidth == nil {
		return nil, fmt.Errorf("Spread matrices are nil")
	}
	sparse, err := zeroInsert(x, spreadHeight, spreadWidth)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do zero insertion")
	}
	if sparse.Shape()[2] != outHeight || sparse.Shape()[3] != outWidth {
		return nil, fmt.Errorf("Zero insertion gives %v, but target spatial size is %dx%d", sparse.Shape(), outHeight, outWidth)
	}
	pad := []int{transposedPadding(kernelHeight), transposedPadding(kernelWidth)}
	conv, err := gorgonia.Conv2d(sparse, filter, tensor.Shape{kernelHeight, kernelWidth}, pad, []int{1, 1}, []int{1, 1})
	if err != nil {
		return nil, errors.Wrap(err, "Can't convolve[2D] zero-inserted input")
	}
	if conv.Shape()[2] == outHeight && conv.Shape()[3] == outWidth {
		return conv, nil
	}
	return gorgonia.Slice(conv, nil, nil, gorgonia.S(0, outHeight), gorgonia.S(0, outWidth))
}
