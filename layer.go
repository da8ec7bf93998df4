package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer Just an alias to Weight+Bias+ActivationFunction combo
//
// Normalization is applied between layer's operation and its activation.
//
type Layer struct {
	WeightNode *gorgonia.Node
	BiasNode   *gorgonia.Node
	Activation ActivationFunc
	Type       LayerType
	Norm       *BatchNormParams

	KernelHeight int
	KernelWidth  int
	Padding      []int
	Stride       []int
	Dilation     []int
	ReshapeDims  []int
	Axes         []int

	// Transposed convolution only: constant zero-insertion matrices and target spatial size
	SpreadHeight *gorgonia.Node
	SpreadWidth  *gorgonia.Node
	OutHeight    int
	OutWidth     int
}

// BatchNormParams Parameters of batch normalization.
// Scale and Bias are created by gorgonia.BatchNorm on first feedforward and reused after.
type BatchNormParams struct {
	Scale    *gorgonia.Node
	Bias     *gorgonia.Node
	Momentum float64
	Epsilon  float64
}

type LayerType uint16

const (
	LayerLinear = LayerType(iota)
	LayerFlatten
	LayerConvolutional
	LayerTransposedConvolutional
	LayerMaxpool
	LayerReshape
	LayerTranspose
)

var (
	allowedNoWeights = []LayerType{LayerMaxpool, LayerFlatten, LayerReshape, LayerTranspose}
)

func noWeightsAllowed(checkType LayerType) bool {
	return checkLayerType(checkType, allowedNoWeights...)
}

func checkLayerType(checkType LayerType, t ...LayerType) bool {
	for _, typeOf := range t {
		if checkType == typeOf {
			return true
		}
	}
	return false
}

// Learnables Returns learnable nodes of layer (weight, bias and normalization ones)
func (l *Layer) Learnables() gorgonia.Nodes {
	learnables := make(gorgonia.Nodes, 0, 4)
	if l.WeightNode != nil {
		learnables = append(learnables, l.WeightNode)
	}
	if l.BiasNode != nil {
		learnables = append(learnables, l.BiasNode)
	}
	if l.Norm != nil {
		if l.Norm.Scale != nil {
			learnables = append(learnables, l.Norm.Scale)
		}
		if l.Norm.Bias != nil {
			learnables = append(learnables, l.Norm.Bias)
		}
	}
	return learnables
}

// Fwd Initializates feedforward for provided input. Returns non-activated (but normalized) output.
//
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
// name - name for output node
//
func (l *Layer) Fwd(batchSize int, input *gorgonia.Node, name string) (*gorgonia.Node, *gorgonia.BatchNormOp, error) {
	if l.WeightNode == nil && !noWeightsAllowed(l.Type) {
		return nil, nil, fmt.Errorf("WeightNode is nil")
	}
	var out *gorgonia.Node
	var err error
	switch l.Type {
	case LayerLinear:
		tOp, err := gorgonia.Transpose(l.WeightNode)
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't transpose weights")
		}
		out, err = gorgonia.Mul(input, tOp)
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't multiply input and weights")
		}
	case LayerConvolutional:
		out, err = gorgonia.Conv2d(input, l.WeightNode, tensor.Shape{l.KernelHeight, l.KernelWidth}, l.Padding, l.Stride, l.Dilation)
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't convolve[2D] input by kernel")
		}
	case LayerTransposedConvolutional:
		out, err = transposedConv2d(input, l.WeightNode, l.SpreadHeight, l.SpreadWidth, l.KernelHeight, l.KernelWidth, l.OutHeight, l.OutWidth)
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't do transposed convolution[2D]")
		}
	case LayerMaxpool:
		out, err = gorgonia.MaxPool2D(input, tensor.Shape{l.KernelHeight, l.KernelWidth}, l.Padding, l.Stride)
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't maxpool[2D] input by kernel")
		}
	case LayerFlatten:
		out, err = gorgonia.Reshape(input, tensor.Shape{batchSize, input.Shape().TotalSize() / batchSize})
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't flatten input")
		}
	case LayerReshape:
		out, err = gorgonia.Reshape(input, l.ReshapeDims)
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't reshape input")
		}
	case LayerTranspose:
		out, err = gorgonia.Transpose(input, l.Axes...)
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't transpose input")
		}
	default:
		return nil, nil, fmt.Errorf("Layer type '%d' (uint16) is not handled", l.Type)
	}
	gorgonia.WithName(name)(out)

	if l.BiasNode != nil {
		if batchSize < 2 {
			out, err = gorgonia.Add(out, l.BiasNode)
			if err != nil {
				return nil, nil, errors.Wrap(err, "Can't add bias to non-activated output")
			}
		} else {
			out, err = gorgonia.BroadcastAdd(out, l.BiasNode, nil, []byte{0})
			if err != nil {
				return nil, nil, errors.Wrap(err, fmt.Sprintf("Can't add [in broadcast term with batch_size = %d] bias to non-activated output", batchSize))
			}
		}
		gorgonia.WithName(name + "_biased")(out)
	}

	if l.Norm == nil {
		return out, nil, nil
	}
	return l.Norm.fwd(out, name)
}

// fwd Applies batch normalization. 2D input (batch, units) is treated as (batch, units, 1, 1)
func (bn *BatchNormParams) fwd(input *gorgonia.Node, name string) (*gorgonia.Node, *gorgonia.BatchNormOp, error) {
	var err error
	shp := input.Shape().Clone()
	x := input
	if shp.Dims() == 2 {
		x, err = gorgonia.Reshape(input, tensor.Shape{shp[0], shp[1], 1, 1})
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't reshape dense output for normalization")
		}
		gorgonia.WithName(name + "_4d")(x)
	}
	if x.Shape().Dims() != 4 {
		return nil, nil, fmt.Errorf("Normalization expects 2D or 4D input, but got %v", shp)
	}
	normalized, scale, bias, op, err := gorgonia.BatchNorm(x, bn.Scale, bn.Bias, bn.Momentum, bn.Epsilon)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't apply batch normalization")
	}
	bn.Scale, bn.Bias = scale, bias
	gorgonia.WithName(name + "_normalized")(normalized)
	if shp.Dims() == 2 {
		normalized, err = gorgonia.Reshape(normalized, shp)
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't reshape normalized output back")
		}
	}
	return normalized, op, nil
}
