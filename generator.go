package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/gorgonia"
)

// GeneratorNet Abstraction for generator part of GAN.
// Dense projection of latent vector => reshape => sequence of transposed convolutions => image
//
// private - underlying sequence of layers
// plan - derived shapes of every stage
//
type GeneratorNet struct {
	private   *Network
	plan      *GeneratorPlan
	noiseDim  int
	batchSize int
	imgHeight int
	imgWidth  int
	channels  int
}

// NewGenerator Constructor for GeneratorNet
//
// g - graph to put learnables on
// cfg - hyperparameters
// batchSize - number of latent vectors in one batch
// noiseDim - latent vector length
// imgHeight, imgWidth - size of image to generate. Both must be divisible by 2^cfg.ConvDepth
//
func NewGenerator(g *gorgonia.ExprGraph, cfg Config, batchSize, noiseDim, imgHeight, imgWidth int) (*GeneratorNet, error) {
	if batchSize < 1 || noiseDim < 1 {
		return nil, errors.Wrapf(ErrInvalidConfig, "batch size and noise dimension must be positive, but got %d and %d", batchSize, noiseDim)
	}
	plan, err := NewGeneratorPlan(cfg, imgHeight, imgWidth)
	if err != nil {
		return nil, errors.Wrap(err, "[Generator]")
	}
	name := cfg.Name + "generator"

	stageActivation := Rectify
	if cfg.Variant == VariantPooled {
		stageActivation = Sigmoid
	}

	layers := []*Layer{
		{
			WeightNode: newWeight(g, name+"_dense_1_w", cfg.FCUnitNum, noiseDim),
			BiasNode:   newBias(g, name+"_dense_1_b", cfg.FCUnitNum),
			Type:       LayerLinear,
			Norm:       newBatchNorm(cfg),
			Activation: Rectify,
		},
		{
			WeightNode: newWeight(g, name+"_dense_2_w", plan.DenseUnits, cfg.FCUnitNum),
			BiasNode:   newBias(g, name+"_dense_2_b", plan.DenseUnits),
			Type:       LayerLinear,
			Activation: NoActivation,
		},
		{
			Type:        LayerReshape,
			ReshapeDims: []int{batchSize, plan.ProjectionChannels, plan.RecoverHeight, plan.RecoverWidth},
			Norm:        newBatchNorm(cfg),
			Activation:  Rectify,
		},
	}

	inChannels := plan.ProjectionChannels
	inHeight, inWidth := plan.RecoverHeight, plan.RecoverWidth
	for i, stage := range plan.Stages {
		final := i == len(plan.Stages)-1
		stageName := fmt.Sprintf("%s_deconv_%d", name, i)
		if final {
			stageName = name + "_deconv_final"
		}
		layer := &Layer{
			WeightNode:   newWeight(g, stageName+"_w", stage.Channels, inChannels, stage.Kernel, stage.Kernel),
			Type:         LayerTransposedConvolutional,
			KernelHeight: stage.Kernel,
			KernelWidth:  stage.Kernel,
			SpreadHeight: newSpreadNode(g, inHeight, stage.Stride, stageName+"_spread_h"),
			SpreadWidth:  newSpreadNode(g, inWidth, stage.Stride, stageName+"_spread_w"),
			OutHeight:    stage.Height,
			OutWidth:     stage.Width,
			Activation:   stageActivation,
		}
		if stage.Normalized {
			layer.Norm = newBatchNorm(cfg)
		}
		if final {
			layer.Activation = Tanh
			if cfg.Variant == VariantPooled {
				layer.Activation = NoActivation
			}
		}
		layers = append(layers, layer)
		inChannels, inHeight, inWidth = stage.Channels, stage.Height, stage.Width
	}
	// NCHW => NHWC
	layers = append(layers, &Layer{
		Type:       LayerTranspose,
		Axes:       []int{0, 2, 3, 1},
		Activation: NoActivation,
	})

	return &GeneratorNet{
		private: &Network{
			Name:   name,
			Layers: layers,
		},
		plan:      plan,
		noiseDim:  noiseDim,
		batchSize: batchSize,
		imgHeight: imgHeight,
		imgWidth:  imgWidth,
		channels:  cfg.ImageChannels,
	}, nil
}

// Out Returns reference to output node
func (net *GeneratorNet) Out() *gorgonia.Node {
	return net.private.Out()
}

// Plan Returns derived shapes of Generator
func (net *GeneratorNet) Plan() *GeneratorPlan {
	return net.plan
}

// Learnables Returns learnables nodes.
// Normalization parameters appear after feedforward has been initialized.
func (net *GeneratorNet) Learnables() gorgonia.Nodes {
	return net.private.Learnables()
}

// BatchNormOps Returns batch normalization operations
func (net *GeneratorNet) BatchNormOps() []*gorgonia.BatchNormOp {
	return net.private.BatchNormOps()
}

// Fwd Initializates feedforward for provided latent vectors of shape (batchSize, noiseDim).
// Output has shape (batchSize, imgHeight, imgWidth, channels)
func (net *GeneratorNet) Fwd(noise *gorgonia.Node) (*gorgonia.Node, error) {
	shp := noise.Shape()
	if shp.Dims() != 2 || shp[0] != net.batchSize || shp[1] != net.noiseDim {
		return nil, fmt.Errorf("[Generator] Noise must have shape (%d, %d), but got %v", net.batchSize, net.noiseDim, shp)
	}
	logger.WithFields(logrus.Fields{
		"name":    net.private.Name,
		"recover": fmt.Sprintf("%dx%d", net.plan.RecoverHeight, net.plan.RecoverWidth),
		"stages":  len(net.plan.Stages),
		"output":  fmt.Sprintf("%dx%dx%d", net.imgHeight, net.imgWidth, net.channels),
	}).Debug("Generator layers")
	out, err := net.private.Fwd(noise, net.batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "[Generator]")
	}
	return out, nil
}
