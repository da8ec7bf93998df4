package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DiscriminatorNet Abstraction for discriminator part of GAN. It's simple neural network actually.
// Output is raw logit of shape (batchSize, 1): no sigmoid is applied.
//
// The same DiscriminatorNet is used for both real and generated images: every call of Fwd shares weights.
//
type DiscriminatorNet struct {
	private   *Network
	plan      *DiscriminatorPlan
	batchSize int
	imgHeight int
	imgWidth  int
	channels  int

	// Mirror only: nodes of original Discriminator and their copies (same order)
	sources gorgonia.Nodes
	copies  gorgonia.Nodes
}

// NewDiscriminator Constructor for DiscriminatorNet
//
// g - graph to put learnables on
// cfg - hyperparameters
// batchSize - number of images in one batch
// imgHeight, imgWidth - size of input images
//
func NewDiscriminator(g *gorgonia.ExprGraph, cfg Config, batchSize, imgHeight, imgWidth int) (*DiscriminatorNet, error) {
	if batchSize < 1 {
		return nil, errors.Wrapf(ErrInvalidConfig, "batch size must be positive, but got %d", batchSize)
	}
	plan, err := NewDiscriminatorPlan(cfg, imgHeight, imgWidth)
	if err != nil {
		return nil, errors.Wrap(err, "[Discriminator]")
	}
	name := cfg.Name + "discriminator"

	layers := []*Layer{
		{
			Type:        LayerReshape,
			ReshapeDims: []int{batchSize, imgHeight, imgWidth, cfg.ImageChannels},
		},
		// NHWC => NCHW
		{
			Type: LayerTranspose,
			Axes: []int{0, 3, 1, 2},
		},
	}
	inChannels := cfg.ImageChannels
	for i, stage := range plan.Stages {
		layers = append(layers, &Layer{
			WeightNode:   newWeight(g, fmt.Sprintf("%s_conv2d_%d_w", name, i), stage.Channels, inChannels, stage.Kernel, stage.Kernel),
			Type:         LayerConvolutional,
			KernelHeight: stage.Kernel,
			KernelWidth:  stage.Kernel,
			Padding:      []int{stage.Padding, stage.Padding},
			Stride:       []int{stage.Stride, stage.Stride},
			Dilation:     []int{1, 1},
			Norm:         newBatchNorm(cfg),
			Activation:   LeakyRectify(cfg.LeakyAlpha),
		})
		if stage.Pooled {
			layers = append(layers, &Layer{
				Type:         LayerMaxpool,
				KernelHeight: 3,
				KernelWidth:  3,
				Padding:      []int{1, 1},
				Stride:       []int{2, 2},
			})
		}
		inChannels = stage.Channels
	}
	layers = append(layers, &Layer{
		Type: LayerFlatten,
	})
	features := plan.Features
	if cfg.Variant == VariantPooled {
		layers = append(layers, &Layer{
			WeightNode: newWeight(g, name+"_dense_w", cfg.FCUnitNum, features),
			BiasNode:   newBias(g, name+"_dense_b", cfg.FCUnitNum),
			Type:       LayerLinear,
			Activation: Rectify,
		})
		features = cfg.FCUnitNum
	}
	layers = append(layers, &Layer{
		WeightNode: newWeight(g, name+"_dense_final_w", 1, features),
		BiasNode:   newBias(g, name+"_dense_final_b", 1),
		Type:       LayerLinear,
		Activation: NoActivation,
	})

	return &DiscriminatorNet{
		private: &Network{
			Name:   name,
			Layers: layers,
		},
		plan:      plan,
		batchSize: batchSize,
		imgHeight: imgHeight,
		imgWidth:  imgWidth,
		channels:  cfg.ImageChannels,
	}, nil
}

// Out Returns reference to output node of the last feedforward
func (net *DiscriminatorNet) Out() *gorgonia.Node {
	return net.private.Out()
}

// Plan Returns derived shapes of Discriminator
func (net *DiscriminatorNet) Plan() *DiscriminatorPlan {
	return net.plan
}

// Learnables Returns learnables nodes.
// Normalization parameters appear after first feedforward has been initialized. For a mirror these are the copied nodes.
func (net *DiscriminatorNet) Learnables() gorgonia.Nodes {
	return net.private.Learnables()
}

// BatchNormOps Returns batch normalization operations of every feedforward
func (net *DiscriminatorNet) BatchNormOps() []*gorgonia.BatchNormOp {
	return net.private.BatchNormOps()
}

// Fwd Initializates feedforward for provided images and returns logits of shape (batchSize, 1).
// Images could be either (batchSize, height, width, channels) or flattened (batchSize, height*width*channels)
func (net *DiscriminatorNet) Fwd(images *gorgonia.Node) (*gorgonia.Node, error) {
	shp := images.Shape()
	expected := net.batchSize * net.imgHeight * net.imgWidth * net.channels
	if shp.Dims() < 2 || shp.TotalSize() != expected || shp[0] != net.batchSize {
		return nil, fmt.Errorf("[Discriminator] Images must have shape (%d, %d, %d, %d), but got %v", net.batchSize, net.imgHeight, net.imgWidth, net.channels, shp)
	}
	logger.WithFields(logrus.Fields{
		"name":   net.private.Name,
		"reuse":  net.private.calls > 0,
		"stages": len(net.plan.Stages),
		"input":  fmt.Sprintf("%v", shp),
	}).Debug("Discriminator layers")
	out, err := net.private.Fwd(images, net.batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "[Discriminator]")
	}
	return out, nil
}

// Mirror Returns copy of Discriminator living on graph g.
// Copy's parameters are plain input nodes holding values of the original learnables: gradients are never taken wrt them
// and they are refreshed by Sync. Feedforward of the original must be initialized already, so normalization parameters exist.
//
// suffix - appended to names of copied nodes and to the name of the network
//
func (net *DiscriminatorNet) Mirror(g *gorgonia.ExprGraph, suffix string) (*DiscriminatorNet, error) {
	mirror := &DiscriminatorNet{
		private: &Network{
			Name:   net.private.Name + suffix,
			Layers: make([]*Layer, len(net.private.Layers)),
		},
		plan:      net.plan,
		batchSize: net.batchSize,
		imgHeight: net.imgHeight,
		imgWidth:  net.imgWidth,
		channels:  net.channels,
	}
	copyNode := func(n *gorgonia.Node) (*gorgonia.Node, error) {
		if n == nil {
			return nil, nil
		}
		val, err := cloneDense(n.Value())
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't copy value of '%s'", n.Name()))
		}
		c := gorgonia.NewTensor(g, n.Dtype(), n.Dims(), gorgonia.WithShape(n.Shape()...), gorgonia.WithName(n.Name()+suffix), gorgonia.WithValue(val))
		mirror.sources = append(mirror.sources, n)
		mirror.copies = append(mirror.copies, c)
		return c, nil
	}
	var err error
	for i, l := range net.private.Layers {
		if l.WeightNode == nil && !noWeightsAllowed(l.Type) {
			return nil, fmt.Errorf("Discriminator's Layer %d has nil weight node", i)
		}
		layer := *l
		if layer.WeightNode, err = copyNode(l.WeightNode); err != nil {
			return nil, err
		}
		if layer.BiasNode, err = copyNode(l.BiasNode); err != nil {
			return nil, err
		}
		if l.Norm != nil {
			if l.Norm.Scale == nil || l.Norm.Bias == nil {
				return nil, fmt.Errorf("Discriminator's Layer %d has no normalization parameters yet: feedforward must be initialized before mirroring", i)
			}
			norm := &BatchNormParams{Momentum: l.Norm.Momentum, Epsilon: l.Norm.Epsilon}
			if norm.Scale, err = copyNode(l.Norm.Scale); err != nil {
				return nil, err
			}
			if norm.Bias, err = copyNode(l.Norm.Bias); err != nil {
				return nil, err
			}
			layer.Norm = norm
		}
		mirror.private.Layers[i] = &layer
	}
	return mirror, nil
}

// Sync Copies current values of original learnables into mirror's nodes. No-op for non-mirror Discriminator
func (net *DiscriminatorNet) Sync() error {
	for i, src := range net.sources {
		val, err := cloneDense(src.Value())
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't copy value of '%s'", src.Name()))
		}
		if err = gorgonia.Let(net.copies[i], val); err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't update '%s'", net.copies[i].Name()))
		}
	}
	return nil
}

func cloneDense(v gorgonia.Value) (*tensor.Dense, error) {
	d, ok := v.(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("Expected *tensor.Dense value, but got %T", v)
	}
	return d.Clone().(*tensor.Dense), nil
}
