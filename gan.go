package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/gorgonia"
)

// DCGAN Convolutional GAN: Generator, Discriminator used twice with shared weights, losses and optimizers.
//
// Gorgonia takes gradients once per graph, so the model lives on two graphs:
// graph - provided graph: Generator, mirror of Discriminator (copied weights, not learnables) applied to real and generated images,
// both losses. Gradients of generator loss wrt Generator's learnables are taken here.
// discriminatorGraph - own graph: Discriminator applied to real and generated images (fed as inputs), discriminator loss
// and its gradients wrt Discriminator's learnables.
//
// Mirror is refreshed after every Discriminator's step.
//
type DCGAN struct {
	cfg   Config
	graph *gorgonia.ExprGraph

	generatorPart       *GeneratorNet
	discriminatorPart   *DiscriminatorNet
	discriminatorMirror *DiscriminatorNet

	images     *gorgonia.Node
	generated  *gorgonia.Node
	trueLogits *gorgonia.Node
	fakeLogits *gorgonia.Node

	generatorLoss     *gorgonia.Node
	discriminatorLoss *gorgonia.Node

	discriminatorGraph     *gorgonia.ExprGraph
	discriminatorReal      *gorgonia.Node
	discriminatorFake      *gorgonia.Node
	discriminatorMachine   gorgonia.VM
	generatorOptimizer     *Optimizer
	discriminatorOptimizer *Optimizer
}

// NewDCGAN Constructor for DCGAN. Nothing is put on the graph until Build is called
func NewDCGAN(g *gorgonia.ExprGraph, cfg Config) (*DCGAN, error) {
	if g == nil {
		return nil, fmt.Errorf("Graph is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &DCGAN{
		cfg:   cfg,
		graph: g,
	}, nil
}

// Build Builds the whole model for provided inputs
//
// noise - latent vectors of shape (batchSize, noiseDim)
// images - real images of shape (batchSize, height, width, channels)
//
// Height and width must be divisible by 2^ConvDepth, otherwise ErrInvalidImageLength is returned.
// Build could be done only once per DCGAN.
//
func (net *DCGAN) Build(noise, images *gorgonia.Node) error {
	if net.generatorPart != nil {
		return fmt.Errorf("DCGAN '%s' has been built already", net.cfg.Name)
	}
	if noise == nil || images == nil {
		return fmt.Errorf("Inputs must not be nil")
	}
	noiseShp, imgShp := noise.Shape(), images.Shape()
	if noiseShp.Dims() != 2 {
		return fmt.Errorf("Noise must be 2D (batch, noise), but got %v", noiseShp)
	}
	if imgShp.Dims() != 4 {
		return fmt.Errorf("Images must be 4D (batch, height, width, channels), but got %v", imgShp)
	}
	if imgShp[0] != noiseShp[0] {
		return fmt.Errorf("Noise and images must have the same batch size, but got %d and %d", noiseShp[0], imgShp[0])
	}
	if imgShp[3] != net.cfg.ImageChannels {
		return fmt.Errorf("Images must have %d channels, but got %d", net.cfg.ImageChannels, imgShp[3])
	}
	batchSize, noiseDim := noiseShp[0], noiseShp[1]
	imgHeight, imgWidth := imgShp[1], imgShp[2]

	log := logger.WithFields(logrus.Fields{
		"name":    net.cfg.Name,
		"variant": net.cfg.Variant,
		"depth":   net.cfg.ConvDepth,
	})

	generatorPart, err := NewGenerator(net.graph, net.cfg, batchSize, noiseDim, imgHeight, imgWidth)
	if err != nil {
		return err
	}
	discriminatorGraph := gorgonia.NewGraph()
	discriminatorPart, err := NewDiscriminator(discriminatorGraph, net.cfg, batchSize, imgHeight, imgWidth)
	if err != nil {
		return err
	}
	discriminatorReal := gorgonia.NewTensor(discriminatorGraph, gorgonia.Float64, 4, gorgonia.WithShape(imgShp.Clone()...), gorgonia.WithName(net.cfg.Name+"discriminator_real_input"))
	discriminatorFake := gorgonia.NewTensor(discriminatorGraph, gorgonia.Float64, 4, gorgonia.WithShape(imgShp.Clone()...), gorgonia.WithName(net.cfg.Name+"discriminator_fake_input"))

	log.Info("Build generator ...")
	generated, err := generatorPart.Fwd(noise)
	if err != nil {
		return err
	}
	log.Info("Build true discriminator ...")
	trueTrainLogits, err := discriminatorPart.Fwd(discriminatorReal)
	if err != nil {
		return err
	}
	log.Info("Build fake discriminator ...")
	fakeTrainLogits, err := discriminatorPart.Fwd(discriminatorFake)
	if err != nil {
		return err
	}
	discriminatorTrainLoss, err := DiscriminatorLoss(fakeTrainLogits, trueTrainLogits, net.cfg.Name+"discriminator_loss")
	if err != nil {
		return err
	}

	// Discriminator on the generator's graph
	discriminatorMirror, err := discriminatorPart.Mirror(net.graph, "_gan")
	if err != nil {
		return errors.Wrap(err, "[Discriminator]")
	}
	trueLogits, err := discriminatorMirror.Fwd(images)
	if err != nil {
		return err
	}
	fakeLogits, err := discriminatorMirror.Fwd(generated)
	if err != nil {
		return err
	}
	generatorLoss, err := GeneratorLoss(fakeLogits, net.cfg.Name+"generator_loss")
	if err != nil {
		return err
	}
	discriminatorLoss, err := DiscriminatorLoss(fakeLogits, trueLogits, net.cfg.Name+"discriminator_loss")
	if err != nil {
		return err
	}

	// Discriminator goes first by convention
	discriminatorOptimizer, err := NewAdamOptimizer(discriminatorTrainLoss, discriminatorPart.Learnables(), net.cfg.DiscriminatorLearnRate, net.cfg.Beta1, batchSize)
	if err != nil {
		return errors.Wrap(err, "[Discriminator optimizer]")
	}
	generatorOptimizer, err := NewAdamOptimizer(generatorLoss, generatorPart.Learnables(), net.cfg.GeneratorLearnRate, net.cfg.Beta1, batchSize)
	if err != nil {
		return errors.Wrap(err, "[Generator optimizer]")
	}

	net.generatorPart = generatorPart
	net.discriminatorPart = discriminatorPart
	net.discriminatorMirror = discriminatorMirror
	net.images = images
	net.generated = generated
	net.trueLogits = trueLogits
	net.fakeLogits = fakeLogits
	net.generatorLoss = generatorLoss
	net.discriminatorLoss = discriminatorLoss
	net.discriminatorGraph = discriminatorGraph
	net.discriminatorReal = discriminatorReal
	net.discriminatorFake = discriminatorFake
	net.discriminatorMachine = gorgonia.NewTapeMachine(discriminatorGraph, gorgonia.BindDualValues(discriminatorPart.Learnables()...))
	net.generatorOptimizer = generatorOptimizer
	net.discriminatorOptimizer = discriminatorOptimizer

	log.WithFields(logrus.Fields{
		"generator_learnables":     len(generatorOptimizer.Learnables),
		"discriminator_learnables": len(discriminatorOptimizer.Learnables),
	}).Info("DCGAN has been built")
	return nil
}

// Config Returns hyperparameters
func (net *DCGAN) Config() Config {
	return net.cfg
}

// Graph Returns expression graph Generator and both losses live on
func (net *DCGAN) Graph() *gorgonia.ExprGraph {
	return net.graph
}

// DiscriminatorGraph Returns expression graph Discriminator is trained on
func (net *DCGAN) DiscriminatorGraph() *gorgonia.ExprGraph {
	return net.discriminatorGraph
}

// Generator Returns generator part
func (net *DCGAN) Generator() *GeneratorNet {
	return net.generatorPart
}

// Discriminator Returns discriminator part
func (net *DCGAN) Discriminator() *DiscriminatorNet {
	return net.discriminatorPart
}

// DiscriminatorMirror Returns copy of Discriminator used on the generator's graph
func (net *DCGAN) DiscriminatorMirror() *DiscriminatorNet {
	return net.discriminatorMirror
}

// GeneratorOut Returns reference to generated images node
func (net *DCGAN) GeneratorOut() *gorgonia.Node {
	return net.generated
}

// TrueLogits Returns Discriminator's output for real images
func (net *DCGAN) TrueLogits() *gorgonia.Node {
	return net.trueLogits
}

// FakeLogits Returns Discriminator's output for generated images
func (net *DCGAN) FakeLogits() *gorgonia.Node {
	return net.fakeLogits
}

// GeneratorLoss Returns scalar generator loss
func (net *DCGAN) GeneratorLoss() *gorgonia.Node {
	return net.generatorLoss
}

// DiscriminatorLoss Returns scalar discriminator loss evaluated on the generator's graph
func (net *DCGAN) DiscriminatorLoss() *gorgonia.Node {
	return net.discriminatorLoss
}

// GeneratorOptimizer Returns minimization step of generator loss wrt generator learnables
func (net *DCGAN) GeneratorOptimizer() *Optimizer {
	return net.generatorOptimizer
}

// DiscriminatorOptimizer Returns minimization step of discriminator loss wrt discriminator learnables.
// Its cost lives on Discriminator's own graph.
func (net *DCGAN) DiscriminatorOptimizer() *Optimizer {
	return net.discriminatorOptimizer
}

// GeneratorLearnables Returns learnables owned by Generator
func (net *DCGAN) GeneratorLearnables() gorgonia.Nodes {
	if net.generatorPart == nil {
		return nil
	}
	return net.generatorPart.Learnables()
}

// DiscriminatorLearnables Returns learnables owned by Discriminator
func (net *DCGAN) DiscriminatorLearnables() gorgonia.Nodes {
	if net.discriminatorPart == nil {
		return nil
	}
	return net.discriminatorPart.Learnables()
}

// Learnables Returns all learnables: generator ones go first
func (net *DCGAN) Learnables() gorgonia.Nodes {
	gen := net.GeneratorLearnables()
	dis := net.DiscriminatorLearnables()
	learnables := make(gorgonia.Nodes, 0, len(gen)+len(dis))
	learnables = append(learnables, gen...)
	return append(learnables, dis...)
}

// BatchNormOps Returns batch normalization operations of both parts.
// Running statistics are updated during forward pass, before any of optimizer steps.
func (net *DCGAN) BatchNormOps() []*gorgonia.BatchNormOp {
	if net.generatorPart == nil {
		return nil
	}
	ops := append([]*gorgonia.BatchNormOp{}, net.generatorPart.BatchNormOps()...)
	ops = append(ops, net.discriminatorMirror.BatchNormOps()...)
	return append(ops, net.discriminatorPart.BatchNormOps()...)
}

// NewMachine Returns tape machine evaluating the generator's graph with gradients bound to Generator's learnables
func (net *DCGAN) NewMachine() (gorgonia.VM, error) {
	if net.generatorPart == nil {
		return nil, fmt.Errorf("DCGAN '%s' has not been built yet", net.cfg.Name)
	}
	return gorgonia.NewTapeMachine(net.graph, gorgonia.BindDualValues(net.generatorPart.Learnables()...)), nil
}

// DiscriminatorStep Updates Discriminator's learnables. Call it after VM run on the generator's graph:
// real images and generated ones are fed to Discriminator's graph, then mirror is refreshed
func (net *DCGAN) DiscriminatorStep() error {
	if net.discriminatorOptimizer == nil {
		return fmt.Errorf("DCGAN '%s' has not been built yet", net.cfg.Name)
	}
	realSamples, generatedSamples := net.images.Value(), net.generated.Value()
	if realSamples == nil || generatedSamples == nil {
		return fmt.Errorf("[Discriminator] Generator's graph must be evaluated before step")
	}
	if err := gorgonia.Let(net.discriminatorReal, realSamples); err != nil {
		return errors.Wrap(err, "[Discriminator] Can't feed real images")
	}
	if err := gorgonia.Let(net.discriminatorFake, generatedSamples); err != nil {
		return errors.Wrap(err, "[Discriminator] Can't feed generated images")
	}
	defer net.discriminatorMachine.Reset()
	if err := net.discriminatorMachine.RunAll(); err != nil {
		return errors.Wrap(err, "[Discriminator] Can't evaluate graph")
	}
	if err := net.discriminatorOptimizer.Step(); err != nil {
		return errors.Wrap(err, "[Discriminator]")
	}
	return errors.Wrap(net.discriminatorMirror.Sync(), "[Discriminator mirror]")
}

// GeneratorStep Updates Generator's learnables. Call it after VM run
func (net *DCGAN) GeneratorStep() error {
	if net.generatorOptimizer == nil {
		return fmt.Errorf("DCGAN '%s' has not been built yet", net.cfg.Name)
	}
	return errors.Wrap(net.generatorOptimizer.Step(), "[Generator]")
}

// Close Releases machine of Discriminator's graph
func (net *DCGAN) Close() error {
	if net.discriminatorMachine == nil {
		return nil
	}
	return net.discriminatorMachine.Close()
}
