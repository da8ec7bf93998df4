package dcgan_go

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.ConvDepth = 2
	cfg.FilterBase = 4
	cfg.FCUnitNum = 16
	return cfg
}

func buildInputs(g *gorgonia.ExprGraph, prefix string, batchSize, noiseDim, height, width, channels int) (*gorgonia.Node, *gorgonia.Node) {
	noise := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, noiseDim), gorgonia.WithName(prefix+"noise"))
	images := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(batchSize, height, width, channels), gorgonia.WithName(prefix+"images"))
	return noise, images
}

func TestDCGANBuild(t *testing.T) {
	cfg := smallConfig()
	g := gorgonia.NewGraph()
	noise, images := buildInputs(g, "", 2, 10, 16, 16, 1)

	model, err := NewDCGAN(g, cfg)
	require.NoError(t, err)
	require.NoError(t, model.Build(noise, images))

	assert.Equal(t, tensor.Shape{2, 16, 16, 1}, model.GeneratorOut().Shape())
	assert.Equal(t, tensor.Shape{2, 1}, model.TrueLogits().Shape())
	assert.Equal(t, tensor.Shape{2, 1}, model.FakeLogits().Shape())
	assert.True(t, model.GeneratorLoss().IsScalar())
	assert.True(t, model.DiscriminatorLoss().IsScalar())
	assert.Equal(t, "wgan_generator_loss", model.GeneratorLoss().Name())
	assert.Equal(t, "wgan_discriminator_loss", model.DiscriminatorLoss().Name())
	assert.Same(t, g, model.Graph())
	assert.NotSame(t, g, model.DiscriminatorGraph())
	assert.Equal(t, cfg, model.Config())
	// generator + mirror called twice + discriminator called twice
	assert.Len(t, model.BatchNormOps(), 4+2*2+2*2)
	require.NoError(t, model.Close())
}

func TestDCGANParameterPartition(t *testing.T) {
	for _, variant := range []Variant{VariantDCGAN, VariantPooled} {
		cfg := smallConfig()
		cfg.Variant = variant
		g := gorgonia.NewGraph()
		noise, images := buildInputs(g, "", 2, 10, 8, 8, 1)
		model, err := NewDCGAN(g, cfg)
		require.NoError(t, err)
		require.NoError(t, model.Build(noise, images))

		gen := model.GeneratorLearnables()
		dis := model.DiscriminatorLearnables()
		require.NotEmpty(t, gen)
		require.NotEmpty(t, dis)

		seen := make(map[*gorgonia.Node]bool, len(gen)+len(dis))
		for _, n := range gen {
			seen[n] = true
		}
		for _, n := range dis {
			assert.False(t, seen[n], "%s belongs to both parts", n.Name())
			seen[n] = true
		}
		all := model.Learnables()
		assert.Len(t, all, len(gen)+len(dis))
		for _, n := range all {
			assert.True(t, seen[n])
		}

		assert.Equal(t, gen, model.GeneratorOptimizer().Learnables)
		assert.Equal(t, dis, model.DiscriminatorOptimizer().Learnables)
		assert.Len(t, model.GeneratorOptimizer().Gradients, len(gen))
		assert.Len(t, model.DiscriminatorOptimizer().Gradients, len(dis))
		assert.Same(t, model.GeneratorLoss(), model.GeneratorOptimizer().Cost)
		assert.True(t, model.DiscriminatorOptimizer().Cost.IsScalar())
		assert.Same(t, model.DiscriminatorGraph(), model.DiscriminatorOptimizer().Cost.Graph())

		// copies of discriminator weights are never optimized
		mirrored := model.DiscriminatorMirror().Learnables()
		require.Len(t, mirrored, len(dis))
		for i, n := range mirrored {
			assert.False(t, seen[n], "%s is a copy but is optimized", n.Name())
			assert.Equal(t, dis[i].Name()+"_gan", n.Name())
			assert.Same(t, g, n.Graph())
		}
		require.NoError(t, model.Close())
	}
}

func TestDCGANLearnablesCount(t *testing.T) {
	g := gorgonia.NewGraph()
	noise, images := buildInputs(g, "", 2, 10, 8, 8, 1)
	model, err := NewDCGAN(g, smallConfig())
	require.NoError(t, err)
	require.NoError(t, model.Build(noise, images))
	assert.Len(t, model.GeneratorLearnables(), 14)
	assert.Len(t, model.DiscriminatorLearnables(), 8)
}

func TestDCGANSharedGraph(t *testing.T) {
	g := gorgonia.NewGraph()

	first := smallConfig()
	first.Name = "first_"
	noise, images := buildInputs(g, first.Name, 2, 10, 8, 8, 1)
	firstModel, err := NewDCGAN(g, first)
	require.NoError(t, err)
	require.NoError(t, firstModel.Build(noise, images))

	second := smallConfig()
	second.Name = "second_"
	noise, images = buildInputs(g, second.Name, 2, 10, 8, 8, 1)
	secondModel, err := NewDCGAN(g, second)
	require.NoError(t, err)
	require.NoError(t, secondModel.Build(noise, images))

	seen := make(map[*gorgonia.Node]bool)
	for _, n := range firstModel.Learnables() {
		seen[n] = true
	}
	for _, n := range secondModel.Learnables() {
		assert.False(t, seen[n], "%s is shared between models", n.Name())
	}
}

func TestDCGANBuildErrors(t *testing.T) {
	cfg := smallConfig()
	cfg.ConvDepth = 3

	g := gorgonia.NewGraph()
	noise, images := buildInputs(g, "", 2, 10, 20, 16, 1)
	model, err := NewDCGAN(g, cfg)
	require.NoError(t, err)
	err = model.Build(noise, images)
	assert.True(t, errors.Is(err, ErrInvalidImageLength), "got %v", err)

	g = gorgonia.NewGraph()
	noise, images = buildInputs(g, "", 2, 10, 16, 16, 3)
	model, err = NewDCGAN(g, cfg)
	require.NoError(t, err)
	assert.Error(t, model.Build(noise, images), "channels mismatch")

	g = gorgonia.NewGraph()
	noise, _ = buildInputs(g, "", 2, 10, 16, 16, 1)
	_, images = buildInputs(g, "other_", 3, 10, 16, 16, 1)
	model, err = NewDCGAN(g, cfg)
	require.NoError(t, err)
	assert.Error(t, model.Build(noise, images), "batch size mismatch")

	g = gorgonia.NewGraph()
	model, err = NewDCGAN(g, cfg)
	require.NoError(t, err)
	assert.Error(t, model.Build(nil, nil))
}

func TestDCGANBuildOnce(t *testing.T) {
	g := gorgonia.NewGraph()
	noise, images := buildInputs(g, "", 2, 10, 8, 8, 1)
	model, err := NewDCGAN(g, smallConfig())
	require.NoError(t, err)
	require.NoError(t, model.Build(noise, images))
	assert.Error(t, model.Build(noise, images))
}

func TestDCGANNotBuilt(t *testing.T) {
	model, err := NewDCGAN(gorgonia.NewGraph(), smallConfig())
	require.NoError(t, err)
	assert.Empty(t, model.Learnables())
	assert.Nil(t, model.BatchNormOps())
	_, err = model.NewMachine()
	assert.Error(t, err)
	assert.Error(t, model.DiscriminatorStep())
	assert.Error(t, model.GeneratorStep())
	assert.NoError(t, model.Close())

	_, err = NewDCGAN(nil, smallConfig())
	assert.Error(t, err)
	bad := smallConfig()
	bad.ConvDepth = 0
	_, err = NewDCGAN(gorgonia.NewGraph(), bad)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func snapshot(nodes gorgonia.Nodes) [][]float64 {
	out := make([][]float64, len(nodes))
	for i, n := range nodes {
		out[i] = append([]float64{}, n.Value().Data().([]float64)...)
	}
	return out
}

func TestDCGANTrainingStep(t *testing.T) {
	batchSize, noiseDim := 2, 10
	g := gorgonia.NewGraph()
	noise, images := buildInputs(g, "", batchSize, noiseDim, 8, 8, 1)
	model, err := NewDCGAN(g, smallConfig())
	require.NoError(t, err)
	require.NoError(t, model.Build(noise, images))
	defer model.Close()

	var genLoss, disLoss gorgonia.Value
	gorgonia.Read(model.GeneratorLoss(), &genLoss)
	gorgonia.Read(model.DiscriminatorLoss(), &disLoss)
	tm, err := model.NewMachine()
	require.NoError(t, err)
	defer tm.Close()

	realBatch := UniformRandDense(batchSize, 8*8*1)
	require.NoError(t, realBatch.Reshape(batchSize, 8, 8, 1))
	require.NoError(t, gorgonia.Let(images, realBatch))
	require.NoError(t, gorgonia.Let(noise, NormRandDense(batchSize, noiseDim)))
	require.NoError(t, tm.RunAll())

	for _, v := range []gorgonia.Value{genLoss, disLoss} {
		require.NotNil(t, v)
		loss := v.Data().(float64)
		assert.False(t, math.IsNaN(loss) || math.IsInf(loss, 0), "loss is %v", loss)
		assert.GreaterOrEqual(t, loss, 0.0)
	}

	genBefore := snapshot(model.GeneratorLearnables())
	disBefore := snapshot(model.DiscriminatorLearnables())

	require.NoError(t, model.DiscriminatorStep())
	disAfter := snapshot(model.DiscriminatorLearnables())
	assert.Equal(t, genBefore, snapshot(model.GeneratorLearnables()))
	assert.NotEqual(t, disBefore, disAfter)
	// copies follow updated discriminator
	assert.Equal(t, disAfter, snapshot(model.DiscriminatorMirror().Learnables()))

	require.NoError(t, model.GeneratorStep())
	assert.NotEqual(t, genBefore, snapshot(model.GeneratorLearnables()))
	assert.Equal(t, disAfter, snapshot(model.DiscriminatorLearnables()))

	// next iteration runs on refreshed weights
	tm.Reset()
	require.NoError(t, gorgonia.Let(noise, NormRandDense(batchSize, noiseDim)))
	require.NoError(t, tm.RunAll())
	require.NoError(t, model.DiscriminatorStep())
	require.NoError(t, model.GeneratorStep())
}

func TestDCGANDiscriminatorStepBeforeRun(t *testing.T) {
	g := gorgonia.NewGraph()
	noise, images := buildInputs(g, "", 2, 10, 8, 8, 1)
	model, err := NewDCGAN(g, smallConfig())
	require.NoError(t, err)
	require.NoError(t, model.Build(noise, images))
	defer model.Close()
	assert.Error(t, model.DiscriminatorStep())
}

func TestPartitionByName(t *testing.T) {
	g := gorgonia.NewGraph()
	nodes := gorgonia.Nodes{
		gorgonia.NewScalar(g, gorgonia.Float64, gorgonia.WithName("wgan_generator_dense_1_w")),
		gorgonia.NewScalar(g, gorgonia.Float64, gorgonia.WithName("wgan_discriminator_conv2d_0_w")),
		gorgonia.NewScalar(g, gorgonia.Float64, gorgonia.WithName("wgan_generator_deconv_final_w")),
		gorgonia.NewScalar(g, gorgonia.Float64, gorgonia.WithName("noise")),
	}
	gen, dis, rest := PartitionByName(nodes, "generator", "discriminator")
	assert.Equal(t, gorgonia.Nodes{nodes[0], nodes[2]}, gen)
	assert.Equal(t, gorgonia.Nodes{nodes[1]}, dis)
	assert.Equal(t, gorgonia.Nodes{nodes[3]}, rest)

	gen, dis, rest = PartitionByName(nodes, "", "")
	assert.Empty(t, gen)
	assert.Empty(t, dis)
	assert.Len(t, rest, 4)
}

func TestPartitionByNameMatchesOwnership(t *testing.T) {
	g := gorgonia.NewGraph()
	noise, images := buildInputs(g, "", 2, 10, 8, 8, 1)
	model, err := NewDCGAN(g, smallConfig())
	require.NoError(t, err)
	require.NoError(t, model.Build(noise, images))

	// convolution kernels only: normalization parameters are named by gorgonia
	weights := gorgonia.Nodes{}
	for _, n := range model.Learnables() {
		if n.Dims() == 4 && n.Shape()[2] > 1 {
			weights = append(weights, n)
		}
	}
	require.NotEmpty(t, weights)
	owned := make(map[*gorgonia.Node]string)
	for _, n := range model.GeneratorLearnables() {
		owned[n] = "generator"
	}
	for _, n := range model.DiscriminatorLearnables() {
		owned[n] = "discriminator"
	}
	gen, dis, rest := PartitionByName(weights, "wgan_generator", "wgan_discriminator")
	assert.Empty(t, rest)
	assert.Len(t, gen, 2)
	assert.Len(t, dis, 2)
	for _, n := range gen {
		assert.Equal(t, "generator", owned[n], n.Name())
	}
	for _, n := range dis {
		assert.Equal(t, "discriminator", owned[n], n.Name())
	}
}
