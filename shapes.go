package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidImageLength Image height or width is not divisible by 2^depth
var ErrInvalidImageLength = errors.New("invalid image length")

// RecoverLength Returns spatial length which generator's dense projection is reshaped to.
// It is length / 2^depth and it must restore length exactly after depth doublings.
func RecoverLength(length, depth int) (int, error) {
	if depth < 1 {
		return 0, errors.Wrapf(ErrInvalidConfig, "depth must be >= 1, but got %d", depth)
	}
	scale := 1 << uint(depth)
	recovered := length / scale
	if recovered < 1 || recovered*scale != length {
		return 0, errors.Wrapf(ErrInvalidImageLength, "%d is not divisible by 2^%d", length, depth)
	}
	return recovered, nil
}

// UpsampleStage Output geometry of a single transposed convolution stage of Generator
type UpsampleStage struct {
	Channels int
	Height   int
	Width    int
	Kernel   int
	Stride   int
	// Normalized is false only for the final stage of pooled variant
	Normalized bool
}

// GeneratorPlan Shapes of every Generator's stage
//
// RecoverHeight, RecoverWidth - spatial size right after dense projection
// ProjectionChannels - channels right after dense projection
// DenseUnits - number of units of second dense layer (RecoverHeight*RecoverWidth*ProjectionChannels)
// Stages - upsampling stages. Last one produces image itself
//
type GeneratorPlan struct {
	RecoverHeight      int
	RecoverWidth       int
	ProjectionChannels int
	DenseUnits         int
	Stages             []UpsampleStage
}

// NewGeneratorPlan Derives Generator's shapes for provided config and image size
func NewGeneratorPlan(cfg Config, imgHeight, imgWidth int) (*GeneratorPlan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rh, err := RecoverLength(imgHeight, cfg.ConvDepth)
	if err != nil {
		return nil, errors.Wrap(err, "height")
	}
	rw, err := RecoverLength(imgWidth, cfg.ConvDepth)
	if err != nil {
		return nil, errors.Wrap(err, "width")
	}
	plan := GeneratorPlan{
		RecoverHeight:      rh,
		RecoverWidth:       rw,
		ProjectionChannels: cfg.FilterBase * (1 << uint(cfg.ConvDepth-1)),
		Stages:             make([]UpsampleStage, 0, cfg.ConvDepth),
	}
	plan.DenseUnits = rh * rw * plan.ProjectionChannels

	kernel := 4
	if cfg.Variant == VariantPooled {
		kernel = 3
	}
	for stage := cfg.ConvDepth; stage > 1; stage-- {
		channels := cfg.FilterBase * (1 << uint(stage-2))
		if cfg.Variant == VariantPooled {
			channels = cfg.FilterBase * (1 << uint(stage-1))
		}
		scale := 1 << uint(cfg.ConvDepth-stage+1)
		plan.Stages = append(plan.Stages, UpsampleStage{
			Channels:   channels,
			Height:     rh * scale,
			Width:      rw * scale,
			Kernel:     kernel,
			Stride:     2,
			Normalized: true,
		})
	}
	plan.Stages = append(plan.Stages, UpsampleStage{
		Channels:   cfg.ImageChannels,
		Height:     imgHeight,
		Width:      imgWidth,
		Kernel:     3,
		Stride:     2,
		Normalized: cfg.Variant != VariantPooled,
	})
	return &plan, nil
}

// DownsampleStage Output geometry of a single Discriminator's stage
type DownsampleStage struct {
	Channels int
	Height   int
	Width    int
	Kernel   int
	Stride   int
	Padding  int
	// Pooled means convolution keeps spatial size and max pooling halves it
	Pooled bool
}

// DiscriminatorPlan Shapes of every Discriminator's stage
type DiscriminatorPlan struct {
	Stages   []DownsampleStage
	Features int
}

// NewDiscriminatorPlan Derives Discriminator's shapes for provided config and image size
func NewDiscriminatorPlan(cfg Config, imgHeight, imgWidth int) (*DiscriminatorPlan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if imgHeight < 1 || imgWidth < 1 {
		return nil, errors.Wrapf(ErrInvalidImageLength, "image must be at least 1x1, but got %dx%d", imgHeight, imgWidth)
	}
	plan := DiscriminatorPlan{
		Stages: make([]DownsampleStage, 0, cfg.ConvDepth),
	}
	h, w := imgHeight, imgWidth
	channels := cfg.ImageChannels
	for i := 0; i < cfg.ConvDepth; i++ {
		stage := DownsampleStage{}
		switch cfg.Variant {
		case VariantPooled:
			stage = DownsampleStage{Channels: cfg.FilterBase, Kernel: 3, Stride: 1, Padding: 1, Pooled: true}
			// 3x3 stride 2 pad 1 pooling
			h, w = convOutLength(h, 3, 2, 1), convOutLength(w, 3, 2, 1)
		default:
			stage = DownsampleStage{Channels: cfg.FilterBase * (1 << uint(i)), Kernel: 4, Stride: 2, Padding: 1}
			h, w = convOutLength(h, 4, 2, 1), convOutLength(w, 4, 2, 1)
		}
		if h < 1 || w < 1 {
			return nil, errors.Wrap(ErrInvalidImageLength, fmt.Sprintf("stage #%d collapses image to %dx%d", i, h, w))
		}
		stage.Height, stage.Width = h, w
		channels = stage.Channels
		plan.Stages = append(plan.Stages, stage)
	}
	plan.Features = h * w * channels
	return &plan, nil
}

func convOutLength(in, kernel, stride, pad int) int {
	return (in+2*pad-kernel)/stride + 1
}

// transposedPadding Leading padding used by transposedConv2d for given kernel size.
// It matches SAME transposed convolution with stride 2: kernel-1 minus top padding of the forward SAME convolution.
// Gorgonia pads symmetrically, so trailing excess is sliced off by transposedConv2d.
func transposedPadding(kernel int) int {
	return kernel - 1 - (kernel-2)/2
}
