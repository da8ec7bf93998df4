package dcgan_go

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ErrInvalidConfig Hyperparameters can't produce a network
var ErrInvalidConfig = errors.New("invalid config")

// Variant Architecture variant of both subnetworks
type Variant string

const (
	// VariantDCGAN Strided convolutions in Discriminator, 4x4 transposed convolutions in Generator
	VariantDCGAN = Variant("dcgan")
	// VariantPooled Convolution + max pooling in Discriminator with extra dense hidden layer
	VariantPooled = Variant("pooled")
)

// Config Hyperparameters of DCGAN. It is not changed after the model has been created.
type Config struct {
	FilterBase    int     `mapstructure:"filter_base"`
	FCUnitNum     int     `mapstructure:"fc_unit_num"`
	ConvDepth     int     `mapstructure:"conv_depth"`
	PenaltyFactor float64 `mapstructure:"penalty_factor"`
	ImageChannels int     `mapstructure:"image_channels"`
	Name          string  `mapstructure:"name"`
	Variant       Variant `mapstructure:"variant"`

	LeakyAlpha        float64 `mapstructure:"leaky_alpha"`
	BatchNormMomentum float64 `mapstructure:"batchnorm_momentum"`
	BatchNormEpsilon  float64 `mapstructure:"batchnorm_epsilon"`

	DiscriminatorLearnRate float64 `mapstructure:"discriminator_learn_rate"`
	GeneratorLearnRate     float64 `mapstructure:"generator_learn_rate"`
	Beta1                  float64 `mapstructure:"beta1"`
}

// DefaultConfig Returns hyperparameters of classic DCGAN for 64x64 grayscale images
func DefaultConfig() Config {
	return Config{
		FilterBase:    32,
		FCUnitNum:     1024,
		ConvDepth:     4,
		PenaltyFactor: 10.0,
		ImageChannels: 1,
		Name:          "wgan_",
		Variant:       VariantDCGAN,

		LeakyAlpha:        0.2,
		BatchNormMomentum: 0.9,
		BatchNormEpsilon:  1e-5,

		DiscriminatorLearnRate: 0.0002,
		GeneratorLearnRate:     0.0005,
		Beta1:                  0.5,
	}
}

// Validate Checks that hyperparameters are usable for graph construction
func (cfg Config) Validate() error {
	if cfg.ConvDepth < 1 {
		return errors.Wrapf(ErrInvalidConfig, "conv depth must be >= 1, but got %d", cfg.ConvDepth)
	}
	if cfg.FilterBase <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "filter base must be > 0, but got %d", cfg.FilterBase)
	}
	if cfg.FCUnitNum <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "number of dense units must be > 0, but got %d", cfg.FCUnitNum)
	}
	if cfg.ImageChannels <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "number of image channels must be > 0, but got %d", cfg.ImageChannels)
	}
	switch cfg.Variant {
	case VariantDCGAN, VariantPooled:
	default:
		return errors.Wrapf(ErrInvalidConfig, "variant '%s' is not handled", cfg.Variant)
	}
	return nil
}

// LoadConfig Reads config from file (any format viper understands). Empty path means defaults + environment only.
// Environment variables are prefixed with DCGAN, e.g. DCGAN_CONV_DEPTH=3
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}
	v.SetEnvPrefix("DCGAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("filter_base", cfg.FilterBase)
	v.SetDefault("fc_unit_num", cfg.FCUnitNum)
	v.SetDefault("conv_depth", cfg.ConvDepth)
	v.SetDefault("penalty_factor", cfg.PenaltyFactor)
	v.SetDefault("image_channels", cfg.ImageChannels)
	v.SetDefault("name", cfg.Name)
	v.SetDefault("variant", string(cfg.Variant))
	v.SetDefault("leaky_alpha", cfg.LeakyAlpha)
	v.SetDefault("batchnorm_momentum", cfg.BatchNormMomentum)
	v.SetDefault("batchnorm_epsilon", cfg.BatchNormEpsilon)
	v.SetDefault("discriminator_learn_rate", cfg.DiscriminatorLearnRate)
	v.SetDefault("generator_learn_rate", cfg.GeneratorLearnRate)
	v.SetDefault("beta1", cfg.Beta1)

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return cfg, errors.Wrap(err, fmt.Sprintf("Can't read config file '%s'", path))
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "Can't decode config")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
