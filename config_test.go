package dcgan_go

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 32, cfg.FilterBase)
	assert.Equal(t, 1024, cfg.FCUnitNum)
	assert.Equal(t, 4, cfg.ConvDepth)
	assert.Equal(t, 10.0, cfg.PenaltyFactor)
	assert.Equal(t, 1, cfg.ImageChannels)
	assert.Equal(t, "wgan_", cfg.Name)
	assert.Equal(t, VariantDCGAN, cfg.Variant)
	assert.Equal(t, 0.0002, cfg.DiscriminatorLearnRate)
	assert.Equal(t, 0.0005, cfg.GeneratorLearnRate)
	assert.Equal(t, 0.5, cfg.Beta1)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"zero depth":       func(c *Config) { c.ConvDepth = 0 },
		"negative depth":   func(c *Config) { c.ConvDepth = -2 },
		"zero filters":     func(c *Config) { c.FilterBase = 0 },
		"zero dense units": func(c *Config) { c.FCUnitNum = 0 },
		"zero channels":    func(c *Config) { c.ImageChannels = 0 },
		"unknown variant":  func(c *Config) { c.Variant = Variant("wgan-gp") },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		err := cfg.Validate()
		assert.True(t, errors.Is(err, ErrInvalidConfig), "%s: got %v", name, err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dcgan.yaml")
	content := []byte(`filter_base: 16
conv_depth: 3
image_channels: 3
name: faces_
variant: pooled
generator_learn_rate: 0.001
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.FilterBase)
	assert.Equal(t, 3, cfg.ConvDepth)
	assert.Equal(t, 3, cfg.ImageChannels)
	assert.Equal(t, "faces_", cfg.Name)
	assert.Equal(t, VariantPooled, cfg.Variant)
	assert.Equal(t, 0.001, cfg.GeneratorLearnRate)
	// untouched values stay default
	assert.Equal(t, 1024, cfg.FCUnitNum)
	assert.Equal(t, 0.0002, cfg.DiscriminatorLearnRate)
	assert.Equal(t, 0.5, cfg.Beta1)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DCGAN_CONV_DEPTH", "2")
	t.Setenv("DCGAN_NAME", "env_")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.ConvDepth)
	assert.Equal(t, "env_", cfg.Name)
	assert.Equal(t, 32, cfg.FilterBase)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dcgan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("conv_depth: 0\n"), 0o600))
	_, err := LoadConfig(path)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
