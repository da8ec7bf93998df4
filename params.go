package dcgan_go

import (
	"strings"

	"gorgonia.org/gorgonia"
)

func newWeight(g *gorgonia.ExprGraph, name string, shp ...int) *gorgonia.Node {
	return gorgonia.NewTensor(g, gorgonia.Float64, len(shp), gorgonia.WithShape(shp...), gorgonia.WithName(name), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
}

func newBias(g *gorgonia.ExprGraph, name string, units int) *gorgonia.Node {
	return gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, units), gorgonia.WithName(name), gorgonia.WithInit(gorgonia.Zeroes()))
}

func newBatchNorm(cfg Config) *BatchNormParams {
	return &BatchNormParams{
		Momentum: cfg.BatchNormMomentum,
		Epsilon:  cfg.BatchNormEpsilon,
	}
}

// PartitionByName Splits nodes into those whose name contains generatorKey and those whose name contains discriminatorKey.
// Nodes matching neither key are returned as rest.
// Model keeps its partitions by ownership, this helper is for callers holding bare node lists (e.g. graph inputs).
func PartitionByName(nodes gorgonia.Nodes, generatorKey, discriminatorKey string) (generator, discriminator, rest gorgonia.Nodes) {
	for _, n := range nodes {
		switch {
		case containsKey(n.Name(), generatorKey):
			generator = append(generator, n)
		case containsKey(n.Name(), discriminatorKey):
			discriminator = append(discriminator, n)
		default:
			rest = append(rest, n)
		}
	}
	return generator, discriminator, rest
}

func containsKey(name, key string) bool {
	return key != "" && strings.Contains(name, key)
}
