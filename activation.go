package dcgan_go

import (
	"gorgonia.org/gorgonia"
)

// ActivationFunc Just an alias to Gorgonia'a api_gen.go - https://github.com/gorgonia/gorgonia/blob/master/api_gen.go#L1
type ActivationFunc func(a *gorgonia.Node) (*gorgonia.Node, error)

func NoActivation(a *gorgonia.Node) (*gorgonia.Node, error) { return a, nil }
func Tanh(a *gorgonia.Node) (*gorgonia.Node, error)         { return gorgonia.Tanh(a) }
func Sigmoid(a *gorgonia.Node) (*gorgonia.Node, error)      { return gorgonia.Sigmoid(a) }
func Rectify(a *gorgonia.Node) (*gorgonia.Node, error)      { return gorgonia.Rectify(a) }

// LeakyRectify Returns leaky ReLU activation: alpha*x below zero, identity above.
func LeakyRectify(alpha float64) ActivationFunc {
	return func(a *gorgonia.Node) (*gorgonia.Node, error) {
		return gorgonia.LeakyRelu(a, alpha)
	}
}
