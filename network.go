package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// Network Abstraction for neural network.
//
// Layers - simple sequence of layers
// out - alias to activated output of last layer (last feedforward)
// calls - how many times feedforward has been initialized. Every call reuses the same learnables
//
type Network struct {
	Name   string
	Layers []*Layer
	out    *gorgonia.Node
	bnOps  []*gorgonia.BatchNormOp
	calls  int
}

// Out Returns reference to output node of the last feedforward
func (net *Network) Out() *gorgonia.Node {
	return net.out
}

// Learnables Returns learnables nodes
func (net *Network) Learnables() gorgonia.Nodes {
	learnables := make(gorgonia.Nodes, 0, 2*len(net.Layers))
	for _, l := range net.Layers {
		if l != nil {
			learnables = append(learnables, l.Learnables()...)
		}
	}
	return learnables
}

// BatchNormOps Returns batch normalization operations of every feedforward
func (net *Network) BatchNormOps() []*gorgonia.BatchNormOp {
	return net.bnOps
}

// Fwd Initializates feedforward for provided input and returns activated output of last layer.
// Could be called several times: the second and next calls share weights with the first one.
//
// input - Input node
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
func (net *Network) Fwd(input *gorgonia.Node, batchSize int) (*gorgonia.Node, error) {
	networkName := "network"
	if net.Name != "" {
		networkName = net.Name
	}
	if net.calls > 0 {
		networkName = fmt.Sprintf("%s_reuse%d", networkName, net.calls)
	}

	if len(net.Layers) == 0 {
		return nil, fmt.Errorf("Network must have one layer atleast")
	}

	lastActivatedLayer := input
	for i := range net.Layers {
		if net.Layers[i] == nil {
			return nil, fmt.Errorf("Network's layer #%d is nil", i)
		}
		if net.Layers[i].WeightNode == nil && !noWeightsAllowed(net.Layers[i].Type) {
			return nil, fmt.Errorf("Network's layer's #%d WeightNode is nil", i)
		}
		layerNonActivated, bnOp, err := net.Layers[i].Fwd(batchSize, lastActivatedLayer, fmt.Sprintf("%s_%d", networkName, i))
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("[Network, Layer #%d] Can't feedforward input before activation", i))
		}
		if bnOp != nil {
			net.bnOps = append(net.bnOps, bnOp)
		}
		activation := net.Layers[i].Activation
		if activation == nil {
			activation = NoActivation
		}
		layerActivated, err := activation(layerNonActivated)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't apply activation function to non-activated output of Network's layer #%d", i))
		}
		if layerActivated != layerNonActivated {
			gorgonia.WithName(fmt.Sprintf("%s_activated_%d", networkName, i))(layerActivated)
		}
		lastActivatedLayer = layerActivated
	}
	net.out = lastActivatedLayer
	net.calls++
	return net.out, nil
}
