package dcgan_go

import (
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// Optimizer Minimization step of a single cost wrt its own set of learnables
//
// Solver - gradient-based solver
// Learnables - nodes which are updated by Step
// Gradients - symbolic gradients of cost wrt Learnables
//
type Optimizer struct {
	Solver     gorgonia.Solver
	Cost       *gorgonia.Node
	Learnables gorgonia.Nodes
	Gradients  gorgonia.Nodes
}

// NewAdamOptimizer Builds symbolic gradients of cost wrt learnables and Adam solver for them
func NewAdamOptimizer(cost *gorgonia.Node, learnables gorgonia.Nodes, learnRate, beta1 float64, batchSize int) (*Optimizer, error) {
	if len(learnables) == 0 {
		return nil, errors.New("Optimizer needs one learnable node atleast")
	}
	grads, err := gorgonia.Grad(cost, learnables...)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define gradients")
	}
	solver := gorgonia.NewAdamSolver(
		gorgonia.WithLearnRate(learnRate),
		gorgonia.WithBeta1(beta1),
		gorgonia.WithBatchSize(float64(batchSize)),
	)
	return &Optimizer{
		Solver:     solver,
		Cost:       cost,
		Learnables: learnables,
		Gradients:  grads,
	}, nil
}

// Step Updates learnables. Must be called after VM has computed values and gradients
func (opt *Optimizer) Step() error {
	if err := opt.Solver.Step(gorgonia.NodesToValueGrads(opt.Learnables)); err != nil {
		return errors.Wrap(err, "Can't do solver step")
	}
	return nil
}
