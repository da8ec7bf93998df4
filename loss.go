package dcgan_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

type LossReduction uint16

const (
	LossReductionSum = LossReduction(iota)
	LossReductionMean
)

// SigmoidCrossEntropyWithLogits Binary cross entropy computed directly from logits.
// See ref. https://en.wikipedia.org/wiki/Cross_entropy#Cross-entropy_loss_function_and_logistic_regression
//
// Stable form is used: max(x, 0) - x*z + log(1 + exp(-|x|)), where x - logits, z - labels
// Default reduction is 'mean'
func SigmoidCrossEntropyWithLogits(logits, labels *gorgonia.Node, reduction ...LossReduction) (*gorgonia.Node, error) {
	relu, err := gorgonia.Rectify(logits)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do max(X, 0)")
	}
	hprod, err := gorgonia.HadamardProd(logits, labels)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (X.*Z)")
	}
	abs, err := gorgonia.Abs(logits)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do |X|")
	}
	negAbs, err := gorgonia.Neg(abs)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do -1*x")
	}
	softplus, err := gorgonia.Softplus(negAbs)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do log(1+exp(x))")
	}
	sub, err := gorgonia.Sub(relu, hprod)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x-y)")
	}
	loss, err := gorgonia.Add(sub, softplus)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x+y)")
	}
	return reduce(loss, reduction...)
}

func reduce(x *gorgonia.Node, reduction ...LossReduction) (*gorgonia.Node, error) {
	reductionDefault := LossReductionMean
	if len(reduction) != 0 {
		reductionDefault = reduction[0]
	}
	switch reductionDefault {
	case LossReductionSum:
		return gorgonia.Sum(x)
	case LossReductionMean:
		return gorgonia.Mean(x)
	default:
		return nil, fmt.Errorf("Reduction type %d is not supported", reductionDefault)
	}
}

// constantLike Returns node with the same shape as provided one filled with ones (or zeros)
func constantLike(a *gorgonia.Node, ones bool, name string) *gorgonia.Node {
	init := gorgonia.Zeroes()
	if ones {
		init = gorgonia.Ones()
	}
	return gorgonia.NewTensor(a.Graph(), a.Dtype(), a.Dims(), gorgonia.WithShape(a.Shape()...), gorgonia.WithName(name), gorgonia.WithInit(init))
}

// GeneratorLoss Generator wants Discriminator to classify generated images as real:
// BCE(fakeLogits, 1)
func GeneratorLoss(fakeLogits *gorgonia.Node, name string) (*gorgonia.Node, error) {
	ones := constantLike(fakeLogits, true, name+"_target")
	loss, err := SigmoidCrossEntropyWithLogits(fakeLogits, ones)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build generator loss")
	}
	gorgonia.WithName(name)(loss)
	return loss, nil
}

// DiscriminatorLoss Discriminator wants to classify generated images as fake and real ones as real:
// BCE(fakeLogits, 0) + BCE(trueLogits, 1)
func DiscriminatorLoss(fakeLogits, trueLogits *gorgonia.Node, name string) (*gorgonia.Node, error) {
	zeros := constantLike(fakeLogits, false, name+"_fake_target")
	fakeLoss, err := SigmoidCrossEntropyWithLogits(fakeLogits, zeros)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build discriminator loss on generated images")
	}
	gorgonia.WithName(name + "_fake")(fakeLoss)
	ones := constantLike(trueLogits, true, name+"_true_target")
	trueLoss, err := SigmoidCrossEntropyWithLogits(trueLogits, ones)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build discriminator loss on real images")
	}
	gorgonia.WithName(name + "_true")(trueLoss)
	loss, err := gorgonia.Add(fakeLoss, trueLoss)
	if err != nil {
		return nil, errors.Wrap(err, "Can't sum discriminator losses")
	}
	gorgonia.WithName(name)(loss)
	return loss, nil
}
