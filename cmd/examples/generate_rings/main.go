package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	dcgan "github.com/LdDl/dcgan-go"
	"github.com/sirupsen/logrus"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var (
	batchSize       = 4
	imgHeight       = 16
	imgWidth        = 16
	imgChannels     = 1
	latentSpaceSize = 16
	numSamples      = 64
	numEpoches      = 200
	evalPrint       = 20
	lossPlotFile    = "losses.png"
)

// genSyntheticData Rings of random radius centered in the middle of image. Values are in [-1; 1] to match tanh output
func genSyntheticData(numSamples int) *dcgan.TrainSet {
	data := make([]float64, 0, numSamples*imgHeight*imgWidth*imgChannels)
	cy, cx := float64(imgHeight-1)/2, float64(imgWidth-1)/2
	for i := 0; i < numSamples; i++ {
		radius := 3.0 + rand.Float64()*3.5
		for y := 0; y < imgHeight; y++ {
			for x := 0; x < imgWidth; x++ {
				dist := math.Hypot(float64(y)-cy, float64(x)-cx)
				v := -1.0
				if math.Abs(dist-radius) < 1.0 {
					v = 1.0
				}
				for c := 0; c < imgChannels; c++ {
					data = append(data, v)
				}
			}
		}
	}
	return &dcgan.TrainSet{
		TrainData:  tensor.New(tensor.WithShape(numSamples, imgHeight, imgWidth, imgChannels), tensor.WithBacking(data)),
		DataLength: numSamples,
	}
}

func printImage(data []float64) {
	for y := 0; y < imgHeight; y++ {
		fmt.Printf("\t")
		for x := 0; x < imgWidth; x++ {
			char := "x"
			if data[(y*imgWidth+x)*imgChannels] < 0 {
				char = " "
			}
			fmt.Printf("%s ", char)
		}
		fmt.Println()
	}
}

func loadConfig() dcgan.Config {
	// DCGAN_CONFIG could point to YAML/JSON/TOML file
	if path := os.Getenv("DCGAN_CONFIG"); path != "" {
		cfg, err := dcgan.LoadConfig(path)
		if err != nil {
			panic(err)
		}
		return cfg
	}
	cfg := dcgan.DefaultConfig()
	cfg.FilterBase = 8
	cfg.FCUnitNum = 64
	cfg.ConvDepth = 2
	cfg.Name = "rings_"
	return cfg
}

func main() {
	// Initialize seed with constant value to reproduce results
	rand.Seed(1337)

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	dcgan.SetLogger(logger)

	cfg := loadConfig()
	imgChannels = cfg.ImageChannels

	// Prepare synthetic data
	trainSet := genSyntheticData(numSamples)
	fmt.Println("Real ring sample:")
	printImage(trainSet.TrainData.Data().([]float64)[:imgHeight*imgWidth*imgChannels])

	g := gorgonia.NewGraph()
	inputNoise := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, latentSpaceSize), gorgonia.WithName("noise_input"))
	inputImages := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(batchSize, imgHeight, imgWidth, imgChannels), gorgonia.WithName("image_input"))

	model, err := dcgan.NewDCGAN(g, cfg)
	if err != nil {
		panic(err)
	}
	err = model.Build(inputNoise, inputImages)
	if err != nil {
		panic(err)
	}
	defer model.Close()

	/* Define variables for reading evaluation graph's output */
	var generatedSamples gorgonia.Value
	gorgonia.Read(model.GeneratorOut(), &generatedSamples)
	var costValGenerator gorgonia.Value
	gorgonia.Read(model.GeneratorLoss(), &costValGenerator)
	var costValDiscriminator gorgonia.Value
	gorgonia.Read(model.DiscriminatorLoss(), &costValDiscriminator)

	tm, err := model.NewMachine()
	if err != nil {
		panic(err)
	}
	defer tm.Close()

	history := dcgan.LossHistory{}
	batches := trainSet.DataLength / batchSize
	st := time.Now()
	for epoch := 0; epoch < numEpoches; epoch++ {
		for b := 0; b < batches; b++ {
			realSamples, err := trainSet.Batch(b, batchSize)
			if err != nil {
				panic(err)
			}
			err = gorgonia.Let(inputImages, realSamples)
			if err != nil {
				panic(err)
			}
			err = gorgonia.Let(inputNoise, dcgan.NormRandDense(batchSize, latentSpaceSize))
			if err != nil {
				panic(err)
			}
			// Forward pass + gradients of both losses
			err = tm.RunAll()
			if err != nil {
				panic(err)
			}
			// Discriminator goes first
			err = model.DiscriminatorStep()
			if err != nil {
				panic(err)
			}
			err = model.GeneratorStep()
			if err != nil {
				panic(err)
			}
			tm.Reset()
		}
		history.Append(costValGenerator.Data().(float64), costValDiscriminator.Data().(float64))
		if epoch%evalPrint == 0 {
			fmt.Printf("Epoch %d:\n", epoch)
			fmt.Printf("\tDiscriminator's loss: %v\n", costValDiscriminator)
			fmt.Printf("\tGenerator's loss: %v\n", costValGenerator)
			fmt.Printf("\tTaken time: %v\n", time.Since(st))
			st = time.Now()
			printImage(generatedSamples.Data().([]float64)[:imgHeight*imgWidth*imgChannels])
		}
	}

	fmt.Println("Generated sample after final epoch:")
	printImage(generatedSamples.Data().([]float64)[:imgHeight*imgWidth*imgChannels])

	err = dcgan.PlotLosses(history, lossPlotFile)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Losses have been saved to '%s'\n", lossPlotFile)
}
