package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"

	"imageclass/internal/classify"
	"imageclass/internal/model"
	"imageclass/internal/preprocess"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("classify", "Classify an image file with an ONNX model")
	input := parser.String("i", "input", &argparse.Options{Help: "Input image file", Required: true})
	modelFile := parser.String("m", "model", &argparse.Options{Help: "Path to .onnx model file", Required: true})
	metaFile := parser.String("d", "metadata", &argparse.Options{Help: "Path to model metadata JSON", Required: true})
	labelFile := parser.String("l", "labels", &argparse.Options{Help: "Path to class label file", Required: true})
	timeoutSec := parser.Int("t", "timeout", &argparse.Options{Help: "Inference timeout in seconds", Default: 30})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, _ := logs.NewLog()

	meta, err := model.LoadMetadata(*metaFile)
	check(err)
	labels, err := model.LoadLabels(*labelFile)
	check(err)
	check(model.ValidateLabels(labels, meta))

	engine := model.NewEngine(*modelFile, meta)
	defer engine.Close()

	pipeline := classify.NewPipeline(logger, engine, labels, meta.ImageSize,
		time.Duration(*timeoutSec)*time.Second, nil)

	f, err := os.Open(*input)
	check(err)
	img, err := preprocess.DecodeImage(f)
	f.Close()
	check(err)

	result, err := pipeline.ClassifyImage(context.Background(), img)
	check(err)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	check(encoder.Encode(result))
}
