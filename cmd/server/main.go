package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"

	"imageclass/internal/classify"
	"imageclass/internal/handlers"
	"imageclass/internal/model"
)

func main() {
	parser := argparse.NewParser("imageclass-server", "Image classification HTTP service")
	modelFile := parser.String("m", "model", &argparse.Options{Help: "Path to .onnx model file", Default: "models/model.onnx"})
	metaFile := parser.String("d", "metadata", &argparse.Options{Help: "Path to model metadata JSON", Default: "models/model_metadata.json"})
	labelFile := parser.String("l", "labels", &argparse.Options{Help: "Path to class label file, one class per line", Default: "models/labels.txt"})
	port := parser.Int("p", "port", &argparse.Options{Help: "HTTP listen port", Default: 8080})
	timeoutSec := parser.Int("t", "timeout", &argparse.Options{Help: "Per-request inference timeout in seconds", Default: 30})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	meta, err := model.LoadMetadata(*metaFile)
	if err != nil {
		logger.Errorf("Failed to load model metadata: %v", err)
		os.Exit(1)
	}
	labels, err := model.LoadLabels(*labelFile)
	if err != nil {
		logger.Errorf("Failed to load labels: %v", err)
		os.Exit(1)
	}
	if err := model.ValidateLabels(labels, meta); err != nil {
		logger.Errorf("Label table rejected: %v", err)
		os.Exit(1)
	}

	engine := model.NewEngine(*modelFile, meta)
	defer engine.Close()

	pipeline := classify.NewPipeline(logger, engine, labels, meta.ImageSize,
		time.Duration(*timeoutSec)*time.Second,
		func(snap classify.Snapshot) {
			if snap.State == classify.StateResult {
				logger.Infof("Request %v classified as %v (score %.3f)",
					snap.Generation, snap.Result.Class, snap.Result.Score)
			}
		})

	handler := handlers.NewHandler(logger, pipeline, meta)

	addr := fmt.Sprintf(":%v", *port)
	logger.Infof("Model %v, %v classes, input %v, output %v",
		*modelFile, len(labels), meta.InputName, meta.OutputName)
	logger.Infof("Listening on %v", addr)
	if err := http.ListenAndServe(addr, handler.Router()); err != nil {
		logger.Errorf("Server failed: %v", err)
		os.Exit(1)
	}
}
