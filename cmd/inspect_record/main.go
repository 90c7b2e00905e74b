package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/TheMatrixLab/caffe/internal/blob"
	"github.com/TheMatrixLab/caffe/internal/config"
	"github.com/TheMatrixLab/caffe/internal/device"
	"github.com/TheMatrixLab/caffe/internal/logger"
	"github.com/TheMatrixLab/caffe/internal/record"
)

func main() {
	recordPath := flag.String("file", "", "Path to a persisted tensor record")
	logLevel := flag.String("log-level", "WARN", "Log level (DEBUG, INFO, WARN, ERROR)")
	logFormat := flag.String("log-format", "console", "Log format (console or json)")
	stats := flag.Bool("stats", true, "Compute value statistics for arithmetic kinds")
	flag.Parse()

	cfg := config.Default()
	cfg.LogLevel = *logLevel
	cfg.LogFormat = *logFormat
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if *recordPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: inspect_record -file <record>")
		os.Exit(2)
	}

	data, err := os.ReadFile(*recordPath)
	if err != nil {
		log.Fatalf("Failed to read record: %v", err)
	}
	r, err := record.Decode(data)
	if err != nil {
		log.Fatalf("Failed to decode record: %v", err)
	}

	fmt.Printf("Record: %s (%d bytes)\n", *recordPath, len(data))
	fmt.Printf("Kind:   %s\n", r.Kind)
	if r.HasLegacyShape() {
		num, channels, height, width := r.Legacy()
		fmt.Printf("Shape:  legacy (%d, %d, %d, %d)\n", num, channels, height, width)
	} else {
		fmt.Printf("Shape:  %v\n", r.Shape)
	}
	if len(r.ShapeStride) > 0 {
		fmt.Printf("Stride: %v\n", r.ShapeStride)
	}
	fmt.Printf("Count:  %d elements\n", r.ElementCount())
	fmt.Printf("Diff:   %v\n", r.HasDiff())

	if !*stats {
		return
	}

	switch r.Kind {
	case device.KindFloat64:
		summarize[float64](r)
	case device.KindFloat32:
		summarize[float32](r)
	case device.KindHalf:
		summarize[device.Half](r)
	case device.KindInt8:
		summarize[int8](r)
	case device.KindInt16:
		summarize[int16](r)
	case device.KindInt32:
		summarize[int32](r)
	case device.KindInt64:
		summarize[int64](r)
	case device.KindUint8:
		summarize[uint8](r)
	case device.KindUint16:
		summarize[uint16](r)
	case device.KindUint32:
		summarize[uint32](r)
	case device.KindUint64:
		summarize[uint64](r)
	default:
		fmt.Printf("No statistics for kind %s\n", r.Kind)
	}
}

func summarize[T blob.Element](r *record.TensorRecord) {
	b := blob.New[T](device.NewContext())
	b.FromRecord(r, true)

	fmt.Printf("Loaded: shape %v, capacity %d\n", b.Shape(), b.Capacity())
	if !b.Kind().Arithmetic() {
		fmt.Printf("Kind %s carries no value statistics\n", b.Kind())
		return
	}

	fmt.Printf("Data:   asum=%g sumsq=%g\n", b.AsumData(), b.SumSqData())
	if r.HasDiff() {
		fmt.Printf("Diff:   asum=%g sumsq=%g\n", b.AsumDiff(), b.SumSqDiff())
	}
}
