// Command terramold produces a 3D-printable city model for a
// configured bounding box. Feature and elevation ingestion live in
// external tooling; this driver runs the composition pipeline against a
// synthetic elevation source so the whole chain can be exercised
// offline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/quarrylabs/terramold/internal/config"
	"github.com/quarrylabs/terramold/internal/logger"
	"github.com/quarrylabs/terramold/pkg/elevation"
	"github.com/quarrylabs/terramold/pkg/export"
	"github.com/quarrylabs/terramold/pkg/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "terramold: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sampler := elevation.Synthetic{BaseM: 120, AmplitudeM: 40, WavelengthM: 400}

	pl := &pipeline.Pipeline{
		Log: log,
		Progress: func(stage string, percent int) {
			fmt.Printf("[%3d%%] %s\n", percent, stage)
		},
	}
	res, err := pl.Run(ctx, pipeline.Request{Bounds: cfg.Bounds.GeoBounds()}, sampler, cfg.Model)
	if err != nil {
		return err
	}
	log.Info("scene assembled",
		zap.String("run_id", res.RunID),
		zap.Int("fragments", len(res.Scene.Fragments)))

	if cfg.Output.ThreeMF != "" {
		if err := export.Write3MF(cfg.Output.ThreeMF, res.Scene); err != nil {
			return err
		}
		log.Info("wrote 3MF", zap.String("path", cfg.Output.ThreeMF))
	}
	if cfg.Output.STLPath != "" {
		if err := export.WriteSTL(cfg.Output.STLPath, res.Scene); err != nil {
			return err
		}
		log.Info("wrote STL", zap.String("path", cfg.Output.STLPath))
	}
	return nil
}
