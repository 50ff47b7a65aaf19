package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"laptopprice/pkg/config"
	"laptopprice/pkg/logging"
	"laptopprice/pkg/pipeline"
	"laptopprice/pkg/predict"
	"laptopprice/pkg/schedule"
	"laptopprice/pkg/server"
)

//
// ---------------------- CLI ----------------------
//
// laptopprice serve   [-config path]              : HTTP form, /predict, /train, /runs, /healthz
// laptopprice train   [-config path]              : run the training pipeline once
// laptopprice predict [-config path] -company ... : score one laptop with the production model
//
// Every subcommand reads config.yaml (or -config, or CONFIG_PATH) and
// environment overrides such as MONGODB_URL and MODEL_BUCKET_NAME.
//
// Example:
//   laptopprice predict -company Dell -type Notebook -ram 8 -weight 2.1 \
//       -cpu "Intel Core i5" -ssd 256 -gpu Intel -os windows
//
// -------------------------------------------------
//

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: laptopprice <serve|train|predict> [flags]")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "train":
		err = runTrain(ctx, os.Args[2:])
	case "predict":
		err = runPredict(ctx, os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
		return
	default:
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup(ctx context.Context, configPath string, withTraining bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)
	return buildApp(ctx, cfg, log, withTraining)
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config YAML")
	fs.Parse(args)

	a, err := setup(ctx, *configPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if expr := a.cfg.Schedule.Cron; expr != "" {
		sched, err := schedule.Parse(expr)
		if err != nil {
			return err
		}
		go schedule.New(sched, a.runner.Run, a.log).Run(ctx)
	}

	srv := server.New(server.Options{
		Trainer:      a.runner,
		Predictor:    a.predictor,
		History:      a.history,
		Logger:       a.log,
		TrainTimeout: time.Duration(a.cfg.Server.TrainTimeoutSeconds) * time.Second,
	})
	return srv.ListenAndServe(ctx, a.cfg.Addr())
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config YAML")
	fs.Parse(args)

	a, err := setup(ctx, *configPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.runner.Run(ctx, "cli")
	if err != nil {
		return fmt.Errorf("training failed (kind=%s stage=%s): %w", pipeline.KindOf(err), pipeline.StageOf(err), err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runPredict(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config YAML")
	var in predict.Input
	fs.StringVar(&in.Company, "company", "", "Brand, e.g. Dell")
	fs.StringVar(&in.TypeName, "type", "Notebook", "Type, e.g. Notebook, Ultrabook, Gaming")
	ram := fs.Float64("ram", 8, "RAM in GB")
	weight := fs.Float64("weight", 2, "Weight in kg")
	touch := fs.Int("touchscreen", 0, "1 if touchscreen")
	ips := fs.Int("ips", 0, "1 if IPS panel")
	fs.StringVar(&in.CPUName, "cpu", "Intel Core i5", "CPU family")
	ssd := fs.Float64("ssd", 256, "SSD size in GB")
	hdd := fs.Float64("hdd", 0, "HDD size in GB")
	fs.StringVar(&in.GPUBrand, "gpu", "Intel", "GPU brand")
	fs.StringVar(&in.OS, "os", "windows", "OS family: windows, mac, other")
	asJSON := fs.Bool("json", false, "Print the prediction as JSON")
	fs.Parse(args)
	in.Ram, in.Weight, in.SSD, in.HDD = ram, weight, ssd, hdd
	in.Touchscreen, in.IPS = touch, ips
	if in.Company == "" {
		return errors.New("-company is required")
	}

	a, err := setup(ctx, *configPath, false)
	if err != nil {
		return err
	}
	defer a.Close()

	pred, err := a.predictor.Predict(ctx, in)
	if err != nil {
		return err
	}
	if *asJSON {
		return json.NewEncoder(os.Stdout).Encode(pred)
	}
	fmt.Printf("%s (model %s)\n", pred.Text(), pred.Version)
	return nil
}
