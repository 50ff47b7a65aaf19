package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"laptopprice/pkg/schedule"
)

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// TrainTimeoutSeconds bounds a synchronous /train request. Zero means no bound.
	TrainTimeoutSeconds int `yaml:"train_timeout_seconds"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Source struct {
	Kind  string `yaml:"kind"` // mongodb, csv, xlsx
	Path  string `yaml:"path"`
	Sheet string `yaml:"sheet"`
}

type MongoDB struct {
	URI            string `yaml:"uri"`
	Database       string `yaml:"database"`
	Collection     string `yaml:"collection"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Storage struct {
	Kind   string `yaml:"kind"` // fs, s3
	Dir    string `yaml:"dir"`
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
	Keep   int    `yaml:"keep"`
}

type Pipeline struct {
	ArtifactDir     string  `yaml:"artifact_dir"`
	SchemaPath      string  `yaml:"schema_path"`
	TestRatio       float64 `yaml:"test_ratio"`
	Seed            int64   `yaml:"seed"`
	DriftThreshold  float64 `yaml:"drift_threshold"`
	FailOnDrift     bool    `yaml:"fail_on_drift"`
	UnknownCategory string  `yaml:"unknown_category"`
}

type Model struct {
	Algorithm     string  `yaml:"algorithm"`
	Alpha         float64 `yaml:"alpha"`
	LearningRate  float64 `yaml:"learning_rate"`
	Epochs        int     `yaml:"epochs"`
	BatchSize     int     `yaml:"batch_size"`
	WeightDecay   float64 `yaml:"weight_decay"`
	ExpectedScore float64 `yaml:"expected_score"`
}

type Evaluation struct {
	Threshold float64 `yaml:"threshold"`
}

type RunLog struct {
	Path string `yaml:"path"`
}

type Schedule struct {
	Cron string `yaml:"cron"`
}

type Config struct {
	Server     Server     `yaml:"server"`
	Log        Log        `yaml:"log"`
	Source     Source     `yaml:"source"`
	MongoDB    MongoDB    `yaml:"mongodb"`
	Storage    Storage    `yaml:"storage"`
	Pipeline   Pipeline   `yaml:"pipeline"`
	Model      Model      `yaml:"model"`
	Evaluation Evaluation `yaml:"evaluation"`
	RunLog     RunLog     `yaml:"runlog"`
	Schedule   Schedule   `yaml:"schedule"`
}

// Load builds the configuration. The file path is taken from path, then
// CONFIG_PATH, then config.yaml; a missing file is not an error. A .env file
// in the working directory is loaded first so its values act as environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("config: load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	envOverride(&c.MongoDB.URI, "MONGODB_URL")
	envOverride(&c.MongoDB.Database, "MONGODB_DATABASE")
	envOverride(&c.MongoDB.Collection, "MONGODB_COLLECTION")
	envOverride(&c.Storage.Region, "AWS_REGION")
	envOverride(&c.Storage.Bucket, "MODEL_BUCKET_NAME")
	envOverrideAllowEmpty(&c.Storage.Prefix, "MODEL_PREFIX")
	envOverride(&c.Storage.Kind, "STORAGE_KIND")
	envOverride(&c.Storage.Dir, "STORAGE_DIR")
	envOverride(&c.Server.Host, "APP_HOST")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverrideAllowEmpty(&c.Schedule.Cron, "TRAIN_SCHEDULE")
	envOverride(&c.RunLog.Path, "RUNLOG_PATH")
	envOverride(&c.Source.Kind, "SOURCE_KIND")
	envOverride(&c.Source.Path, "SOURCE_PATH")
	return errors.Join(
		envOverrideInt(&c.Server.Port, "APP_PORT"),
		envOverrideFloat(&c.Evaluation.Threshold, "EVAL_THRESHOLD"),
	)
}

// Defaults returns the configuration used when nothing is set. The file and
// the environment are applied on top, so an explicit zero is kept.
func Defaults() Config {
	return Config{
		Server:  Server{Host: "0.0.0.0", Port: 8080},
		Log:     Log{Level: "info", Format: "json"},
		Source:  Source{Kind: "mongodb"},
		MongoDB: MongoDB{Database: "laptops", Collection: "laptop_prices", TimeoutSeconds: 30},
		Storage: Storage{Kind: "fs", Dir: "./model_store", Region: "us-east-1", Prefix: "laptop-price", Keep: 5},
		Pipeline: Pipeline{
			ArtifactDir:     "./artifacts",
			TestRatio:       0.2,
			Seed:            42,
			DriftThreshold:  0.5,
			UnknownCategory: "ignore",
		},
		Model: Model{
			Algorithm:    "ols",
			Alpha:        1e-6,
			LearningRate: 0.01,
			Epochs:       200,
			BatchSize:    32,
		},
		Evaluation: Evaluation{Threshold: 0.02},
		RunLog:     RunLog{Path: "./runs.db"},
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		bad("server.port %d out of range", c.Server.Port)
	}
	if c.Server.TrainTimeoutSeconds < 0 {
		bad("server.train_timeout_seconds must be >= 0")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		bad("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		bad("log.format must be json or text, got %q", c.Log.Format)
	}

	switch c.Source.Kind {
	case "mongodb":
		if c.MongoDB.URI == "" {
			bad("mongodb.uri is required when source.kind=mongodb (set MONGODB_URL)")
		}
	case "csv", "xlsx":
		if c.Source.Path == "" {
			bad("source.path is required when source.kind=%s", c.Source.Kind)
		}
	default:
		bad("source.kind must be mongodb, csv or xlsx, got %q", c.Source.Kind)
	}

	switch c.Storage.Kind {
	case "fs":
	case "s3":
		if c.Storage.Bucket == "" {
			bad("storage.bucket is required when storage.kind=s3 (set MODEL_BUCKET_NAME)")
		}
	default:
		bad("storage.kind must be fs or s3, got %q", c.Storage.Kind)
	}
	if c.Storage.Keep < 0 {
		bad("storage.keep must be >= 0")
	}

	if c.Pipeline.TestRatio <= 0 || c.Pipeline.TestRatio >= 1 {
		bad("pipeline.test_ratio %v must be in (0, 1)", c.Pipeline.TestRatio)
	}
	if c.Pipeline.DriftThreshold < 0 {
		bad("pipeline.drift_threshold must be >= 0")
	}
	switch c.Pipeline.UnknownCategory {
	case "ignore", "error":
	default:
		bad("pipeline.unknown_category must be ignore or error, got %q", c.Pipeline.UnknownCategory)
	}

	switch c.Model.Algorithm {
	case "ols":
		if c.Model.Alpha < 0 {
			bad("model.alpha must be >= 0")
		}
	case "sgd":
		if c.Model.LearningRate <= 0 {
			bad("model.learning_rate must be > 0")
		}
		if c.Model.Epochs < 1 {
			bad("model.epochs must be >= 1")
		}
		if c.Model.BatchSize < 1 {
			bad("model.batch_size must be >= 1")
		}
	default:
		bad("model.algorithm must be ols or sgd, got %q", c.Model.Algorithm)
	}
	if c.Model.ExpectedScore < 0 || c.Model.ExpectedScore > 1 {
		bad("model.expected_score %v must be between 0 and 1", c.Model.ExpectedScore)
	}
	if c.Evaluation.Threshold < 0 || c.Evaluation.Threshold > 1 {
		bad("evaluation.threshold %v must be between 0 and 1", c.Evaluation.Threshold)
	}
	if c.Schedule.Cron != "" {
		if _, err := schedule.Parse(c.Schedule.Cron); err != nil {
			errs = append(errs, fmt.Errorf("config: schedule.cron: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("config: invalid %s %q: %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("config: invalid %s %q: %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}
