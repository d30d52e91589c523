package config

import (
	"fmt"
	"os"
	"strconv"

	"docvalidator/chunking"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port         int   `yaml:"port"`
		MaxBodyBytes int64 `yaml:"max_body_bytes"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Model struct {
		Path              string `yaml:"path"`
		TokenizerPath     string `yaml:"tokenizer_path"`
		SharedLibraryPath string `yaml:"shared_library_path"`
		MaxLength         int    `yaml:"max_length"`
		InputIDsName      string `yaml:"input_ids_name"`
		AttentionMaskName string `yaml:"attention_mask_name"`
		TokenTypeIDsName  string `yaml:"token_type_ids_name"`
		OutputName        string `yaml:"output_name"`
	} `yaml:"model"`

	Chunking struct {
		SafetyMargin int `yaml:"safety_margin"`
	} `yaml:"chunking"`

	Sync struct {
		Enabled      bool   `yaml:"enabled"`
		OnStartup    bool   `yaml:"on_startup"`
		Schedule     string `yaml:"schedule"`
		Bucket       string `yaml:"bucket"`
		Key          string `yaml:"key"`
		Region       string `yaml:"region"`
		Endpoint     string `yaml:"endpoint"`
		UsePathStyle bool   `yaml:"use_path_style"`
		StatePath    string `yaml:"state_path"`
	} `yaml:"sync"`
}

// Load reads the YAML file at path (if any), applies environment overrides
// and fills in defaults. An empty path means defaults plus environment.
func Load(path string) (*Config, error) {
	var cfg Config
	// Seeded before unmarshalling so an explicit zero margin is kept.
	cfg.Chunking.SafetyMargin = chunking.DefaultSafetyMargin

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := mergeWithEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	return &cfg, nil
}

// ChunkBudget is the character budget of a chunk for the configured model.
func (c *Config) ChunkBudget() int {
	return chunking.Budget(c.Model.MaxLength, c.Chunking.SafetyMargin)
}

func applyDefaults(c *Config) {
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.MaxBodyBytes == 0 {
		c.App.MaxBodyBytes = 10 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Model.Path == "" {
		c.Model.Path = "model/bert_finetuned/bert_finetuned.onnx"
	}
	if c.Model.TokenizerPath == "" {
		c.Model.TokenizerPath = "model/tokenizer/tokenizer.json"
	}
	if c.Model.MaxLength == 0 {
		c.Model.MaxLength = 128
	}
	if c.Model.InputIDsName == "" {
		c.Model.InputIDsName = "input_ids"
	}
	if c.Model.AttentionMaskName == "" {
		c.Model.AttentionMaskName = "attention_mask"
	}
	if c.Model.OutputName == "" {
		c.Model.OutputName = "logits"
	}

	if c.Sync.Schedule == "" {
		c.Sync.Schedule = "0 * * * *"
	}
	if c.Sync.Region == "" {
		c.Sync.Region = "us-east-1"
	}
	if c.Sync.StatePath == "" {
		c.Sync.StatePath = "data/modelsync.db"
	}
}

func mergeWithEnv(c *Config) error {
	if v := os.Getenv("APP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid APP_PORT %q: %w", v, err)
		}
		c.App.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv("TOKENIZER_PATH"); v != "" {
		c.Model.TokenizerPath = v
	}
	if v := os.Getenv("ONNXRUNTIME_LIB"); v != "" {
		c.Model.SharedLibraryPath = v
	}
	if v := os.Getenv("MODEL_BUCKET"); v != "" {
		c.Sync.Bucket = v
	}
	if v := os.Getenv("MODEL_KEY"); v != "" {
		c.Sync.Key = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Sync.Region = v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		c.Sync.Endpoint = v
	}
	return nil
}
