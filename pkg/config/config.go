// Package config builds handler configuration from the environment (Lambda)
// or from a YAML file (CLI).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gardar/ocrtable/pkg/pipeline"
	"github.com/gardar/ocrtable/pkg/table"
)

// ErrInvalidConfig is returned for missing, malformed or inconsistent settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// FromEnv reads the handler configuration from environment variables.
// BUCKET_NAME and PREFIX are accepted as aliases of OUTPUT_BUCKET_NAME and
// OUTPUT_S3_PREFIX.
func FromEnv() (pipeline.Config, error) {
	format, err := table.ParseFormat(getEnv("OUTPUT_FORMAT", ""))
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("%w: OUTPUT_FORMAT: %w", ErrInvalidConfig, err)
	}

	maxPages, maxPagesErr := getEnvAsInt("MAX_RESULT_PAGES", 0)
	rate, rateErr := getEnvAsFloat("RETRIEVE_RPS", 0)
	keepPageNumbers, keepErr := getEnvAsBool("KEEP_PAGE_NUMBERS", false)
	sortByPage, sortErr := getEnvAsBool("SORT_BY_PAGE", false)
	rawBlocks, rawErr := getEnvAsBool("RAW_BLOCKS", false)

	if err := errors.Join(maxPagesErr, rateErr, keepErr, sortErr, rawErr); err != nil {
		return pipeline.Config{}, err
	}

	cfg := pipeline.Config{
		OutputBucket: getEnv("OUTPUT_BUCKET_NAME", getEnv("BUCKET_NAME", "")),
		OutputPrefix: getEnv("OUTPUT_S3_PREFIX", getEnv("PREFIX", "")),

		NotificationTopic: getEnv("SNS_TOPIC_ARN", ""),
		NotificationRole:  getEnv("SNS_ROLE_ARN", ""),

		MaxPages:     maxPages,
		RetrieveRate: rate,

		Format:          format,
		KeepPageNumbers: keepPageNumbers,
		SortByPage:      sortByPage,
		RawBlocks:       rawBlocks,
	}

	return cfg, nil
}

// Validate checks the settings every result handler needs
func Validate(cfg pipeline.Config) error {
	if cfg.OutputBucket == "" {
		return fmt.Errorf("%w: OUTPUT_BUCKET_NAME is required", ErrInvalidConfig)
	}
	if cfg.MaxPages < 0 {
		return fmt.Errorf("%w: MAX_RESULT_PAGES must not be negative", ErrInvalidConfig)
	}
	if cfg.RetrieveRate < 0 {
		return fmt.Errorf("%w: RETRIEVE_RPS must not be negative", ErrInvalidConfig)
	}
	if (cfg.NotificationTopic == "") != (cfg.NotificationRole == "") {
		return fmt.Errorf("%w: SNS_TOPIC_ARN and SNS_ROLE_ARN must be set together", ErrInvalidConfig)
	}
	return nil
}

// File is the YAML configuration of the ocrtable CLI
//
//	backend: textract
//	output:
//	  bucket: results
//	  prefix: tables
//	  format: xlsx
//	textract:
//	  region: eu-west-1
type File struct {
	Backend string `yaml:"backend"`

	Output struct {
		Bucket string `yaml:"bucket"`
		Prefix string `yaml:"prefix"`
		Format string `yaml:"format"`
	} `yaml:"output"`

	Notification struct {
		Topic string `yaml:"topic"`
		Role  string `yaml:"role"`
	} `yaml:"notification"`

	MaxResultPages  int     `yaml:"max_result_pages"`
	RetrieveRPS     float64 `yaml:"retrieve_rps"`
	KeepPageNumbers bool    `yaml:"keep_page_numbers"`
	SortByPage      bool    `yaml:"sort_by_page"`
	RawBlocks       bool    `yaml:"raw_blocks"`

	Textract struct {
		Region     string `yaml:"region"`
		MaxResults int32  `yaml:"max_results"`
	} `yaml:"textract"`

	DocumentAI struct {
		ProjectID       string `yaml:"project_id"`
		Location        string `yaml:"location"`
		ProcessorID     string `yaml:"processor_id"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"gdocai"`

	HOCR struct {
		PagesPerResult int `yaml:"pages_per_result"`
	} `yaml:"hocr"`
}

// Load reads a YAML configuration file. Environment variables referenced as
// $VAR or ${VAR} are expanded before parsing and unknown keys are rejected.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data = []byte(os.ExpandEnv(string(data)))

	var f File

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if f.Backend == "" {
		f.Backend = "textract"
	}

	return &f, nil
}

// Pipeline converts the file into handler configuration
func (f *File) Pipeline() (pipeline.Config, error) {
	format, err := table.ParseFormat(f.Output.Format)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("%w: output.format: %w", ErrInvalidConfig, err)
	}

	return pipeline.Config{
		OutputBucket:      f.Output.Bucket,
		OutputPrefix:      f.Output.Prefix,
		NotificationTopic: f.Notification.Topic,
		NotificationRole:  f.Notification.Role,
		MaxPages:          f.MaxResultPages,
		RetrieveRate:      f.RetrieveRPS,
		Format:            format,
		KeepPageNumbers:   f.KeepPageNumbers,
		SortByPage:        f.SortByPage,
		RawBlocks:         f.RawBlocks,
	}, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Unset variables yield the default; set but unparsable values are errors.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, value)
	}
	return intVal, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, value)
	}
	return floatVal, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, key, value)
	}
	return boolVal, nil
}
