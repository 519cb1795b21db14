package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/afd-term-etl/internal/domain"
)

// Table store backends selectable with TABLE_STORE.
const (
	StoreCSV   = "csv"
	StoreRedis = "redis"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	OutputDir    string
	BaseURL      string
	ProductClass string
	LogLevel     string
	LogFormat    string
	MetricsAddr  string

	ShutdownTimeout time.Duration

	// Archive retrieval and aggregation.
	FetchTimeout time.Duration
	FetchRetries int
	WorkerCount  int
	StartYear    int
	EndYear      int

	// Office table store.
	TableStore    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Optional combined-row sinks.
	KafkaBrokers    []string
	KafkaTopic      string
	ResultsDBDriver string
	ResultsDBDSN    string

	// Immutable term and region tables, from VOCABULARY_FILE or built in.
	Vocabulary domain.Vocabulary
	Regions    domain.Regions
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FETCH_TIMEOUT", "120s"))
	if err != nil || fetchTimeout <= 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}

	fetchRetries, err := parseInt("FETCH_RETRIES", 2, 0, 10)
	if err != nil {
		return nil, err
	}
	workers, err := parseInt("WORKER_COUNT", 30, 1, 256)
	if err != nil {
		return nil, err
	}
	startYear, err := parseInt("START_YEAR", 2000, 1970, 2100)
	if err != nil {
		return nil, err
	}
	endYear, err := parseInt("END_YEAR", 2025, 1970, 2100)
	if err != nil {
		return nil, err
	}
	redisDB, err := parseInt("REDIS_DB", 0, 0, 15)
	if err != nil {
		return nil, err
	}

	vocab, regions, err := loadTables(os.Getenv("VOCABULARY_FILE"))
	if err != nil {
		return nil, err
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		OutputDir:       sharedcfg.EnvOrDefault("AFD_OUTPUT_DIR", "./afd_output"),
		BaseURL:         sharedcfg.EnvOrDefault("AFD_BASE_URL", "https://mesonet.agron.iastate.edu/cgi-bin/afos/retrieve.py"),
		ProductClass:    sharedcfg.EnvOrDefault("AFD_PRODUCT_CLASS", "AFD"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		ShutdownTimeout: shutdownTimeout,

		FetchTimeout: fetchTimeout,
		FetchRetries: fetchRetries,
		WorkerCount:  workers,
		StartYear:    startYear,
		EndYear:      endYear,

		TableStore:    strings.ToLower(sharedcfg.EnvOrDefault("TABLE_STORE", StoreCSV)),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		KafkaBrokers:    brokers,
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "afd-term-counts"),
		ResultsDBDriver: strings.ToLower(os.Getenv("RESULTS_DB_DRIVER")),
		ResultsDBDSN:    os.Getenv("RESULTS_DB_DSN"),

		Vocabulary: vocab,
		Regions:    regions,
	}

	if cfg.OutputDir == "" {
		return nil, errors.New("AFD_OUTPUT_DIR is required")
	}
	if len(cfg.ProductClass) != 3 {
		return nil, errors.New("AFD_PRODUCT_CLASS must be three letters")
	}
	if cfg.StartYear > cfg.EndYear {
		return nil, errors.New("START_YEAR must not be after END_YEAR")
	}
	switch cfg.TableStore {
	case StoreCSV:
	case StoreRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("TABLE_STORE is redis but REDIS_ADDR is not set")
		}
	default:
		return nil, fmt.Errorf("invalid TABLE_STORE %q", cfg.TableStore)
	}
	switch cfg.ResultsDBDriver {
	case "":
	case "sqlite", "postgres":
		if cfg.ResultsDBDSN == "" {
			return nil, errors.New("RESULTS_DB_DRIVER is set but RESULTS_DB_DSN is not")
		}
	default:
		return nil, fmt.Errorf("invalid RESULTS_DB_DRIVER %q", cfg.ResultsDBDriver)
	}

	return cfg, nil
}

func parseInt(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, lo, hi)
	}
	return n, nil
}

// tablesFile is the YAML layout of VOCABULARY_FILE. Empty sections keep
// the built-in tables.
type tablesFile struct {
	domain.Vocabulary `yaml:",inline"`
	Regions           map[string][]string `yaml:"regions"`
}

func loadTables(path string) (domain.Vocabulary, domain.Regions, error) {
	vocab := domain.DefaultVocabulary()
	regions := domain.DefaultRegions()
	if path == "" {
		return vocab, regions, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return vocab, regions, fmt.Errorf("read VOCABULARY_FILE: %w", err)
	}
	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return vocab, regions, fmt.Errorf("parse VOCABULARY_FILE: %w", err)
	}

	if len(f.Search)+len(f.Precision) > 0 {
		vocab = f.Vocabulary
	}
	if err := vocab.Validate(); err != nil {
		return vocab, regions, fmt.Errorf("VOCABULARY_FILE: %w", err)
	}
	if len(f.Regions) > 0 {
		regions = domain.Regions{}
		for code, offices := range f.Regions {
			if !domain.ValidRegionCode(code) {
				return vocab, regions, fmt.Errorf("VOCABULARY_FILE: %w: %q", domain.ErrInvalidRegion, code)
			}
			for _, o := range offices {
				if !isOfficeID(o) {
					return vocab, regions, fmt.Errorf("VOCABULARY_FILE: region %s: invalid office %q", code, o)
				}
			}
			regions[strings.ToUpper(code)] = offices
		}
	}
	return vocab, regions, nil
}

func isOfficeID(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
