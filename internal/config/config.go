package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"litindex/internal/corpus"
	"litindex/internal/minhash"
)

const (
	WriteModeAppend = "append"
	WriteModeUpsert = "upsert"
)

// MaxBatchSize keeps an 8-column multi-row INSERT within SQLite's limit of
// 32766 bound parameters.
const MaxBatchSize = 32766 / 8

// Config is the full run configuration. Zero-valued worker counts mean
// runtime.NumCPU().
type Config struct {
	Database Database `yaml:"database"`
	MinHash  MinHash  `yaml:"minhash"`
	Salience Salience `yaml:"salience"`
	Scoring  Scoring  `yaml:"scoring"`
	Sink     Sink     `yaml:"sink"`
	Run      Run      `yaml:"run"`
	Filter   Filter   `yaml:"filter"`
	Log      Log      `yaml:"log"`
}

type Database struct {
	Path string `yaml:"path"`
}

type MinHash struct {
	Seeds     int    `yaml:"seeds"`
	CharNGram int    `yaml:"char_ngram"`
	Bands     int    `yaml:"bands"`
	HashWidth int    `yaml:"hash_width"`
	HashSeed  uint64 `yaml:"hash_seed"`
	// CommonWordMinDocs is the smallest partition the common-word filter
	// applies to. Below it every word counts as distinctive.
	CommonWordMinDocs int `yaml:"common_word_min_docs"`
}

type Salience struct {
	TopK int `yaml:"top_k"`
}

type Scoring struct {
	MinScore int `yaml:"min_score"`
	Workers  int `yaml:"workers"`
}

type Sink struct {
	BatchSize       int           `yaml:"batch_size"`
	Mode            string        `yaml:"mode"`
	Retries         int           `yaml:"retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	RetryMaxBackoff time.Duration `yaml:"retry_max_backoff"`
	WritesPerSecond float64       `yaml:"writes_per_second"`
}

type Run struct {
	Workers          int           `yaml:"workers"`
	PartitionTimeout time.Duration `yaml:"partition_timeout"`
	SkipProcessed    bool          `yaml:"skip_processed"`
}

type Filter struct {
	CountryCode string `yaml:"country_code"`
	Institution string `yaml:"institution"`
	Field       string `yaml:"field"`
	MinYear     int    `yaml:"min_year"`
	MaxYear     int    `yaml:"max_year"`
	MinCount    int    `yaml:"min_count"`
	Limit       int    `yaml:"limit"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Database: Database{Path: "litindex.db"},
		MinHash: MinHash{
			Seeds:             100,
			CharNGram:         5,
			Bands:             10,
			HashWidth:         4,
			HashSeed:          1,
			// Smaller partitions skip the common-word filter entirely.
			CommonWordMinDocs: 10,
		},
		Salience: Salience{TopK: 10},
		Scoring:  Scoring{MinScore: 0},
		Sink: Sink{
			BatchSize:       100,
			Mode:            WriteModeAppend,
			Retries:         3,
			RetryBackoff:    200 * time.Millisecond,
			RetryMaxBackoff: 5 * time.Second,
		},
		Run:    Run{PartitionTimeout: 10 * time.Minute},
		Filter: Filter{CountryCode: "US", MinCount: 2},
		Log:    Log{Level: "info", Format: "text"},
	}
}

func (c Config) MinHashConfig() minhash.Config {
	return minhash.Config{
		Seeds:     c.MinHash.Seeds,
		CharNGram: c.MinHash.CharNGram,
		HashWidth: c.MinHash.HashWidth,
		HashSeed:  c.MinHash.HashSeed,
	}
}

func (c Config) CorpusFilter() corpus.Filter {
	f := c.Filter
	return corpus.Filter{
		CountryCode: f.CountryCode,
		Institution: f.Institution,
		Field:       f.Field,
		MinYear:     f.MinYear,
		MaxYear:     f.MaxYear,
		MinCount:    f.MinCount,
		Limit:       f.Limit,
	}
}

// Validate reports the first invalid setting as an *Error.
func (c Config) Validate() error {
	m := c.MinHash
	if m.Seeds <= 0 {
		return invalid("minhash.seeds", "must be positive (got %d)", m.Seeds)
	}
	if m.Bands <= 0 {
		return invalid("minhash.bands", "must be positive (got %d)", m.Bands)
	}
	if m.Seeds%m.Bands != 0 {
		return invalid("minhash.seeds", "has to be a multiple of bands: %d %% %d != 0", m.Seeds, m.Bands)
	}
	if m.CharNGram <= 0 {
		return invalid("minhash.char_ngram", "must be positive (got %d)", m.CharNGram)
	}
	switch m.HashWidth {
	case 2, 4, 8:
	default:
		return invalid("minhash.hash_width", "must be 2, 4 or 8 bytes (got %d)", m.HashWidth)
	}
	if m.CommonWordMinDocs < 0 {
		return invalid("minhash.common_word_min_docs", "cannot be negative (got %d)", m.CommonWordMinDocs)
	}
	if c.Salience.TopK <= 0 {
		return invalid("salience.top_k", "must be positive (got %d)", c.Salience.TopK)
	}
	if c.Scoring.MinScore < 0 || c.Scoring.MinScore > 100 {
		return invalid("scoring.min_score", "must be between 0 and 100 (got %d)", c.Scoring.MinScore)
	}
	if c.Scoring.Workers < 0 {
		return invalid("scoring.workers", "cannot be negative (got %d)", c.Scoring.Workers)
	}
	if c.Sink.BatchSize <= 0 || c.Sink.BatchSize > MaxBatchSize {
		return invalid("sink.batch_size", "must be between 1 and %d (got %d)", MaxBatchSize, c.Sink.BatchSize)
	}
	if c.Sink.Mode != WriteModeAppend && c.Sink.Mode != WriteModeUpsert {
		return invalid("sink.mode", "must be %q or %q (got %q)", WriteModeAppend, WriteModeUpsert, c.Sink.Mode)
	}
	if c.Sink.Retries < 0 || c.Sink.Retries > 10 {
		return invalid("sink.retries", "must be between 0 and 10 (got %d)", c.Sink.Retries)
	}
	if c.Sink.RetryBackoff < 0 || c.Sink.RetryMaxBackoff < 0 {
		return invalid("sink.retry_backoff", "cannot be negative")
	}
	if c.Sink.WritesPerSecond < 0 {
		return invalid("sink.writes_per_second", "cannot be negative (got %g)", c.Sink.WritesPerSecond)
	}
	if c.Run.Workers < 0 {
		return invalid("run.workers", "cannot be negative (got %d)", c.Run.Workers)
	}
	if c.Run.PartitionTimeout < 0 {
		return invalid("run.partition_timeout", "cannot be negative (got %v)", c.Run.PartitionTimeout)
	}
	if c.Filter.MaxYear > 0 && c.Filter.MinYear > c.Filter.MaxYear {
		return invalid("filter.min_year", "greater than max_year (%d > %d)", c.Filter.MinYear, c.Filter.MaxYear)
	}
	if c.Filter.Limit < 0 {
		return invalid("filter.limit", "cannot be negative (got %d)", c.Filter.Limit)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return invalid("log.format", "must be text or json (got %q)", c.Log.Format)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf(
		"Config{DB: %s, Seeds: %d, Bands: %d, NGram: %d, HashWidth: %d, TopK: %d, "+
			"MinScore: %d, Batch: %d, Mode: %s, Workers: %d, Timeout: %v, Country: %s}",
		c.Database.Path, c.MinHash.Seeds, c.MinHash.Bands, c.MinHash.CharNGram, c.MinHash.HashWidth,
		c.Salience.TopK, c.Scoring.MinScore, c.Sink.BatchSize, c.Sink.Mode, c.Run.Workers,
		c.Run.PartitionTimeout, c.Filter.CountryCode,
	)
}

// Load reads a YAML file on top of Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
