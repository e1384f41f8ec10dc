package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overlays LITDUP_* environment variables on c and validates the
// result.
//
//   - LITDUP_DB: database path
//   - LITDUP_SEEDS, LITDUP_BANDS, LITDUP_CHAR_NGRAM, LITDUP_HASH_WIDTH
//   - LITDUP_COMMON_WORD_MIN_DOCS
//   - LITDUP_TOP_K, LITDUP_MIN_SCORE, LITDUP_SCORE_WORKERS
//   - LITDUP_BATCH_SIZE, LITDUP_WRITE_MODE, LITDUP_WRITE_RETRIES, LITDUP_WRITES_PER_SECOND
//   - LITDUP_WORKERS, LITDUP_PARTITION_TIMEOUT (Go duration), LITDUP_SKIP_PROCESSED
//   - LITDUP_COUNTRY, LITDUP_LOG_LEVEL, LITDUP_LOG_FORMAT
func (c *Config) ApplyEnv() error {
	parseEnvString("LITDUP_DB", &c.Database.Path)
	ints := []struct {
		key string
		dst *int
	}{
		{"LITDUP_SEEDS", &c.MinHash.Seeds},
		{"LITDUP_BANDS", &c.MinHash.Bands},
		{"LITDUP_CHAR_NGRAM", &c.MinHash.CharNGram},
		{"LITDUP_HASH_WIDTH", &c.MinHash.HashWidth},
		{"LITDUP_COMMON_WORD_MIN_DOCS", &c.MinHash.CommonWordMinDocs},
		{"LITDUP_TOP_K", &c.Salience.TopK},
		{"LITDUP_MIN_SCORE", &c.Scoring.MinScore},
		{"LITDUP_SCORE_WORKERS", &c.Scoring.Workers},
		{"LITDUP_BATCH_SIZE", &c.Sink.BatchSize},
		{"LITDUP_WRITE_RETRIES", &c.Sink.Retries},
		{"LITDUP_WORKERS", &c.Run.Workers},
	}
	for _, e := range ints {
		if err := parseEnvInt(e.key, e.dst); err != nil {
			return err
		}
	}
	parseEnvString("LITDUP_WRITE_MODE", &c.Sink.Mode)
	if err := parseEnvFloat("LITDUP_WRITES_PER_SECOND", &c.Sink.WritesPerSecond); err != nil {
		return err
	}
	if err := parseEnvDuration("LITDUP_PARTITION_TIMEOUT", &c.Run.PartitionTimeout); err != nil {
		return err
	}
	if err := parseEnvBool("LITDUP_SKIP_PROCESSED", &c.Run.SkipProcessed); err != nil {
		return err
	}
	parseEnvString("LITDUP_COUNTRY", &c.Filter.CountryCode)
	parseEnvString("LITDUP_LOG_LEVEL", &c.Log.Level)
	parseEnvString("LITDUP_LOG_FORMAT", &c.Log.Format)

	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return nil
}

func parseEnvString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func parseEnvInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not an integer", key, v)
	}
	*dst = n
	return nil
}

func parseEnvFloat(key string, dst *float64) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not a number", key, v)
	}
	*dst = f
	return nil
}

func parseEnvBool(key string, dst *bool) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not a boolean", key, v)
	}
	*dst = b
	return nil
}

func parseEnvDuration(key string, dst *time.Duration) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
