package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/vidnarr-cli/internal/pipeline"
	"github.com/KaramelBytes/vidnarr-cli/internal/table"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	Output   Output           `mapstructure:"output" yaml:"output"`
	Input    Input            `mapstructure:"input" yaml:"input"`
	Blocks   Blocks           `mapstructure:"blocks" yaml:"blocks"`
	Filter   Filter           `mapstructure:"filter" yaml:"filter"`
	Reshape  Reshape          `mapstructure:"reshape" yaml:"reshape"`
	Fields   []pipeline.Field `mapstructure:"fields" yaml:"fields"`
	Validate Validate         `mapstructure:"validate" yaml:"validate"`

	// Optional sinks, all off by default.
	SQLite  SQLite  `mapstructure:"sqlite" yaml:"sqlite"`
	Metrics Metrics `mapstructure:"metrics" yaml:"metrics"`
	S3      S3      `mapstructure:"s3" yaml:"s3"`
}

// Output controls where artifacts are written.
type Output struct {
	Dir    string `mapstructure:"dir" yaml:"dir"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
	// Format is csv or tsv.
	Format string `mapstructure:"format" yaml:"format"`
}

// Input controls how the raw export is read.
type Input struct {
	// Delimiter overrides extension sniffing: "," or "tab".
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	SkipRows  int    `mapstructure:"skip_rows" yaml:"skip_rows"`
}

type Blocks struct {
	Marker   string   `mapstructure:"marker" yaml:"marker"`
	Reserved []string `mapstructure:"reserved" yaml:"reserved"`
}

type Filter struct {
	IDColumn       string  `mapstructure:"id_column" yaml:"id_column"`
	MetadataMarker string  `mapstructure:"metadata_marker" yaml:"metadata_marker"`
	StatusColumn   string  `mapstructure:"status_column" yaml:"status_column"`
	PreviewMarker  string  `mapstructure:"preview_marker" yaml:"preview_marker"`
	FinishedColumn string  `mapstructure:"finished_column" yaml:"finished_column"`
	DurationColumn string  `mapstructure:"duration_column" yaml:"duration_column"`
	MinDuration    float64 `mapstructure:"min_duration" yaml:"min_duration"`
}

type Reshape struct {
	BaseColumns     []string `mapstructure:"base_columns" yaml:"base_columns"`
	TrailingColumns []string `mapstructure:"trailing_columns" yaml:"trailing_columns"`
	BlockColumn     string   `mapstructure:"block_column" yaml:"block_column"`
	LabelPrefix     string   `mapstructure:"label_prefix" yaml:"label_prefix"`
}

type Validate struct {
	KeyColumns      []string `mapstructure:"key_columns" yaml:"key_columns"`
	FrequencyFields []string `mapstructure:"frequency_fields" yaml:"frequency_fields"`
	MinBlocks       int      `mapstructure:"min_blocks" yaml:"min_blocks"`
}

// SQLite writes the long table into a database file when Path is set.
type SQLite struct {
	Path  string `mapstructure:"path" yaml:"path"`
	Table string `mapstructure:"table" yaml:"table"`
	// Replace drops the table before loading instead of appending.
	Replace bool `mapstructure:"replace" yaml:"replace"`
}

// Metrics writes a Prometheus textfile when File is set.
type Metrics struct {
	File string `mapstructure:"file" yaml:"file"`
}

// S3 uploads the artifacts when Bucket is set.
type S3 struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	Region    string `mapstructure:"region" yaml:"region"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	PathStyle bool   `mapstructure:"path_style" yaml:"path_style"`
	// Static credentials; usually left empty in favor of AWS_* variables.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

// Dir is the default configuration directory, ~/.vidnarr.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".vidnarr"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.vidnarr/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	p := pipeline.DefaultOptions()
	v.SetDefault("log_level", "info")

	v.SetDefault("output.dir", "processed")
	v.SetDefault("output.prefix", "narrative")
	v.SetDefault("output.format", "csv")

	v.SetDefault("input.delimiter", "")
	v.SetDefault("input.skip_rows", p.Read.SkipRows)

	v.SetDefault("blocks.marker", p.Blocks.Marker)
	v.SetDefault("blocks.reserved", p.Blocks.Reserved)

	v.SetDefault("filter.id_column", p.Filter.IDColumn)
	v.SetDefault("filter.metadata_marker", p.Filter.MetadataMarker)
	v.SetDefault("filter.status_column", p.Filter.StatusColumn)
	v.SetDefault("filter.preview_marker", p.Filter.PreviewMarker)
	v.SetDefault("filter.finished_column", p.Filter.FinishedColumn)
	v.SetDefault("filter.duration_column", p.Filter.DurationColumn)
	v.SetDefault("filter.min_duration", p.Filter.MinDuration)

	v.SetDefault("reshape.base_columns", p.Reshape.BaseColumns)
	v.SetDefault("reshape.trailing_columns", p.Reshape.TrailingColumns)
	v.SetDefault("reshape.block_column", p.Reshape.BlockColumn)
	v.SetDefault("reshape.label_prefix", p.Reshape.LabelPrefix)

	v.SetDefault("validate.key_columns", p.Validate.KeyColumns)
	v.SetDefault("validate.frequency_fields", p.Validate.FrequencyFields)
	v.SetDefault("validate.min_blocks", p.Validate.MinBlocks)

	v.SetDefault("sqlite.path", "")
	v.SetDefault("sqlite.table", "long_format")
	v.SetDefault("sqlite.replace", false)
	v.SetDefault("metrics.file", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.path_style", false)
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Nested keys map to
// VIDNARR_<SECTION>_<KEY>, e.g. VIDNARR_FILTER_MIN_DURATION.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("VIDNARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		// A missing file is fine: config set/init create it.
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(c.Fields) == 0 {
		c.Fields = pipeline.DefaultFields()
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Global) check() error {
	switch c.Output.Format {
	case "csv", "tsv":
	default:
		return fmt.Errorf("invalid output.format: %q (use csv or tsv)", c.Output.Format)
	}
	if _, err := parseDelimiter(c.Input.Delimiter); err != nil {
		return err
	}
	if c.Filter.MinDuration < 0 {
		return fmt.Errorf("invalid filter.min_duration: %v", c.Filter.MinDuration)
	}
	if c.Validate.MinBlocks < 0 {
		return fmt.Errorf("invalid validate.min_blocks: %d", c.Validate.MinBlocks)
	}
	return nil
}

func parseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case "tab", "\\t", "\t":
		return '\t', nil
	case ";", "semicolon":
		return ';', nil
	}
	return 0, fmt.Errorf("invalid input.delimiter: %q", s)
}

// OutputDelimiter is the delimiter used for written tables.
func (c *Global) OutputDelimiter() rune {
	if c.Output.Format == "tsv" {
		return '\t'
	}
	return ','
}

// Mapping builds the field mapping from the configured fields.
func (c *Global) Mapping() (pipeline.FieldMapping, error) {
	m, err := pipeline.NewFieldMapping(c.Fields)
	if err != nil {
		return pipeline.FieldMapping{}, fmt.Errorf("fields: %w", err)
	}
	return m, nil
}

// PipelineOptions converts the configuration to stage options.
func (c *Global) PipelineOptions() pipeline.Options {
	delim, _ := parseDelimiter(c.Input.Delimiter)
	return pipeline.Options{
		Read: table.ReadOptions{Delimiter: delim, SkipRows: c.Input.SkipRows},
		Blocks: pipeline.BlockPattern{
			Marker:   c.Blocks.Marker,
			Reserved: append([]string(nil), c.Blocks.Reserved...),
		},
		Filter: pipeline.FilterOptions{
			IDColumn:       c.Filter.IDColumn,
			MetadataMarker: c.Filter.MetadataMarker,
			StatusColumn:   c.Filter.StatusColumn,
			PreviewMarker:  c.Filter.PreviewMarker,
			FinishedColumn: c.Filter.FinishedColumn,
			DurationColumn: c.Filter.DurationColumn,
			MinDuration:    c.Filter.MinDuration,
		},
		Reshape: pipeline.ReshapeOptions{
			BaseColumns:     append([]string(nil), c.Reshape.BaseColumns...),
			TrailingColumns: append([]string(nil), c.Reshape.TrailingColumns...),
			BlockColumn:     c.Reshape.BlockColumn,
			LabelPrefix:     c.Reshape.LabelPrefix,
		},
		Validate: pipeline.ValidateOptions{
			SessionColumn:   c.Filter.IDColumn,
			BlockColumn:     c.Reshape.BlockColumn,
			KeyColumns:      append([]string(nil), c.Validate.KeyColumns...),
			FrequencyFields: append([]string(nil), c.Validate.FrequencyFields...),
			MinBlocks:       c.Validate.MinBlocks,
		},
	}
}

// Keys lists the settable scalar and list keys in display order.
func Keys() []string {
	return []string{
		"log_level",
		"output.dir", "output.prefix", "output.format",
		"input.delimiter", "input.skip_rows",
		"blocks.marker", "blocks.reserved",
		"filter.id_column", "filter.metadata_marker", "filter.status_column",
		"filter.preview_marker", "filter.finished_column", "filter.duration_column",
		"filter.min_duration",
		"reshape.base_columns", "reshape.trailing_columns", "reshape.block_column", "reshape.label_prefix",
		"validate.key_columns", "validate.frequency_fields", "validate.min_blocks",
		"sqlite.path", "sqlite.table", "sqlite.replace",
		"metrics.file",
		"s3.bucket", "s3.prefix", "s3.region", "s3.endpoint", "s3.path_style",
	}
}

// Get renders the value of key for display. List values are comma-joined.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "log_level":
		return c.LogLevel, nil
	case "output.dir":
		return c.Output.Dir, nil
	case "output.prefix":
		return c.Output.Prefix, nil
	case "output.format":
		return c.Output.Format, nil
	case "input.delimiter":
		return c.Input.Delimiter, nil
	case "input.skip_rows":
		return strconv.Itoa(c.Input.SkipRows), nil
	case "blocks.marker":
		return c.Blocks.Marker, nil
	case "blocks.reserved":
		return strings.Join(c.Blocks.Reserved, ","), nil
	case "filter.id_column":
		return c.Filter.IDColumn, nil
	case "filter.metadata_marker":
		return c.Filter.MetadataMarker, nil
	case "filter.status_column":
		return c.Filter.StatusColumn, nil
	case "filter.preview_marker":
		return c.Filter.PreviewMarker, nil
	case "filter.finished_column":
		return c.Filter.FinishedColumn, nil
	case "filter.duration_column":
		return c.Filter.DurationColumn, nil
	case "filter.min_duration":
		return strconv.FormatFloat(c.Filter.MinDuration, 'f', -1, 64), nil
	case "reshape.base_columns":
		return strings.Join(c.Reshape.BaseColumns, ","), nil
	case "reshape.trailing_columns":
		return strings.Join(c.Reshape.TrailingColumns, ","), nil
	case "reshape.block_column":
		return c.Reshape.BlockColumn, nil
	case "reshape.label_prefix":
		return c.Reshape.LabelPrefix, nil
	case "validate.key_columns":
		return strings.Join(c.Validate.KeyColumns, ","), nil
	case "validate.frequency_fields":
		return strings.Join(c.Validate.FrequencyFields, ","), nil
	case "validate.min_blocks":
		return strconv.Itoa(c.Validate.MinBlocks), nil
	case "sqlite.path":
		return c.SQLite.Path, nil
	case "sqlite.table":
		return c.SQLite.Table, nil
	case "sqlite.replace":
		return strconv.FormatBool(c.SQLite.Replace), nil
	case "metrics.file":
		return c.Metrics.File, nil
	case "s3.bucket":
		return c.S3.Bucket, nil
	case "s3.prefix":
		return c.S3.Prefix, nil
	case "s3.region":
		return c.S3.Region, nil
	case "s3.endpoint":
		return c.S3.Endpoint, nil
	case "s3.path_style":
		return strconv.FormatBool(c.S3.PathStyle), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set parses val for key and stores it. List keys take comma-separated values.
func (c *Global) Set(key, val string) error {
	list := func() []string {
		if strings.TrimSpace(val) == "" {
			return nil
		}
		parts := strings.Split(val, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	switch key {
	case "log_level":
		switch val {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
		c.LogLevel = val
	case "output.dir":
		c.Output.Dir = val
	case "output.prefix":
		c.Output.Prefix = val
	case "output.format":
		switch strings.ToLower(val) {
		case "csv", "tsv":
			c.Output.Format = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid output.format: %s (use csv or tsv)", val)
		}
	case "input.delimiter":
		if _, err := parseDelimiter(val); err != nil {
			return err
		}
		c.Input.Delimiter = val
	case "input.skip_rows":
		i, err := atoi()
		if err != nil {
			return err
		}
		c.Input.SkipRows = i
	case "blocks.marker":
		c.Blocks.Marker = val
	case "blocks.reserved":
		c.Blocks.Reserved = list()
	case "filter.id_column":
		c.Filter.IDColumn = val
	case "filter.metadata_marker":
		c.Filter.MetadataMarker = val
	case "filter.status_column":
		c.Filter.StatusColumn = val
	case "filter.preview_marker":
		c.Filter.PreviewMarker = val
	case "filter.finished_column":
		c.Filter.FinishedColumn = val
	case "filter.duration_column":
		c.Filter.DurationColumn = val
	case "filter.min_duration":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid float for filter.min_duration: %v", val)
		}
		c.Filter.MinDuration = f
	case "reshape.base_columns":
		c.Reshape.BaseColumns = list()
	case "reshape.trailing_columns":
		c.Reshape.TrailingColumns = list()
	case "reshape.block_column":
		if val == "" {
			return fmt.Errorf("reshape.block_column cannot be empty")
		}
		c.Reshape.BlockColumn = val
	case "reshape.label_prefix":
		c.Reshape.LabelPrefix = val
	case "validate.key_columns":
		c.Validate.KeyColumns = list()
	case "validate.frequency_fields":
		c.Validate.FrequencyFields = list()
	case "validate.min_blocks":
		i, err := atoi()
		if err != nil {
			return err
		}
		c.Validate.MinBlocks = i
	case "sqlite.path":
		c.SQLite.Path = val
	case "sqlite.table":
		c.SQLite.Table = val
	case "sqlite.replace":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for sqlite.replace: %v", val)
		}
		c.SQLite.Replace = b
	case "metrics.file":
		c.Metrics.File = val
	case "s3.bucket":
		c.S3.Bucket = val
	case "s3.prefix":
		c.S3.Prefix = val
	case "s3.region":
		c.S3.Region = val
	case "s3.endpoint":
		c.S3.Endpoint = val
	case "s3.path_style":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for s3.path_style: %v", val)
		}
		c.S3.PathStyle = b
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}
