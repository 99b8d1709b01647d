package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	EarthEngine EarthEngineConfig `yaml:"earthengine" mapstructure:"earthengine"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Export      ExportConfig      `yaml:"export" mapstructure:"export"`
	Local       LocalConfig       `yaml:"local" mapstructure:"local"`
	Tiger       TigerConfig       `yaml:"tiger" mapstructure:"tiger"`
	AQI         AQIConfig         `yaml:"aqi" mapstructure:"aqi"`
	S3          S3Config          `yaml:"s3" mapstructure:"s3"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// EarthEngineConfig holds Earth Engine REST API settings.
type EarthEngineConfig struct {
	Project         string `yaml:"project" mapstructure:"project"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PipelineConfig holds the parameters of the county statistics pipeline.
type PipelineConfig struct {
	Year         int               `yaml:"year" mapstructure:"year"`
	Scale        float64           `yaml:"scale" mapstructure:"scale"`
	TileScale    float64           `yaml:"tile_scale" mapstructure:"tile_scale"`
	SimplifyM    float64           `yaml:"simplify_m" mapstructure:"simplify_m"`
	CountyTable  string            `yaml:"county_table" mapstructure:"county_table"`
	LandcoverIDs map[string]string `yaml:"landcover_ids" mapstructure:"landcover_ids"` // year -> collection id overrides
}

// ExportConfig configures where the remote export job writes its table.
type ExportConfig struct {
	Destination       string `yaml:"destination" mapstructure:"destination"` // drive or gcs
	Folder            string `yaml:"folder" mapstructure:"folder"`
	Bucket            string `yaml:"bucket" mapstructure:"bucket"`
	FileFormat        string `yaml:"file_format" mapstructure:"file_format"`
	DescriptionPrefix string `yaml:"description_prefix" mapstructure:"description_prefix"`
}

// LocalConfig configures the in-process pipeline backend.
type LocalConfig struct {
	RasterDir    string `yaml:"raster_dir" mapstructure:"raster_dir"`
	RasterName   string `yaml:"raster_name" mapstructure:"raster_name"` // fmt pattern taking the year
	Geographic   bool   `yaml:"geographic" mapstructure:"geographic"`
	CountiesPath string `yaml:"counties_path" mapstructure:"counties_path"`
	Output       string `yaml:"output" mapstructure:"output"`
	Format       string `yaml:"format" mapstructure:"format"`
}

// TigerConfig configures TIGER/Line county boundary downloads.
type TigerConfig struct {
	Year    int    `yaml:"year" mapstructure:"year"`
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// AQIConfig configures EPA daily AQI downloads.
type AQIConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	FromYear int    `yaml:"from_year" mapstructure:"from_year"`
	ToYear   int    `yaml:"to_year" mapstructure:"to_year"`
	TempDir  string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// S3Config configures the S3 sink.
type S3Config struct {
	Region    string `yaml:"region" mapstructure:"region"`
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	PathStyle bool   `yaml:"path_style" mapstructure:"path_style"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SPRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "sprawl.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("earthengine.base_url", "https://earthengine.googleapis.com/v1")
	v.SetDefault("earthengine.timeout_secs", 60)
	v.SetDefault("pipeline.year", 2021)
	v.SetDefault("pipeline.scale", 30)
	v.SetDefault("pipeline.tile_scale", 4)
	v.SetDefault("pipeline.simplify_m", 100)
	v.SetDefault("pipeline.county_table", "TIGER/2018/Counties")
	v.SetDefault("export.destination", "drive")
	v.SetDefault("export.folder", "GEE_Exports")
	v.SetDefault("export.file_format", "CSV")
	v.SetDefault("export.description_prefix", "urban_sprawl_")
	v.SetDefault("local.raster_dir", "data")
	v.SetDefault("local.raster_name", "nlcd_%d.asc")
	v.SetDefault("local.output", "file://exports")
	v.SetDefault("local.format", "CSV")
	v.SetDefault("tiger.year", 2018)
	v.SetDefault("tiger.temp_dir", "/tmp/tiger")
	v.SetDefault("aqi.base_url", "https://aqs.epa.gov/aqsweb/airdata")
	v.SetDefault("aqi.from_year", 2018)
	v.SetDefault("aqi.to_year", 2023)
	v.SetDefault("aqi.temp_dir", "/tmp/aqi")
	v.SetDefault("s3.region", "us-east-1")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks the settings required by the given command mode.
// Modes: "export" (remote job), "local" (in-process pipeline), "load"
// (Postgres upsert), "aqi" (EPA AQI aggregation).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "export":
		if c.EarthEngine.Project == "" {
			errs = append(errs, "earthengine.project is required")
		}
	case "local":
		if c.Local.CountiesPath == "" {
			errs = append(errs, "local.counties_path is required")
		}
		if c.Local.RasterDir == "" {
			errs = append(errs, "local.raster_dir is required")
		}
		if c.Pipeline.TileScale < 1 || c.Pipeline.TileScale > 16 {
			errs = append(errs, "pipeline.tile_scale must be between 1 and 16")
		}
	case "load":
		if c.Store.Driver != "postgres" {
			errs = append(errs, "store.driver must be postgres")
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "aqi":
		if c.AQI.BaseURL == "" {
			errs = append(errs, "aqi.base_url is required")
		}
		if c.AQI.FromYear <= 0 || c.AQI.ToYear < c.AQI.FromYear {
			errs = append(errs, "aqi.from_year must be > 0 and <= aqi.to_year")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Pipeline.Scale <= 0 {
		errs = append(errs, "pipeline.scale must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
