package config

import (
	"encoding/json"
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Pipeline *pipelineConfig
	LLM      *llmConfig
	Geo      *geoConfig
	Listing  *listingConfig
	S3       *s3Config
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"planner"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address        string   `envconfig:"ACCESS_PLANNER_ADDRESS" default:":3443"`
	MetricsAddress string   `envconfig:"ACCESS_PLANNER_METRICS_ADDRESS" default:":8080"`
	LogLevel       string   `envconfig:"ACCESS_PLANNER_LOG_LEVEL" default:"info"`
	AllowedOrigins []string `envconfig:"ACCESS_PLANNER_ALLOWED_ORIGINS" default:"*"`
}

type pipelineConfig struct {
	BatchSize        int           `envconfig:"ACCESS_PLANNER_BATCH_SIZE" default:"1"`
	BatchDelay       time.Duration `envconfig:"ACCESS_PLANNER_BATCH_DELAY" default:"2s"`
	FetchParallelism int           `envconfig:"ACCESS_PLANNER_FETCH_PARALLELISM" default:"4"`
	MaxImages        int           `envconfig:"ACCESS_PLANNER_MAX_IMAGES" default:"20"`
	StaleAfter       time.Duration `envconfig:"ACCESS_PLANNER_STALE_AFTER" default:"30m"`
	ReaperInterval   time.Duration `envconfig:"ACCESS_PLANNER_REAPER_INTERVAL" default:"5m"`
}

type llmConfig struct {
	BaseURL     string        `envconfig:"ACCESS_PLANNER_LLM_BASE_URL" default:"https://api.openai.com/v1"`
	APIKey      string        `envconfig:"ACCESS_PLANNER_LLM_API_KEY" default:""`
	TextModel   string        `envconfig:"ACCESS_PLANNER_LLM_TEXT_MODEL" default:"gpt-4o-mini"`
	VisionModel string        `envconfig:"ACCESS_PLANNER_LLM_VISION_MODEL" default:"gpt-4o"`
	Timeout     time.Duration `envconfig:"ACCESS_PLANNER_LLM_TIMEOUT" default:"90s"`
}

type geoConfig struct {
	NominatimURL string        `envconfig:"ACCESS_PLANNER_NOMINATIM_URL" default:"https://nominatim.openstreetmap.org"`
	OverpassURL  string        `envconfig:"ACCESS_PLANNER_OVERPASS_URL" default:"https://overpass-api.de/api/interpreter"`
	ElevationURL string        `envconfig:"ACCESS_PLANNER_ELEVATION_URL" default:"https://api.open-meteo.com/v1/elevation"`
	OpenAQURL    string        `envconfig:"ACCESS_PLANNER_OPENAQ_URL" default:"https://api.openaq.org/v3"`
	OpenAQAPIKey string        `envconfig:"ACCESS_PLANNER_OPENAQ_API_KEY" default:""`
	UserAgent    string        `envconfig:"ACCESS_PLANNER_GEO_USER_AGENT" default:"access-planner/1.0"`
	RadiusMeters int           `envconfig:"ACCESS_PLANNER_GEO_RADIUS" default:"800"`
	AQRadius     int           `envconfig:"ACCESS_PLANNER_AIR_QUALITY_RADIUS" default:"10000"`
	OverpassRPS  float64       `envconfig:"ACCESS_PLANNER_OVERPASS_RPS" default:"1"`
	Timeout      time.Duration `envconfig:"ACCESS_PLANNER_GEO_TIMEOUT" default:"30s"`
}

type listingConfig struct {
	SearchURL    string        `envconfig:"ACCESS_PLANNER_LISTING_SEARCH_URL" default:""`
	SearchAPIKey string        `envconfig:"ACCESS_PLANNER_LISTING_SEARCH_API_KEY" default:""`
	FetchTimeout time.Duration `envconfig:"ACCESS_PLANNER_LISTING_FETCH_TIMEOUT" default:"45s"`
	ImageTimeout time.Duration `envconfig:"ACCESS_PLANNER_IMAGE_TIMEOUT" default:"20s"`
	MaxImageSize int64         `envconfig:"ACCESS_PLANNER_MAX_IMAGE_SIZE" default:"8388608"`
	MaxPageSize  int64         `envconfig:"ACCESS_PLANNER_MAX_PAGE_SIZE" default:"5242880"`
}

type s3Config struct {
	Endpoint  string `envconfig:"ACCESS_PLANNER_S3_ENDPOINT" default:""`
	Bucket    string `envconfig:"ACCESS_PLANNER_S3_BUCKET" default:""`
	Region    string `envconfig:"ACCESS_PLANNER_S3_REGION" default:""`
	Prefix    string `envconfig:"ACCESS_PLANNER_S3_PREFIX" default:"evaluations"`
	AccessKey string `envconfig:"ACCESS_PLANNER_S3_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"ACCESS_PLANNER_S3_SECRET_KEY" default:""`
	UseSSL    bool   `envconfig:"ACCESS_PLANNER_S3_USE_SSL" default:"true"`
}

// Enabled reports whether report archiving is configured.
func (c *s3Config) Enabled() bool {
	return c != nil && c.Endpoint != "" && c.Bucket != ""
}

func New() (*Config, error) {
	if singleConfig == nil {
		cfg := new(Config)
		if err := envconfig.Process("", cfg); err != nil {
			return nil, err
		}
		singleConfig = cfg
	}
	return singleConfig, nil
}

// NewDefault returns the default configuration backed by an in-memory sqlite
// database. It is meant for tests and local runs.
func NewDefault() *Config {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		panic(err)
	}
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = "file::memory:?cache=shared"
	return cfg
}

// String renders the configuration without secrets.
func (c *Config) String() string {
	redacted := *c
	if c.Database != nil {
		db := *c.Database
		db.Password = "<redacted>"
		redacted.Database = &db
	}
	if c.LLM != nil {
		llm := *c.LLM
		llm.APIKey = "<redacted>"
		redacted.LLM = &llm
	}
	if c.S3 != nil {
		s3 := *c.S3
		s3.SecretKey = "<redacted>"
		redacted.S3 = &s3
	}
	if c.Geo != nil {
		geo := *c.Geo
		geo.OpenAQAPIKey = "<redacted>"
		redacted.Geo = &geo
	}
	if c.Listing != nil {
		listing := *c.Listing
		listing.SearchAPIKey = "<redacted>"
		redacted.Listing = &listing
	}
	val, _ := json.Marshal(redacted)
	return string(val)
}
