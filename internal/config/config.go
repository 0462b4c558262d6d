package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/samber/lo"
)

const (
	BackendS3   = "s3"
	BackendFile = "file"
)

// Config holds the service configuration read from the environment.
type Config struct {
	Addr     string `envconfig:"ADDR" default:":8080" validate:"required"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	PromptsFile  string `envconfig:"PROMPTS_FILE" default:"prompts.json"`
	PromptsParam string `envconfig:"PROMPTS_PARAM"`

	GoogleProjectID string `envconfig:"GOOGLE_PROJECT_ID"`
	GoogleLocation  string `envconfig:"GOOGLE_LOCATION"`
	ImagenModel     string `envconfig:"IMAGEN_MODEL_NAME" default:"imagen-3.0-capability-001"`

	SupabaseURL             string `envconfig:"SUPABASE_URL" validate:"omitempty,url"`
	SupabaseServiceKey      string `envconfig:"SUPABASE_SERVICE_KEY"`
	SupabaseKey             string `envconfig:"SUPABASE_KEY"`
	SupabaseServiceKeyParam string `envconfig:"SUPABASE_SERVICE_KEY_PARAM"`
	S3AccessKeyID           string `envconfig:"SUPABASE_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey       string `envconfig:"SUPABASE_S3_SECRET_ACCESS_KEY"`
	S3Region                string `envconfig:"SUPABASE_S3_REGION" default:"us-east-1"`
	Bucket                  string `envconfig:"BUCKET"`

	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"s3" validate:"oneof=s3 file"`
	FileStoreDir   string `envconfig:"FILE_STORE_DIR" default:"generated"`
	PublicBaseURL  string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080" validate:"omitempty,url"`

	MaxUploadBytes  int64         `envconfig:"MAX_UPLOAD_BYTES" default:"10485760" validate:"gt=0"`
	GenerateTimeout time.Duration `envconfig:"GENERATE_TIMEOUT" default:"90s" validate:"gt=0"`
	UploadTimeout   time.Duration `envconfig:"UPLOAD_TIMEOUT" default:"30s" validate:"gt=0"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// ServiceKey returns SUPABASE_SERVICE_KEY, falling back to SUPABASE_KEY.
func (c *Config) ServiceKey() string {
	return lo.Ternary(c.SupabaseServiceKey != "", c.SupabaseServiceKey, c.SupabaseKey)
}

// MissingEditor lists the unset variables the image editor needs.
func (c *Config) MissingEditor() []string {
	return missing(map[string]string{
		"GOOGLE_PROJECT_ID": c.GoogleProjectID,
		"GOOGLE_LOCATION":   c.GoogleLocation,
		"IMAGEN_MODEL_NAME": c.ImagenModel,
	})
}

// MissingStore lists the unset variables the configured storage backend needs.
// A service key held in SSM counts as set.
func (c *Config) MissingStore() []string {
	if c.StorageBackend == BackendFile {
		return missing(map[string]string{
			"BUCKET":         c.Bucket,
			"FILE_STORE_DIR": c.FileStoreDir,
		})
	}
	key := lo.Ternary(c.SupabaseServiceKeyParam != "", c.SupabaseServiceKeyParam, c.ServiceKey())
	if c.S3AccessKeyID != "" && c.S3SecretAccessKey != "" {
		key = c.S3AccessKeyID
	}
	return missing(map[string]string{
		"SUPABASE_URL":         c.SupabaseURL,
		"SUPABASE_SERVICE_KEY": key,
		"BUCKET":               c.Bucket,
	})
}

func missing(vars map[string]string) []string {
	names := lo.Keys(lo.PickBy(vars, func(_ string, v string) bool { return v == "" }))
	slices.Sort(names)
	return names
}
