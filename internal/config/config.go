// Package config loads the run configuration from the environment (and a
// .env file), plus the optional YAML files for sandbox profiles and role
// schemas.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	LLM     LLMConfig
	Repair  RepairConfig
	Sandbox SandboxConfig
	Output  OutputConfig

	RoleSchemaFile string
	TranscriptDir  string
	MetricsFile    string
}

type LLMConfig struct {
	Provider    string  `validate:"oneof=gemini openai groq fake"`
	Model       string  `validate:"omitempty,max=128"`
	APIKey      string  `validate:"required_unless=Provider fake"`
	BaseURL     string  `validate:"omitempty,url"`
	Temperature float32 `validate:"gte=0,lte=2"`
	Timeout     time.Duration
	Retries     int           `validate:"gte=0,lte=10"`
	RetryBase   time.Duration `validate:"gte=0"`
	RPS         float64       `validate:"gte=0"`
	Burst       int           `validate:"gte=0"`
	CacheSize   int           `validate:"gte=0"`
	CacheTTL    time.Duration `validate:"gte=0"`
	FakeScript  string
}

type RepairConfig struct {
	MaxIterations     int `validate:"gte=1,lte=50"`
	FinalSourceRepair bool
}

// DefaultSandboxListen keeps the sandbox server off external interfaces
// unless asked.
const DefaultSandboxListen = "127.0.0.1:8090"

type SandboxConfig struct {
	Mode           string        `validate:"oneof=local remote"`
	URL            string        `validate:"required_if=Mode remote"`
	Profile        string        `validate:"required"`
	ProfileFile    string        `validate:"omitempty,file"`
	Timeout        time.Duration `validate:"gt=0"`
	InstallTimeout time.Duration `validate:"gt=0"`
	WorkRoot       string
	Keep           bool
	Listen         string
	// Token is the shared secret between remote clients and serve-sandbox.
	Token string
}

type OutputConfig struct {
	Store       string `validate:"oneof=file memory s3 postgres"`
	Dir         string `validate:"required_if=Store file"`
	DatabaseURL string `validate:"required_if=Store postgres"`
	S3          S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a Config from getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	e := env{get: getenv}
	provider := strings.ToLower(firstNonEmpty(e.str("LLM_PROVIDER"), "gemini"))
	cfg := &Config{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       e.str("LLM_MODEL"),
			APIKey:      firstNonEmpty(e.str("LLM_API_KEY"), e.str(providerKeyVar(provider))),
			BaseURL:     e.str("LLM_BASE_URL"),
			Temperature: float32(e.float("LLM_TEMPERATURE", 0.7)),
			Timeout:     e.duration("LLM_TIMEOUT", 2*time.Minute),
			Retries:     e.int("LLM_RETRIES", 3),
			RetryBase:   e.duration("LLM_RETRY_BASE", time.Second),
			RPS:         e.float("LLM_RPS", 0),
			Burst:       e.int("LLM_BURST", 1),
			CacheSize:   e.int("LLM_CACHE_SIZE", 0),
			CacheTTL:    e.duration("LLM_CACHE_TTL", time.Hour),
			FakeScript:  e.str("LLM_FAKE_SCRIPT"),
		},
		Repair: RepairConfig{
			MaxIterations:     e.int("MAX_ITERATIONS", 3),
			FinalSourceRepair: e.bool("FINAL_SOURCE_REPAIR", false),
		},
		Sandbox: SandboxConfig{
			Mode:           strings.ToLower(firstNonEmpty(e.str("SANDBOX_MODE"), "local")),
			URL:            e.str("SANDBOX_URL"),
			Profile:        firstNonEmpty(e.str("SANDBOX_PROFILE"), "python"),
			ProfileFile:    e.str("PROFILE_FILE"),
			Timeout:        e.duration("SANDBOX_TIMEOUT", 30*time.Second),
			InstallTimeout: e.duration("SANDBOX_INSTALL_TIMEOUT", 120*time.Second),
			WorkRoot:       e.str("SANDBOX_WORK_ROOT"),
			Keep:           e.bool("SANDBOX_KEEP", false),
			Listen:         firstNonEmpty(e.str("SANDBOX_LISTEN"), DefaultSandboxListen),
			Token:          e.str("SANDBOX_TOKEN"),
		},
		Output: OutputConfig{
			Store:       strings.ToLower(firstNonEmpty(e.str("OUTPUT_STORE"), "file")),
			Dir:         firstNonEmpty(e.str("OUTPUT_DIR"), "output"),
			DatabaseURL: e.str("DATABASE_URL"),
			S3: S3Config{
				Endpoint:  e.str("ARTIFACT_S3_ENDPOINT"),
				Region:    firstNonEmpty(e.str("ARTIFACT_S3_REGION"), "us-east-1"),
				AccessKey: firstNonEmpty(e.str("ARTIFACT_S3_ACCESS_KEY"), e.str("MINIO_ROOT_USER")),
				SecretKey: firstNonEmpty(e.str("ARTIFACT_S3_SECRET_KEY"), e.str("MINIO_ROOT_PASSWORD")),
				Bucket:    firstNonEmpty(e.str("ARTIFACT_S3_BUCKET"), "greycells-runs"),
				UseSSL:    e.bool("ARTIFACT_S3_USE_SSL", true),
			},
		},
		RoleSchemaFile: e.str("ROLE_SCHEMA_FILE"),
		TranscriptDir:  e.str("TRANSCRIPT_DIR"),
		MetricsFile:    e.str("METRICS_FILE"),
	}
	if len(e.errs) > 0 {
		return nil, errors.Join(e.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints. It is called by FromEnv and again by
// callers that change a Config afterwards, e.g. from command-line flags.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: invalid %s", strings.Join(msgs, "; "))
}

func providerKeyVar(provider string) string {
	switch provider {
	case "gemini":
		return "GEMINI_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	}
	return ""
}

// env reads typed values and collects parse errors.
type env struct {
	get  func(string) string
	errs []error
}

func (e *env) str(key string) string {
	if key == "" {
		return ""
	}
	return strings.TrimSpace(e.get(key))
}

func (e *env) int(key string, def int) int {
	raw := e.str(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return v
}

func (e *env) float(key string, def float64) float64 {
	raw := e.str(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return v
}

func (e *env) bool(key string, def bool) bool {
	raw := e.str(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return v
}

// duration accepts Go durations ("90s") and bare seconds ("90").
func (e *env) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key)
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
