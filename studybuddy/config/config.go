package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"studybuddy/studybuddy/types"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr   string `yaml:"addr"`
	LogDir string `yaml:"log_dir"`

	UsersFile string `yaml:"users_file"`
	ChatsDir  string `yaml:"chats_dir"`

	JWTSecret     string        `yaml:"jwt_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SessionStore  string        `yaml:"session_store"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	LoginRate     float64       `yaml:"login_rate"`
	LoginBurst    int           `yaml:"login_burst"`

	LLMProvider string        `yaml:"llm_provider"`
	LLMModel    string        `yaml:"llm_model"`
	LLMAPIKey   string        `yaml:"llm_api_key"`
	LLMBaseURL  string        `yaml:"llm_base_url"`
	LLMTimeout  time.Duration `yaml:"llm_timeout"`
	PersonaFile string        `yaml:"persona_file"`

	DBDriver   string `yaml:"db_driver"`
	DBPath     string `yaml:"db_path"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBName     string `yaml:"db_name"`

	CalendarCredentialsFile string `yaml:"calendar_credentials_file"`
	CalendarID              string `yaml:"calendar_id"`
	CalendarTimeZone        string `yaml:"calendar_time_zone"`

	MinIOEndpoint  string `yaml:"minio_endpoint"`
	MinIOAccessKey string `yaml:"minio_access_key"`
	MinIOSecretKey string `yaml:"minio_secret_key"`
	MinIOBucket    string `yaml:"minio_bucket"`
	MinIOUseSSL    bool   `yaml:"minio_use_ssl"`
}

func Defaults() Config {
	return Config{
		Addr:                    ":8000",
		LogDir:                  "./logs",
		UsersFile:               "data/users.json",
		ChatsDir:                "chats",
		SessionTTL:              24 * time.Hour,
		SessionStore:            "memory",
		LoginRate:               1,
		LoginBurst:              5,
		LLMProvider:             "gemini",
		PersonaFile:             "config/persona.properties",
		DBDriver:                "sqlite",
		DBPath:                  "data/studybuddy.db",
		DBPort:                  "5432",
		CalendarCredentialsFile: "credentials.json",
		CalendarID:              "primary",
		CalendarTimeZone:        "UTC",
		MinIOBucket:             "studybuddy-transcripts",
	}
}

// LoadConfig applies defaults, then the YAML file named by CONFIG_FILE
// (config.yaml if unset, optional), then .env, then the environment.
func LoadConfig() (Config, error) {
	cfg := Defaults()

	path := getEnv("CONFIG_FILE", "config.yaml")
	if err := loadYAML(&cfg, path); err != nil {
		return cfg, err
	}

	// .env never overrides variables that are already set.
	_ = godotenv.Load()

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Addr = getEnv("ADDR", cfg.Addr)
	cfg.LogDir = getEnv("LOG_DIR", cfg.LogDir)
	cfg.UsersFile = getEnv("USERS_FILE", cfg.UsersFile)
	cfg.ChatsDir = getEnv("CHATS_DIR", cfg.ChatsDir)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.SessionStore = getEnv("SESSION_STORE", cfg.SessionStore)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.LoginRate = getEnvFloat("LOGIN_RATE", cfg.LoginRate)
	cfg.LoginBurst = getEnvInt("LOGIN_BURST", cfg.LoginBurst)

	cfg.LLMProvider = strings.ToLower(getEnv("LLM_PROVIDER", cfg.LLMProvider))
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMTimeout = getEnvDuration("LLM_TIMEOUT", cfg.LLMTimeout)
	cfg.LLMAPIKey = getEnv("LLM_API_KEY", cfg.LLMAPIKey)
	if cfg.LLMAPIKey == "" {
		switch cfg.LLMProvider {
		case "gemini":
			cfg.LLMAPIKey = os.Getenv("GEMINI_API_KEY")
		case "openai":
			cfg.LLMAPIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			cfg.LLMAPIKey = os.Getenv("GROQ_API_KEY")
		}
	}
	cfg.PersonaFile = getEnv("PERSONA_FILE", cfg.PersonaFile)

	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)

	cfg.CalendarCredentialsFile = getEnv("CALENDAR_CREDENTIALS_FILE", cfg.CalendarCredentialsFile)
	cfg.CalendarID = getEnv("CALENDAR_ID", cfg.CalendarID)
	cfg.CalendarTimeZone = getEnv("CALENDAR_TIME_ZONE", cfg.CalendarTimeZone)

	cfg.MinIOEndpoint = getEnv("MINIO_ENDPOINT", cfg.MinIOEndpoint)
	cfg.MinIOAccessKey = getEnv("MINIO_ACCESS_KEY", cfg.MinIOAccessKey)
	cfg.MinIOSecretKey = getEnv("MINIO_SECRET_KEY", cfg.MinIOSecretKey)
	cfg.MinIOBucket = getEnv("MINIO_BUCKET", cfg.MinIOBucket)
	cfg.MinIOUseSSL = getEnvBool("MINIO_USE_SSL", cfg.MinIOUseSSL)
}

// Validate checks the settings every feature depends on. Feature-specific
// settings (API keys, calendar credentials, MinIO) are checked where the
// feature is built so a missing key only disables that feature.
func (c Config) Validate() error {
	var problems []string
	if c.UsersFile == "" {
		problems = append(problems, "users_file is empty")
	}
	if c.ChatsDir == "" {
		problems = append(problems, "chats_dir is empty")
	}
	if c.SessionTTL <= 0 {
		problems = append(problems, "session_ttl must be positive")
	}
	switch c.SessionStore {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			problems = append(problems, "redis_addr is required for the redis session store")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown session_store %q", c.SessionStore))
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("unknown db_driver %q", c.DBDriver))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", types.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// MinIOEnabled reports whether transcript export is configured.
func (c Config) MinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}
