package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default lanes. Routing by question type groups similar work so a slow
// grader cannot starve the cheap ones.
const (
	LaneChoice        = "mcq-queue"
	LaneOrchestration = "desc-queue"
	LaneCoding        = "coding-queue"
)

// Config holds all runtime settings, loaded from the environment with
// development defaults.
type Config struct {
	HTTPPort string

	RedisAddr     string
	MongoURI      string
	MongoDatabase string

	// Queue runtime
	LaneWorkers  map[string]int
	DefaultLane  string
	MaxRetries   int
	RetryDelay   time.Duration
	MaxRetryWait time.Duration
	ResultTTL    time.Duration
	ProgressTTL  time.Duration

	// AggregateWait bounds how long a student aggregation may block on its
	// question tasks before reporting the stragglers as system errors.
	AggregateWait time.Duration

	// question type -> execution lane
	Lanes map[string]string

	// Auth
	JWTSecret    string
	ClientID     string
	ClientSecret string

	LogLevel slog.Level
}

// Load reads configuration from the environment, honoring a .env file when
// present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPPort:      getEnv("PORT", "4040"),
		RedisAddr:     normalizeRedisAddr(getEnv("REDIS_ADDR", "localhost:6379")),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "evalify"),
		LaneWorkers: map[string]int{
			LaneChoice:        getEnvInt("MCQ_WORKERS", 8),
			LaneOrchestration: getEnvInt("ORCHESTRATION_WORKERS", 4),
			LaneCoding:        getEnvInt("CODING_WORKERS", 2),
		},
		DefaultLane:  getEnv("DEFAULT_LANE", LaneOrchestration),
		MaxRetries:   getEnvInt("TASK_MAX_RETRIES", 3),
		RetryDelay:   getEnvDuration("TASK_RETRY_DELAY", 5*time.Second),
		MaxRetryWait: getEnvDuration("TASK_MAX_RETRY_WAIT", time.Minute),
		ResultTTL:    getEnvDuration("RESULT_EXPIRES", time.Hour),
		ProgressTTL:  getEnvDuration("PROGRESS_EXPIRES", 24*time.Hour),

		AggregateWait: getEnvDuration("STUDENT_AGGREGATE_WAIT", 10*time.Minute),

		Lanes:        parseLanes(getEnv("QUESTION_TYPE_LANES", defaultLaneSpec)),
		JWTSecret:    getEnv("JWT_SECRET", "super-secret-key-change-in-production"),
		ClientID:     getEnv("SERVICE_CLIENT_ID", "evalify-backend"),
		ClientSecret: getEnv("SERVICE_CLIENT_SECRET", "password123"),
		LogLevel:     parseLogLevel(getEnv("LOG_LEVEL", "INFO")),
	}
}

const defaultLaneSpec = "MCQ=" + LaneChoice +
	",FITB=" + LaneChoice +
	",MATCHING=" + LaneChoice +
	",TRUE_FALSE=" + LaneChoice +
	",DESCRIPTIVE=" + LaneOrchestration +
	",STUB_SLEEP=" + LaneOrchestration +
	",CODING=" + LaneCoding

// LaneFor maps a question type to its execution lane. Unknown types fall
// back to the default lane; an empty default disables the fallback.
func (c *Config) LaneFor(questionType string) string {
	if lane, ok := c.Lanes[questionType]; ok {
		return lane
	}
	return c.DefaultLane
}

func parseLanes(spec string) map[string]string {
	lanes := make(map[string]string)
	for _, pair := range strings.Split(spec, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || key == "" || val == "" {
			continue
		}
		lanes[key] = val
	}
	return lanes
}

func normalizeRedisAddr(addr string) string {
	return strings.TrimPrefix(addr, "redis://")
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
