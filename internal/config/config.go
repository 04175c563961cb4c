package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	DatabaseURL          string
	RedisURL             string
	NATSUrl              string
	JWTSecret            string
	SessionTTL           time.Duration
	TutorBaseURL         string
	TutorTimeout         time.Duration
	StudyTipsTimeout     time.Duration
	TutorRetryMax        int
	PassThreshold        int
	QuizTimeLimitMinutes int
	WellbeingInterval    int
	RateLimitMax         int
	RateLimitWindow      time.Duration
	CORSOrigins          string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SANDWICH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Sandwich API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("session.ttl", "168h")
	v.SetDefault("tutor.timeout", "60s")
	v.SetDefault("tutor.study_tips_timeout", "15s")
	v.SetDefault("tutor.retry_max", 2)
	v.SetDefault("course.pass_threshold", 40)
	v.SetDefault("quiz.time_limit_minutes", 30)
	v.SetDefault("wellbeing.checkpoint_interval", 3)
	v.SetDefault("rate_limit.max", 120)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("cors.origins", "*")

	sessionTTL, err := parseDurationSetting(v, "session.ttl", 168*time.Hour)
	if err != nil {
		return Config{}, err
	}
	tutorTimeout, err := parseDurationSetting(v, "tutor.timeout", 60*time.Second)
	if err != nil {
		return Config{}, err
	}
	tipsTimeout, err := parseDurationSetting(v, "tutor.study_tips_timeout", 15*time.Second)
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDurationSetting(v, "rate_limit.window", time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		NATSUrl:              v.GetString("nats.url"),
		JWTSecret:            v.GetString("jwt.secret"),
		SessionTTL:           sessionTTL,
		TutorBaseURL:         v.GetString("tutor.base_url"),
		TutorTimeout:         tutorTimeout,
		StudyTipsTimeout:     tipsTimeout,
		TutorRetryMax:        v.GetInt("tutor.retry_max"),
		PassThreshold:        v.GetInt("course.pass_threshold"),
		QuizTimeLimitMinutes: v.GetInt("quiz.time_limit_minutes"),
		WellbeingInterval:    v.GetInt("wellbeing.checkpoint_interval"),
		RateLimitMax:         v.GetInt("rate_limit.max"),
		RateLimitWindow:      rateWindow,
		CORSOrigins:          v.GetString("cors.origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.TutorBaseURL == "" {
		return Config{}, fmt.Errorf("tutor base url must be provided")
	}

	if cfg.PassThreshold < 0 || cfg.PassThreshold >= 100 {
		return Config{}, fmt.Errorf("pass threshold must be in [0, 100)")
	}

	if cfg.QuizTimeLimitMinutes <= 0 {
		cfg.QuizTimeLimitMinutes = 30
	}

	if cfg.WellbeingInterval <= 0 {
		cfg.WellbeingInterval = 3
	}

	return cfg, nil
}

func parseDurationSetting(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
