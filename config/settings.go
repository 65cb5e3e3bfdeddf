package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const defaultAllowedOrigins = "http://localhost:5173,http://localhost:5174"

// Settings are the application knobs read from the environment. Backend
// connection strings are read by the Init* functions.
type Settings struct {
	Port           string
	JWTSecret      string
	AllowedOrigins []string
	RingingTimeout time.Duration
	SweepInterval  time.Duration
	AMQPURL        string
	AMQPExchange   string
	GinMode        string
}

func Load() (Settings, error) {
	s := Settings{
		Port:         getenv("PORT", "8080"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: os.Getenv("AMQP_EXCHANGE"),
		GinMode:      os.Getenv("GIN_MODE"),
	}

	for _, o := range strings.Split(getenv("ALLOWED_ORIGINS", defaultAllowedOrigins), ",") {
		if o = strings.TrimSpace(o); o != "" {
			s.AllowedOrigins = append(s.AllowedOrigins, o)
		}
	}

	var err error
	if s.RingingTimeout, err = durationEnv("RINGING_TIMEOUT", 45*time.Second); err != nil {
		return s, err
	}
	if s.SweepInterval, err = durationEnv("SWEEP_INTERVAL", 15*time.Second); err != nil {
		return s, err
	}
	if s.RingingTimeout > 0 && s.SweepInterval <= 0 {
		return s, fmt.Errorf("SWEEP_INTERVAL must be positive when RINGING_TIMEOUT is set")
	}
	return s, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	if raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
