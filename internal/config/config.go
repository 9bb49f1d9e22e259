package config

import (
	"os"
	"strconv"
	"time"
)

// Lock holds the lease parameters for the distributed lock manager.
type Lock struct {
	HoldTimeout   time.Duration
	WaitTimeout   time.Duration
	RetryInterval time.Duration
}

// Sandbox holds the resource ceilings for fare script execution.
type Sandbox struct {
	Timeout        time.Duration
	MaxMemoryBytes int
}

// Scheduler holds the trigger engine timing policy.
type Scheduler struct {
	TickInterval        time.Duration
	CreationLead        time.Duration
	StartLead           time.Duration
	MaxDutiesPerService int
}

// Config is the explicit configuration injected into each component at
// construction. Tests override individual limits instead of mutating
// process-wide state.
type Config struct {
	HTTPAddr    string
	DatabaseURL string
	RedisAddr   string
	RedisPass   string

	Lock      Lock
	Sandbox   Sandbox
	Scheduler Scheduler
}

// Load reads configuration from the environment, falling back to the
// defaults the platform has always shipped with.
func Load() Config {
	return Config{
		HTTPAddr:    Get("HTTP_ADDR", ":8080"),
		DatabaseURL: Get("DATABASE_URL", ""),
		RedisAddr:   Get("REDIS_ADDR", "localhost:6379"),
		RedisPass:   Get("REDIS_PASSWORD", ""),
		Lock: Lock{
			HoldTimeout:   GetDuration("LOCK_HOLD_TIMEOUT", 10*time.Second),
			WaitTimeout:   GetDuration("LOCK_WAIT_TIMEOUT", 10*time.Second),
			RetryInterval: GetDuration("LOCK_RETRY_INTERVAL", 100*time.Millisecond),
		},
		Sandbox: Sandbox{
			Timeout:        GetDuration("SCRIPT_TIMEOUT", 1000*time.Millisecond),
			MaxMemoryBytes: GetInt("SCRIPT_MAX_MEMORY_BYTES", 10*1024*1024),
		},
		Scheduler: Scheduler{
			TickInterval:        GetDuration("SCHEDULER_TICK_INTERVAL", time.Minute),
			CreationLead:        GetDuration("SERVICE_CREATION_LEAD", 24*time.Hour),
			StartLead:           GetDuration("SERVICE_START_LEAD", 60*time.Minute),
			MaxDutiesPerService: GetInt("MAX_DUTIES_PER_SERVICE", 50),
		},
	}
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
