package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var profilesYAML []byte

type Config struct {
	Detector Detector
	Capture  Capture
	Tracking Tracking
	Database Database
	Profiles Profiles
}

// Detector configures the external face detection / embedding service.
type Detector struct {
	URL     string // defaults to http://localhost:8000
	Dim     int    // embedding dimensionality, defaults to 128
	Timeout time.Duration
}

// Capture configures the frame source.
type Capture struct {
	URL string // MJPEG stream URL, or dir:/path/to/frames for a frame directory
	// Number of consecutive read failures before the source is released
	// and reinitialized.
	MaxFailures int
	RetryDelay  time.Duration // delay between read retries
	ReinitDelay time.Duration // delay before reopening the source
	Width       int           // placeholder frame width
	Height      int           // placeholder frame height
}

// Tracking configures the identity lifecycle manager.
type Tracking struct {
	Profile        string // matching profile name from profiles.yaml
	MaxAge         time.Duration
	SweepInterval  time.Duration
	MaxProvisional int // hard cap on tracked provisional identities
}

type Database struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int
	MaxIdleConns int
}

type Profiles struct {
	Profiles map[string]MatchProfile `yaml:"profiles"`
}

// MatchProfile holds the thresholds for embedding comparison.
type MatchProfile struct {
	Tolerance   float64 `yaml:"tolerance"`
	CosineFloor float64 `yaml:"cosine_floor"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envSeconds reads an environment variable as a number of seconds.
func envSeconds(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var profiles Profiles
	if err := yaml.Unmarshal(profilesYAML, &profiles); err != nil {
		// Embedded file, so this should never happen in practice
		panic("failed to unmarshal embedded profiles.yaml: " + err.Error())
	}

	return &Config{
		Detector: Detector{
			URL:     envString("FACE_DETECTOR_URL", "http://localhost:8000"),
			Dim:     envInt("FACE_EMBEDDING_DIM", 128),
			Timeout: envSeconds("FACE_DETECTOR_TIMEOUT_SECONDS", 10*time.Second),
		},
		Capture: Capture{
			URL:         os.Getenv("CAPTURE_URL"),
			MaxFailures: envInt("CAPTURE_MAX_FAILURES", 5),
			RetryDelay:  envSeconds("CAPTURE_RETRY_SECONDS", 1*time.Second),
			ReinitDelay: envSeconds("CAPTURE_REINIT_SECONDS", 5*time.Second),
			Width:       envInt("CAPTURE_WIDTH", 640),
			Height:      envInt("CAPTURE_HEIGHT", 480),
		},
		Tracking: Tracking{
			Profile:        envString("TRACKING_PROFILE", "default"),
			MaxAge:         envSeconds("TRACKING_MAX_AGE_SECONDS", 300*time.Second),
			SweepInterval:  envSeconds("TRACKING_SWEEP_SECONDS", 10*time.Second),
			MaxProvisional: envInt("TRACKING_MAX_PROVISIONAL", 64),
		},
		Database: Database{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Profiles: profiles,
	}
}

// MatchProfile returns the named matching profile, falling back to the
// default profile when the name is unknown.
func (c *Config) MatchProfile(name string) MatchProfile {
	if p, ok := c.Profiles.Profiles[name]; ok {
		return p
	}
	return c.Profiles.Profiles["default"]
}
