package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed courses.yaml
var coursesYAML []byte

type Config struct {
	Matcher  MatcherConfig
	Database DatabaseConfig
	Legacy   LegacyConfig
	Courses  CoursesConfig
}

type MatcherConfig struct {
	EmbeddingDim int     // length of face descriptors produced by the kiosk model
	Threshold    float64 // maximum L2 distance accepted as a positive match
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type LegacyConfig struct {
	DatabaseURL string // MySQL DSN of the previous attendance system, used by the import command
}

type CoursesConfig struct {
	Courses []Course `yaml:"courses"`
}

type Course struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
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

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var courses CoursesConfig
	if err := yaml.Unmarshal(coursesYAML, &courses); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded courses.yaml: " + err.Error())
	}

	return &Config{
		Matcher: MatcherConfig{
			EmbeddingDim: envInt("EMBEDDING_DIM", 128),
			// 0.6 is an empirical cutoff tied to the kiosk embedding model;
			// swapping the model requires re-validating this value.
			Threshold: envFloat("MATCH_THRESHOLD", 0.6),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Legacy: LegacyConfig{
			DatabaseURL: os.Getenv("LEGACY_DATABASE_URL"),
		},
		Courses: courses,
	}
}

// CourseName returns the display name for a course code, or the code itself
// when the catalog does not know it.
func (c *Config) CourseName(code string) string {
	for _, course := range c.Courses.Courses {
		if course.Code == code {
			return course.Name
		}
	}
	return code
}
