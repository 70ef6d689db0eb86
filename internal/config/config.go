package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	Password        string
	LogDirectory    string
	StaticDirectory string

	DatabasePath      string
	AnalysisDirectory string // JSON observation logs, one file per strategy

	CameraDevices []string      // Device indexes ("0"), video files or stream URLs
	Framerate     int           // Requested capture framerate
	SampleEvery   int           // Analyze every Nth frame read across all cameras
	MaxDuration   time.Duration // 0 runs until cancelled

	CascadePath         string
	CascadeScaleFactor  float64
	CascadeMinNeighbors int

	AnalyzerURL              string
	AnalyzerDetectorBackend  string
	AnalyzerTimeout          time.Duration
	AnalyzerEnforceDetection bool
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	return &Config{
		Port:                     getEnvAsInt("PORT", 8080),
		Password:                 getEnv("PASSWORD", "facecam"),
		LogDirectory:             getEnv("LOG_DIR", filepath.Join(".", "logs")),
		StaticDirectory:          getEnv("STATIC_DIR", "static"),
		DatabasePath:             getEnv("DB_PATH", filepath.Join("db", "faces.db")),
		AnalysisDirectory:        getEnv("ANALYSIS_DIR", filepath.Join(".", "analysis")),
		CameraDevices:            getEnvAsList("CAMERA_DEVICES", []string{"0"}),
		Framerate:                getEnvAsInt("FRAMERATE", 24),
		SampleEvery:              getEnvAsInt("SAMPLE_EVERY", 24),
		MaxDuration:              getEnvAsDuration("MAX_DURATION", 0),
		CascadePath:              getEnv("CASCADE_PATH", "haarcascade_frontalface_default.xml"),
		CascadeScaleFactor:       getEnvAsFloat("CASCADE_SCALE_FACTOR", 1.1),
		CascadeMinNeighbors:      getEnvAsInt("CASCADE_MIN_NEIGHBORS", 5),
		AnalyzerURL:              getEnv("ANALYZER_URL", "http://localhost:5005"),
		AnalyzerDetectorBackend:  getEnv("ANALYZER_DETECTOR_BACKEND", "mtcnn"),
		AnalyzerTimeout:          getEnvAsDuration("ANALYZER_TIMEOUT", 30*time.Second),
		AnalyzerEnforceDetection: getEnvAsBool("ANALYZER_ENFORCE_DETECTION", false),
	}
}

// AnalysisLogPath returns the JSON log file used by the named strategy.
func (c *Config) AnalysisLogPath(strategy string) string {
	name := "singlemodel_analysis.json"
	if strategy == "hybrid" {
		name = "hybridmodel_analysis.json"
	}
	return filepath.Join(c.AnalysisDirectory, name)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("20s") or plain seconds ("20").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return SplitList(value)
}

// SplitList splits "0, 1,,rtsp://x" into trimmed non-empty items.
func SplitList(value string) []string {
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
