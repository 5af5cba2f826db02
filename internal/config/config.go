package config

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"time"
)

// Config holds all service configuration, resolved once at startup
type Config struct {
	// Browser configuration
	ChromiumPath    string
	RemoteDebugAddr string // host:port of an already-running browser; empty means spawn locally
	LaunchTimeout   time.Duration
	PageReadTimeout time.Duration

	// Server configuration
	ServerPort string

	// Storage configuration
	OutputDir string

	// Redis render cache (optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		RemoteDebugAddr: getEnv("REMOTE_DEBUG_ADDR", ""),
		LaunchTimeout:   getEnvAsDuration("LAUNCH_TIMEOUT", 10*time.Second),
		PageReadTimeout: getEnvAsDuration("PAGE_READ_TIMEOUT", 2*time.Minute),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		OutputDir:  getEnv("OUTPUT_DIR", "/tmp/pdfserve"),

		// Redis defaults
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		CacheTTL:      getEnvAsDuration("CACHE_TTL", 1*time.Hour),
	}

	if cfg.RemoteDebugAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.RemoteDebugAddr); err != nil {
			return nil, fmt.Errorf("REMOTE_DEBUG_ADDR must be host:port: %w", err)
		}
		// Remote mode never launches a browser, so no binary is needed
		return cfg, nil
	}

	chromiumPath, err := findChromium()
	if err != nil {
		return nil, err
	}
	cfg.ChromiumPath = chromiumPath

	return cfg, nil
}

func getEnv(key string, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return duration
}

// findChromium locates the browser binary, preferring CHROMIUM_PATH
func findChromium() (string, error) {
	customPath := os.Getenv("CHROMIUM_PATH")
	if customPath != "" {
		if !fileExists(customPath) {
			return "", fmt.Errorf("chromium binary not found at path: %s", customPath)
		}
		if !isExecutable(customPath) {
			return "", fmt.Errorf("chromium binary found but not executable: %s", customPath)
		}
		return customPath, nil
	}

	// Search common install locations for this OS
	for _, path := range getChromiumPaths(runtime.GOOS) {
		if fileExists(path) && isExecutable(path) {
			return path, nil
		}
	}

	return "", fmt.Errorf("chromium not found in common paths for %s, set CHROMIUM_PATH environment variable", runtime.GOOS)
}

// getChromiumPaths returns common Chromium installation paths based on OS.
func getChromiumPaths(operatingSystem string) []string {
	if operatingSystem == "darwin" {
		return []string{
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		}
	}

	if operatingSystem == "linux" {
		return []string{
			"/usr/bin/chromium-browser",
			"/usr/bin/chromium",
			"/snap/bin/chromium",
			"/usr/bin/google-chrome",
		}
	}

	return []string{}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&0o111 != 0
}
