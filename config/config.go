// Package config reads railid settings from the environment.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds application configuration
type Config struct {
	// Storage
	DataDir        string
	CorruptPolicy  string
	PasswordScheme string
	BcryptCost     int

	// Logging
	LogLevel  logrus.Level
	LogFormat string

	// Proximity transport
	BindHost         net.IP
	BindPort         uint16
	AdvertiseAddress string
	SendTimeout      time.Duration
	Peers            []string

	// Device and conductor credentials
	DevicePIN         string
	ConductorUser     string
	ConductorPassword string
}

// Load reads configuration from environment variables. Values from the given
// .env files (default ".env") fill in anything not already set; missing files
// are skipped.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	c := &Config{
		DataDir:           getEnv("RAILID_DATA_DIR", "./railid-data"),
		CorruptPolicy:     getEnv("RAILID_CORRUPT_POLICY", "strict"),
		PasswordScheme:    getEnv("RAILID_PASSWORD_SCHEME", "sha256"),
		LogFormat:         getEnv("RAILID_LOG_FORMAT", "text"),
		AdvertiseAddress:  os.Getenv("RAILID_ADVERTISE_ADDRESS"),
		DevicePIN:         os.Getenv("RAILID_DEVICE_PIN"),
		ConductorUser:     getEnv("RAILID_CONDUCTOR_USER", "tte1"),
		ConductorPassword: getEnv("RAILID_CONDUCTOR_PASSWORD", "tte@123"),
	}

	var err error
	if c.LogLevel, err = logrus.ParseLevel(getEnv("RAILID_LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("RAILID_LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return nil, fmt.Errorf("RAILID_LOG_FORMAT: want text or json, got %q", c.LogFormat)
	}
	if c.BcryptCost, err = strconv.Atoi(getEnv("RAILID_BCRYPT_COST", "0")); err != nil {
		return nil, fmt.Errorf("RAILID_BCRYPT_COST: %w", err)
	}

	host := getEnv("RAILID_BIND_HOST", "127.0.0.1")
	if c.BindHost = net.ParseIP(host); c.BindHost == nil {
		return nil, fmt.Errorf("RAILID_BIND_HOST: invalid ip %q", host)
	}
	port, err := strconv.ParseUint(getEnv("RAILID_BIND_PORT", "0"), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("RAILID_BIND_PORT: %w", err)
	}
	c.BindPort = uint16(port)

	if c.SendTimeout, err = time.ParseDuration(getEnv("RAILID_SEND_TIMEOUT", "3s")); err != nil {
		return nil, fmt.Errorf("RAILID_SEND_TIMEOUT: %w", err)
	}

	c.Peers = splitList(os.Getenv("RAILID_PEERS"))

	return c, nil
}

// Logger builds the process logger from the configured level and format.
func (c *Config) Logger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// splitList reads a comma separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
