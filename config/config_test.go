package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

var keys = []string{
	"RAILID_DATA_DIR", "RAILID_CORRUPT_POLICY", "RAILID_PASSWORD_SCHEME", "RAILID_BCRYPT_COST",
	"RAILID_LOG_LEVEL", "RAILID_LOG_FORMAT", "RAILID_BIND_HOST", "RAILID_BIND_PORT",
	"RAILID_ADVERTISE_ADDRESS", "RAILID_SEND_TIMEOUT", "RAILID_DEVICE_PIN",
	"RAILID_CONDUCTOR_USER", "RAILID_CONDUCTOR_PASSWORD", "RAILID_PEERS",
}

// clearEnv unsets every railid variable and restores them when the test ends.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		k := k
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.DataDir != "./railid-data" || c.CorruptPolicy != "strict" || c.PasswordScheme != "sha256" {
		t.Errorf("storage defaults = %+v", c)
	}
	if c.LogLevel != logrus.InfoLevel || c.LogFormat != "text" {
		t.Errorf("log defaults = %v / %s", c.LogLevel, c.LogFormat)
	}
	if c.BindHost.String() != "127.0.0.1" || c.BindPort != 0 || c.SendTimeout != 3*time.Second {
		t.Errorf("transport defaults = %v:%d %v", c.BindHost, c.BindPort, c.SendTimeout)
	}
	if c.ConductorUser != "tte1" || c.ConductorPassword != "tte@123" {
		t.Errorf("conductor defaults = %s / %s", c.ConductorUser, c.ConductorPassword)
	}
	if len(c.Peers) != 0 {
		t.Errorf("peers default = %v", c.Peers)
	}
}

func TestLoadPeers(t *testing.T) {
	clearEnv(t)
	os.Setenv("RAILID_PEERS", " 10.0.0.1:7001, ,10.0.0.2:7001,")

	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Peers) != 2 || c.Peers[0] != "10.0.0.1:7001" || c.Peers[1] != "10.0.0.2:7001" {
		t.Fatalf("Peers = %q", c.Peers)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	contents := "RAILID_DATA_DIR=/var/lib/railid\nRAILID_BIND_PORT=7001\nRAILID_LOG_FORMAT=json\nRAILID_SEND_TIMEOUT=500ms\n"
	if err := ioutil.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}
	os.Setenv("RAILID_DATA_DIR", "/tmp/override")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DataDir != "/tmp/override" {
		t.Errorf("environment should win over .env, got %s", c.DataDir)
	}
	if c.BindPort != 7001 || c.LogFormat != "json" || c.SendTimeout != 500*time.Millisecond {
		t.Errorf("values from .env not applied: %+v", c)
	}
	if _, ok := c.Logger().Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("Logger formatter = %T", c.Logger().Formatter)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]string{
		"RAILID_LOG_LEVEL":    "chatty",
		"RAILID_LOG_FORMAT":   "xml",
		"RAILID_BCRYPT_COST":  "high",
		"RAILID_BIND_HOST":    "localhost:80",
		"RAILID_BIND_PORT":    "70000",
		"RAILID_SEND_TIMEOUT": "soon",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			os.Setenv(key, value)

			if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Fatalf("Load accepted %s=%s", key, value)
			}
		})
	}
}
