package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// ConfigPathEnvVar points at an alternate .env file when none sits next
	// to the executable.
	ConfigPathEnvVar = "AI_TEXT_ASSIST"

	// AuthTokenPathEnvVar points at a file holding the bearer token, for
	// deployments that mount secrets as files.
	AuthTokenPathEnvVar = "AUTH_TOKEN_FILE"

	DefaultServerPort = 18080
	DefaultUserID     = "default_user"
	DefaultHotkeys    = "Ctrl+Alt+T=QUICK_TRANSLATE,Ctrl+Alt+G=FIX_GRAMMAR,Ctrl+Alt+P=POLISH_TEXT"
)

type LoadOptions struct {
	ServerHostOverride string
	ServerPortOverride int
	UserIDOverride     string
}

type Config struct {
	ServerHost        string
	ServerPort        int
	UserID            string
	AuthToken         string
	Hotkeys           map[string]string // combo -> action
	EnableFileLogging bool
	StreamDeadlineSec int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use AI_TEXT_ASSIST env var as a path to a config file
	envPath := resolveEnvPath()
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	hotkeys, err := ParseHotkeys(getEnvWithDefault("HOTKEYS", DefaultHotkeys))
	if err != nil {
		return nil, err
	}

	serverPort := DefaultServerPort
	if v := os.Getenv("SERVER_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 65535 {
			return nil, fmt.Errorf("invalid SERVER_PORT %q", v)
		}
		serverPort = n
	}
	if opts.ServerPortOverride > 0 {
		serverPort = opts.ServerPortOverride
	}

	streamDeadlineSec := 60
	if v := os.Getenv("STREAM_DEADLINE_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			streamDeadlineSec = n
		}
	}

	serverHost := getEnvWithDefault("SERVER_HOST", "127.0.0.1")
	if opts.ServerHostOverride != "" {
		serverHost = opts.ServerHostOverride
	}

	userID := getEnvWithDefault("USER_ID", DefaultUserID)
	if opts.UserIDOverride != "" {
		userID = opts.UserIDOverride
	}

	cfg := &Config{
		ServerHost:        serverHost,
		ServerPort:        serverPort,
		UserID:            userID,
		AuthToken:         resolveAuthToken(),
		Hotkeys:           hotkeys,
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		StreamDeadlineSec: streamDeadlineSec,
	}

	return cfg, nil
}

// WSURL builds the websocket endpoint for the configured user.
func (c *Config) WSURL() string {
	return fmt.Sprintf("ws://%s:%d/ws/%s", c.ServerHost, c.ServerPort, c.UserID)
}

// APIBaseURL builds the HTTP endpoint prefix for request submission.
func (c *Config) APIBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.ServerHost, c.ServerPort)
}

// ParseHotkeys parses "Combo=ACTION,Combo=ACTION" pairs. Combos validate
// later at registration; this only checks the pair shape.
func ParseHotkeys(value string) (map[string]string, error) {
	hotkeys := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		combo, action, ok := strings.Cut(pair, "=")
		combo = strings.TrimSpace(combo)
		action = strings.TrimSpace(action)
		if !ok || combo == "" || action == "" {
			return nil, fmt.Errorf("invalid hotkey binding %q, expected Combo=ACTION", pair)
		}
		hotkeys[combo] = action
	}
	if len(hotkeys) == 0 {
		return nil, fmt.Errorf("no hotkey bindings in %q", value)
	}
	return hotkeys, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	execDir := filepath.Dir(execPath)
	exeEnv := filepath.Join(execDir, ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(ConfigPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func resolveAuthToken() string {
	if keyPath := strings.TrimSpace(os.Getenv(AuthTokenPathEnvVar)); keyPath != "" {
		if data, err := os.ReadFile(keyPath); err == nil {
			if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
				return fileKey
			}
		}
	}

	return os.Getenv("AUTH_TOKEN")
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
