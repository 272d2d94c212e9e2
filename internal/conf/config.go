// config.go: settings structs and functions to load and persist the
// application configuration.
package conf

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nutriscan/arnutri-go/internal/errors"
)

const osWindows = "windows"

// RotationType defines the log rotation strategy.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// LogConfig contains settings for a rotated log file.
type LogConfig struct {
	Enabled     bool         // true to enable this log
	Path        string       // path to the log file
	Rotation    RotationType // type of log rotation
	MaxSize     int64        // max size in bytes for RotationSize
	RotationDay string       // day of the week for RotationWeekly
}

// MainSettings contains top-level application settings.
type MainSettings struct {
	Name string    // instance name, used in logs and the web UI
	Log  LogConfig // main log settings
}

// CameraSettings selects the camera the browser should acquire.
type CameraSettings struct {
	Facing string // "back" or "front"
}

// VisionSettings configure the no-barcode image recognition mode.
type VisionSettings struct {
	Enabled      bool          // true to offer the visual recognition mode
	CaptureEvery time.Duration // cadence of periodic background classification
	MinInterval  time.Duration // minimum spacing between surfaced recognitions
}

// ScannerSettings configure barcode detection handling.
type ScannerSettings struct {
	Debug        bool           // true to enable scanner debug logging
	Camera       CameraSettings // camera facing preference
	RearmDelay   time.Duration  // delay before re-enabling detection after a resolved scan
	RearmOnError time.Duration  // delay before re-enabling detection after a failed lookup
	Vision       VisionSettings // visual recognition mode settings
}

// LookupSettings configure the remote product database client.
type LookupSettings struct {
	Debug       bool          // true to enable lookup debug logging
	BaseURL     string        // product API base URL
	Timeout     time.Duration // per-request timeout
	RateLimitMS int           // milliseconds between requests
	UserAgent   string        // User-Agent header sent to the product API
}

// PanelSettings describe the nominal panel rectangle in fallback 2D mode.
type PanelSettings struct {
	Width  float64 // nominal panel width in px
	Height float64 // nominal panel height in px
}

// DisplaySettings configure panel placement.
type DisplaySettings struct {
	Mode          string        // "ar" or "screen"
	ViewportW     float64       // viewport width in px, updated by the client at session start
	ViewportH     float64       // viewport height in px
	Panel         PanelSettings // nominal panel rectangle
	Margin        float64       // viewport margin kept clear on all sides
	Jitter        float64       // max random offset per axis applied to stacked panels
	VerticalRatio float64       // vertical base position as a fraction of viewport height
	ARDistance    float64       // camera-relative placement distance when no hit test is available
	RemovalFade   time.Duration // duration of the host's removal transition
}

// OrientationSettings configure device-orientation driven repositioning.
type OrientationSettings struct {
	Debug          bool    // true to enable orientation debug logging
	Sensitivity    float64 // px moved per degree of gamma tilt
	NoiseThreshold float64 // degrees below which deltas are ignored
}

// CompareSettings configure the comparison grid layout.
type CompareSettings struct {
	Scale     float64 // uniform scale-down factor applied in comparison mode
	RowHeight float64 // vertical distance between grid rows in px
	TopOffset float64 // y position of the first grid row in px
}

// WebServerSettings configure the HTTP API server.
type WebServerSettings struct {
	Enabled bool   // true to enable the web server
	Port    string // port to listen on
	Debug   bool   // true to enable request logging
}

// TelemetrySettings configure the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to expose metrics
	Listen  string // listen address and port
}

// Settings is the root configuration object.
type Settings struct {
	Debug bool // global debug flag

	Main        MainSettings
	Scanner     ScannerSettings
	Lookup      LookupSettings
	Display     DisplaySettings
	Orientation OrientationSettings
	Compare     CompareSettings
	WebServer   WebServerSettings
	Telemetry   TelemetrySettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into a new Settings instance and stores it
// as the global settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the default settings to the first config path
// and reads them back in.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	defaults := &Settings{}
	if err := viper.Unmarshal(defaults); err != nil {
		return fmt.Errorf("error unmarshaling default config: %w", err)
	}

	yamlBytes, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("error marshaling default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, yamlBytes, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// GetSettings returns the current global settings, or nil before Load().
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the global settings, loading them on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SetTestSettings replaces the global settings instance. Intended for tests.
func SetTestSettings(settings *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = settings
}

// GetDefaultConfigPaths returns OS-specific configuration directories.
// If an existing config.yaml is found, only its directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-executable-path").
			Build()
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "arnutri-go"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "arnutri-go"),
			"/etc/arnutri-go",
		}
	}

	for _, path := range configPaths {
		configFile := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFile); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}
