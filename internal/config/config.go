package config

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/parallax_steering/internal/orientation"
	"github.com/relabs-tech/parallax_steering/internal/smoother"
	"github.com/relabs-tech/parallax_steering/internal/steering"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string `toml:"mqtt_broker" yaml:"mqtt_broker"`
	MQTTClientIDProducer string `toml:"mqtt_client_id_producer" yaml:"mqtt_client_id_producer"`
	MQTTClientIDSteering string `toml:"mqtt_client_id_steering" yaml:"mqtt_client_id_steering"`
	MQTTClientIDConsole  string `toml:"mqtt_client_id_console" yaml:"mqtt_client_id_console"`
	MQTTClientIDWeb      string `toml:"mqtt_client_id_web" yaml:"mqtt_client_id_web"`
	MQTTClientIDDisplay  string `toml:"mqtt_client_id_display" yaml:"mqtt_client_id_display"`

	// Topics
	TopicAccel    string `toml:"topic_accel" yaml:"topic_accel"`
	TopicMag      string `toml:"topic_mag" yaml:"topic_mag"`
	TopicSteering string `toml:"topic_steering" yaml:"topic_steering"`
	TopicSession  string `toml:"topic_session" yaml:"topic_session"` // "pause" / "resume"

	// Signal filter
	FilterAlpha float64 `toml:"filter_alpha" yaml:"filter_alpha"`
	DegreeXMin  float64 `toml:"degree_x_min" yaml:"degree_x_min"`
	DegreeXMax  float64 `toml:"degree_x_max" yaml:"degree_x_max"`
	DegreeYMin  float64 `toml:"degree_y_min" yaml:"degree_y_min"`
	DegreeYMax  float64 `toml:"degree_y_max" yaml:"degree_y_max"`

	// Smoother
	SmootherSpeed       float64 `toml:"smoother_speed" yaml:"smoother_speed"`
	SmootherThreshold   float64 `toml:"smoother_threshold" yaml:"smoother_threshold"`
	SteeringMode        string  `toml:"steering_mode" yaml:"steering_mode"` // "intent" or "ease"
	EaseDurationMS      int     `toml:"ease_duration_ms" yaml:"ease_duration_ms"`
	ResetFilterOnResume bool    `toml:"reset_filter_on_resume" yaml:"reset_filter_on_resume"`

	// Sample source: "mock", "imu" or "serial"
	SampleSource string `toml:"sample_source" yaml:"sample_source"`

	// Serial sensor board
	SerialPort     string `toml:"serial_port" yaml:"serial_port"`
	SerialBaudRate int    `toml:"serial_baud_rate" yaml:"serial_baud_rate"`

	// IMU Hardware
	IMUSPIDevice string `toml:"imu_spi_device" yaml:"imu_spi_device"`
	IMUCSPin     string `toml:"imu_cs_pin" yaml:"imu_cs_pin"`
	MagI2CBus    string `toml:"mag_i2c_bus" yaml:"mag_i2c_bus"`
	MagI2CAddr   uint16 `toml:"mag_i2c_addr" yaml:"mag_i2c_addr"`

	// Timing
	SampleInterval int `toml:"sample_interval" yaml:"sample_interval"`   // milliseconds
	FrameInterval  int `toml:"frame_interval" yaml:"frame_interval"`     // milliseconds
	FPSLogInterval int `toml:"fps_log_interval" yaml:"fps_log_interval"` // milliseconds, 0 disables

	// Web Server
	WebServerPort int    `toml:"web_server_port" yaml:"web_server_port"`
	WebStaticDir  string `toml:"web_static_dir" yaml:"web_static_dir"`

	// Display
	DisplayI2CAddr        uint16 `toml:"display_i2c_addr" yaml:"display_i2c_addr"`
	DisplayUpdateInterval int    `toml:"display_update_interval" yaml:"display_update_interval"` // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal/Get/swap.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for init and hot reload, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for any key a file leaves out.
func Default() *Config {
	return &Config{
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDProducer: "parallax-sample-producer",
		MQTTClientIDSteering: "parallax-steering",
		MQTTClientIDConsole:  "parallax-console",
		MQTTClientIDWeb:      "parallax-web",
		MQTTClientIDDisplay:  "parallax-display",

		TopicAccel:    "parallax/sensor/accel",
		TopicMag:      "parallax/sensor/mag",
		TopicSteering: "parallax/steering",
		TopicSession:  "parallax/session",

		FilterAlpha: orientation.DefaultAlpha,
		DegreeXMin:  orientation.DefaultBounds.MinX,
		DegreeXMax:  orientation.DefaultBounds.MaxX,
		DegreeYMin:  orientation.DefaultBounds.MinY,
		DegreeYMax:  orientation.DefaultBounds.MaxY,

		SmootherSpeed:     smoother.DefaultSpeed,
		SmootherThreshold: smoother.DefaultThreshold,
		SteeringMode:      string(steering.ModeIntent),
		EaseDurationMS:    int(smoother.DefaultEaseDuration / time.Millisecond),

		SampleSource: "mock",

		SerialPort:     "/dev/ttyUSB0",
		SerialBaudRate: 115200,

		IMUSPIDevice: "/dev/spidev0.0",
		IMUCSPin:     "8",
		MagI2CBus:    "1",
		MagI2CAddr:   0x0C,

		SampleInterval: 20,
		FrameInterval:  16,
		FPSLogInterval: 1000,

		WebServerPort: 8080,
		WebStaticDir:  "web",

		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 100,
	}
}

// Load reads a configuration file. The format follows the extension:
// .toml and .yaml/.yml are decoded structurally, anything else is parsed
// as KEY=VALUE lines. Missing keys keep their Default() values.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	var err error
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		_, err = toml.DecodeFile(configPath, cfg)
		if err != nil {
			err = fmt.Errorf("failed to decode TOML config: %w", err)
		}
	case ".yaml", ".yml":
		err = loadYAML(configPath, cfg)
	default:
		err = loadKeyValue(configPath, cfg)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(configPath string, cfg *Config) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode YAML config: %w", err)
	}
	return nil
}

func loadKeyValue(configPath string, cfg *Config) error {
	file, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_STEERING":
		c.MQTTClientIDSteering = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_ACCEL":
		c.TopicAccel = value
	case "TOPIC_MAG":
		c.TopicMag = value
	case "TOPIC_STEERING":
		c.TopicSteering = value
	case "TOPIC_SESSION":
		c.TopicSession = value

	// Signal filter
	case "FILTER_ALPHA":
		return parseFloat(key, value, &c.FilterAlpha)
	case "DEGREE_X_MIN":
		return parseFloat(key, value, &c.DegreeXMin)
	case "DEGREE_X_MAX":
		return parseFloat(key, value, &c.DegreeXMax)
	case "DEGREE_Y_MIN":
		return parseFloat(key, value, &c.DegreeYMin)
	case "DEGREE_Y_MAX":
		return parseFloat(key, value, &c.DegreeYMax)

	// Smoother
	case "SMOOTHER_SPEED":
		return parseFloat(key, value, &c.SmootherSpeed)
	case "SMOOTHER_THRESHOLD":
		return parseFloat(key, value, &c.SmootherThreshold)
	case "STEERING_MODE":
		c.SteeringMode = value
	case "EASE_DURATION_MS":
		return parseInt(key, value, &c.EaseDurationMS)
	case "RESET_FILTER_ON_RESUME":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		c.ResetFilterOnResume = b

	// Sample source
	case "SAMPLE_SOURCE":
		c.SampleSource = value

	// Serial sensor board
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		return parseInt(key, value, &c.SerialBaudRate)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "MAG_I2C_BUS":
		c.MagI2CBus = value
	case "MAG_I2C_ADDR":
		return parseAddr(key, value, &c.MagI2CAddr)

	// Timing
	case "SAMPLE_INTERVAL":
		return parseInt(key, value, &c.SampleInterval)
	case "FRAME_INTERVAL":
		return parseInt(key, value, &c.FrameInterval)
	case "FPS_LOG_INTERVAL":
		return parseInt(key, value, &c.FPSLogInterval)

	// Web Server
	case "WEB_SERVER_PORT":
		return parseInt(key, value, &c.WebServerPort)
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	// Display
	case "DISPLAY_I2C_ADDR":
		return parseAddr(key, value, &c.DisplayI2CAddr)
	case "DISPLAY_UPDATE_INTERVAL":
		return parseInt(key, value, &c.DisplayUpdateInterval)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parseFloat(key, value string, dst *float64) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

func parseInt(key, value string, dst *int) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

func parseAddr(key, value string, dst *uint16) error {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = uint16(addr)
	return nil
}

// validate checks required fields and value ranges.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicAccel == "" || c.TopicMag == "" || c.TopicSteering == "" {
		return fmt.Errorf("TOPIC_ACCEL, TOPIC_MAG and TOPIC_STEERING are required")
	}
	if err := orientation.ValidateAlpha(c.FilterAlpha); err != nil {
		return fmt.Errorf("FILTER_ALPHA must be in (0, 1], got %g", c.FilterAlpha)
	}
	if err := c.Bounds().Validate(); err != nil {
		return fmt.Errorf("DEGREE_X/Y bounds: %w", err)
	}
	if math.IsNaN(c.SmootherSpeed) || c.SmootherSpeed <= 0 {
		return fmt.Errorf("SMOOTHER_SPEED must be > 0, got %g", c.SmootherSpeed)
	}
	if math.IsNaN(c.SmootherThreshold) || c.SmootherThreshold < 0 {
		return fmt.Errorf("SMOOTHER_THRESHOLD must be >= 0, got %g", c.SmootherThreshold)
	}
	if _, err := steering.ParseMode(c.SteeringMode); err != nil {
		return fmt.Errorf("STEERING_MODE: %w", err)
	}
	if c.EaseDurationMS < 0 {
		return fmt.Errorf("EASE_DURATION_MS must be >= 0, got %d", c.EaseDurationMS)
	}
	switch c.SampleSource {
	case "mock", "imu", "serial":
	default:
		return fmt.Errorf("SAMPLE_SOURCE must be mock, imu or serial, got %q", c.SampleSource)
	}
	if c.SampleSource == "serial" && (c.SerialPort == "" || c.SerialBaudRate <= 0) {
		return fmt.Errorf("SERIAL_PORT and SERIAL_BAUD_RATE are required for the serial source")
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be > 0, got %d", c.SampleInterval)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("FRAME_INTERVAL must be > 0, got %d", c.FrameInterval)
	}
	if c.FPSLogInterval < 0 {
		return fmt.Errorf("FPS_LOG_INTERVAL must be >= 0, got %d", c.FPSLogInterval)
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be > 0, got %d", c.DisplayUpdateInterval)
	}
	return nil
}

// Bounds returns the configured tilt clamp ranges.
func (c *Config) Bounds() orientation.Bounds {
	return orientation.Bounds{
		MinX: c.DegreeXMin,
		MaxX: c.DegreeXMax,
		MinY: c.DegreeYMin,
		MaxY: c.DegreeYMax,
	}
}

// SteeringSettings converts the config into controller settings.
func (c *Config) SteeringSettings() steering.Settings {
	return steering.Settings{
		Alpha:         c.FilterAlpha,
		Bounds:        c.Bounds(),
		Speed:         c.SmootherSpeed,
		Threshold:     c.SmootherThreshold,
		Mode:          steering.Mode(c.SteeringMode),
		EaseDuration:  time.Duration(c.EaseDurationMS) * time.Millisecond,
		ResetOnResume: c.ResetFilterOnResume,
	}
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// swap replaces the global configuration after a successful reload.
func swap(cfg *Config) {
	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
}
