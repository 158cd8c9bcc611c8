package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PinsConfig names the GPIO lines wired to the panel's control signals.
// Names are resolved through gpioreg, so both "GPIO23" and "23" work.
type PinsConfig struct {
	PanelOn    string `yaml:"panel_on" json:"panel_on"`
	Border     string `yaml:"border" json:"border"`
	Discharge  string `yaml:"discharge" json:"discharge"`
	Reset      string `yaml:"reset" json:"reset"`
	Busy       string `yaml:"busy" json:"busy"`
	ChipSelect string `yaml:"chip_select" json:"chip_select"`
}

// Config is the top-level application configuration.
type Config struct {
	// Panel is the display model: "1.44", "2.0" or "2.7".
	Panel string `yaml:"panel" json:"panel"`

	// SPIPort is the spireg name of the SPI port ("" picks the first one).
	SPIPort string `yaml:"spi_port" json:"spi_port"`

	// SPIHz caps the SPI clock in hertz. Zero uses the driver default.
	SPIHz int64 `yaml:"spi_hz" json:"spi_hz"`

	// Pins is the control pin wiring.
	Pins PinsConfig `yaml:"pins" json:"pins"`

	// Sensor selects the temperature source: "lm75" reads the on-board
	// sensor over I2C, "fixed" uses the Temperature value below.
	Sensor string `yaml:"sensor" json:"sensor"`

	// I2CBus is the i2creg name of the bus carrying the LM75 ("" picks
	// the first one).
	I2CBus string `yaml:"i2c_bus" json:"i2c_bus"`

	// LM75Addr is the 7-bit I2C address of the sensor.
	LM75Addr uint16 `yaml:"lm75_addr" json:"lm75_addr"`

	// Temperature is the assumed ambient in degrees Celsius when Sensor
	// is "fixed".
	Temperature int `yaml:"temperature" json:"temperature"`

	// Image is the default image path for draw runs without an argument.
	Image string `yaml:"image" json:"image"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used by daemon mode to redraw periodically.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is the minimum log level: "debug", "info" or "error".
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration matching the
// stock Raspberry Pi evaluation board wiring.
func DefaultConfig() *Config {
	return &Config{
		Panel:   "2.0",
		SPIPort: "",
		SPIHz:   0,
		Pins: PinsConfig{
			PanelOn:    "GPIO23",
			Border:     "GPIO27",
			Discharge:  "GPIO22",
			Reset:      "GPIO24",
			Busy:       "GPIO25",
			ChipSelect: "GPIO8",
		},
		Sensor:      "lm75",
		I2CBus:      "",
		LM75Addr:    0x49,
		Temperature: 25,
		RefreshCron: "*/15 * * * *",
		LogLevel:    "info",
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Panel == "" {
		c.Panel = "2.0"
	}
	d := DefaultConfig()
	if c.Pins.PanelOn == "" {
		c.Pins.PanelOn = d.Pins.PanelOn
	}
	if c.Pins.Border == "" {
		c.Pins.Border = d.Pins.Border
	}
	if c.Pins.Discharge == "" {
		c.Pins.Discharge = d.Pins.Discharge
	}
	if c.Pins.Reset == "" {
		c.Pins.Reset = d.Pins.Reset
	}
	if c.Pins.Busy == "" {
		c.Pins.Busy = d.Pins.Busy
	}
	if c.Pins.ChipSelect == "" {
		c.Pins.ChipSelect = d.Pins.ChipSelect
	}
	switch c.Sensor {
	case "lm75", "fixed":
		// ok
	default:
		c.Sensor = "lm75"
	}
	if c.LM75Addr == 0 {
		c.LM75Addr = 0x49
	}
	if c.Temperature == 0 {
		c.Temperature = 25
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".epd-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
