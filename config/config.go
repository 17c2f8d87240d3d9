// Package config loads the transmitter settings from an optional YAML file and
// command-line flags. Flags given on the command line win over the file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"hacksstv/sstv"
)

// Config holds all application configuration values.
type Config struct {
	Mode          string `yaml:"mode" validate:"protocol"`
	SampleRate    int    `yaml:"sample_rate" validate:"min=8000,max=192000"`
	TailSilenceMs int    `yaml:"tail_silence_ms" validate:"min=0,max=10000"`
	TUI           bool   `yaml:"tui"`

	Audio   Audio   `yaml:"audio"`
	SDR     SDR     `yaml:"sdr"`
	Source  Source  `yaml:"source"`
	Metrics Metrics `yaml:"metrics"`
	MQTT    MQTT    `yaml:"mqtt"`
	Logging Logging `yaml:"logging"`

	// List prints the protocol table and exits. Command line only.
	List bool `yaml:"-"`
}

type Audio struct {
	Backend string `yaml:"backend" validate:"oneof=oto malgo pcm none"`
	PCMPath string `yaml:"pcm_path" validate:"required_if=Backend pcm"`
}

type SDR struct {
	Enabled      bool    `yaml:"enabled"`
	FrequencyMHz float64 `yaml:"frequency_mhz" validate:"gte=1,lte=6000"`
	BandwidthMHz float64 `yaml:"bandwidth_mhz" validate:"gte=2,lte=20"`
	DeviationHz  float64 `yaml:"deviation_hz" validate:"gt=0,lte=100000"`
	CutoffHz     float64 `yaml:"cutoff_hz" validate:"gte=0,lte=20000"`
	Gain         int     `yaml:"gain" validate:"min=0,max=47"`
	Amp          bool    `yaml:"amp"`
	Level        float64 `yaml:"level" validate:"gte=0,lte=1"`
}

// SampleRate is the I/Q rate the bandwidth asks for.
func (s SDR) SampleRate() float64 { return s.BandwidthMHz * 1_000_000 }

type Source struct {
	Image    string `yaml:"image"`
	Device   string `yaml:"device"`
	Test     bool   `yaml:"test"`
	WatchDir string `yaml:"watch_dir"`
	SettleMs int    `yaml:"settle_ms" validate:"min=0"`
	Callsign string `yaml:"callsign" validate:"max=40"`
}

type Metrics struct {
	// Listen enables the Prometheus endpoint when not empty.
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

type MQTT struct {
	// Broker enables status publishing when not empty.
	Broker   string `yaml:"broker" validate:"omitempty,url"`
	Topic    string `yaml:"topic" validate:"required_with=Broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Logging struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file"`
}

// TailSilence is the pause appended after every image.
func (c *Config) TailSilence() time.Duration {
	return time.Duration(c.TailSilenceMs) * time.Millisecond
}

// Settle is how long a dropped file must stay unchanged before it is sent.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.Source.SettleMs) * time.Millisecond
}

// Protocol resolves the configured mode name.
func (c *Config) Protocol() (sstv.Protocol, error) {
	return sstv.ParseProtocol(c.Mode)
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		Mode:          "robot36",
		SampleRate:    44100,
		TailSilenceMs: 200,
		Audio:         Audio{Backend: "oto"},
		SDR: SDR{
			FrequencyMHz: 145.5,
			BandwidthMHz: 2,
			DeviationHz:  5000,
			CutoffHz:     3000,
			Gain:         30,
			Level:        1,
		},
		Source:  Source{SettleMs: 500},
		MQTT:    MQTT{Topic: "hacksstv/status", ClientID: "hacksstv"},
		Logging: Logging{Level: "info"},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "SSTV mode, e.g. martin1, scottie1, robot36, pd120")
	fs.IntVar(&cfg.SampleRate, "rate", cfg.SampleRate, "Audio sample rate in Hz")
	fs.IntVar(&cfg.TailSilenceMs, "tail", cfg.TailSilenceMs, "Silence after each image in ms")
	fs.BoolVar(&cfg.TUI, "tui", cfg.TUI, "Show the progress screen")

	fs.StringVar(&cfg.Audio.Backend, "audio", cfg.Audio.Backend, "Audio output: oto, malgo, pcm or none")
	fs.StringVar(&cfg.Audio.PCMPath, "pcm", cfg.Audio.PCMPath, "Raw s16le output for -audio pcm, - for stdout")

	fs.BoolVar(&cfg.SDR.Enabled, "sdr", cfg.SDR.Enabled, "Transmit on a HackRF")
	fs.Float64Var(&cfg.SDR.FrequencyMHz, "freq", cfg.SDR.FrequencyMHz, "Transmit frequency in MHz")
	fs.Float64Var(&cfg.SDR.BandwidthMHz, "bw", cfg.SDR.BandwidthMHz, "Channel bandwidth in MHz")
	fs.Float64Var(&cfg.SDR.DeviationHz, "deviation", cfg.SDR.DeviationHz, "FM deviation in Hz")
	fs.IntVar(&cfg.SDR.Gain, "gain", cfg.SDR.Gain, "TX VGA gain (0-47)")
	fs.BoolVar(&cfg.SDR.Amp, "amp", cfg.SDR.Amp, "Enable the HackRF RF amplifier")

	fs.StringVar(&cfg.Source.Image, "image", cfg.Source.Image, "Image file to send")
	fs.StringVar(&cfg.Source.Device, "device", cfg.Source.Device, "Video device name or index (OS-dependent)")
	fs.BoolVar(&cfg.Source.Test, "test", cfg.Source.Test, "Send color bars instead of an image")
	fs.StringVar(&cfg.Source.WatchDir, "watch", cfg.Source.WatchDir, "Send every image dropped into this directory")
	fs.StringVar(&cfg.Source.Callsign, "callsign", cfg.Source.Callsign, "Callsign to overlay on the image")

	fs.StringVar(&cfg.Metrics.Listen, "metrics", cfg.Metrics.Listen, "Serve Prometheus metrics on this address")
	fs.StringVar(&cfg.MQTT.Broker, "mqtt", cfg.MQTT.Broker, "Publish status to this MQTT broker, e.g. tcp://localhost:1883")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level: debug, info, warn or error")
	fs.StringVar(&cfg.Logging.File, "log-file", cfg.Logging.File, "Also log to this file")
	fs.BoolVar(&cfg.List, "list", cfg.List, "List the supported modes and exit")
}

// Parse builds the configuration from args (without the program name). A
// -config file is loaded first and every flag set on the command line is
// applied on top of it.
func Parse(args []string, output io.Writer) (*Config, error) {
	cfg := Default()
	var path string
	fs := flag.NewFlagSet("hacksstv", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&path, "config", "", "YAML configuration file")
	bindFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	if path != "" {
		fileCfg, err := Load(path)
		if err != nil {
			return nil, err
		}
		over := flag.NewFlagSet("override", flag.ContinueOnError)
		bindFlags(over, fileCfg)
		var setErr error
		fs.Visit(func(f *flag.Flag) {
			if f.Name == "config" || setErr != nil {
				return
			}
			setErr = over.Set(f.Name, f.Value.String())
		})
		if setErr != nil {
			return nil, setErr
		}
		cfg = fileCfg
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("protocol", validateProtocol)
	return v
}

// validateProtocol checks the mode name resolves to a known protocol.
func validateProtocol(fl validator.FieldLevel) bool {
	_, err := sstv.ParseProtocol(fl.Field().String())
	return err == nil
}

// Validate checks cfg and reports every invalid field at once.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("validation failed: %w", err)
	}
	msgs := make([]string, len(errs))
	for i, fe := range errs {
		msgs[i] = formatValidationError(fe)
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatValidationError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "protocol":
		return fmt.Sprintf("%s: unknown mode %q", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "required_if", "required_with":
		return field + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
