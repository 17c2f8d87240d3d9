package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hacksstv/audio"
	"hacksstv/config"
	"hacksstv/encoder"
	"hacksstv/logging"
	"hacksstv/metrics"
	"hacksstv/sdr"
	"hacksstv/source"
	"hacksstv/sstv"
	"hacksstv/status"
	"hacksstv/ui"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Parse(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if cfg.List {
		fmt.Println(protocolTable())
		return
	}

	// The progress screen owns the terminal; logs go to the file only.
	var console io.Writer = os.Stderr
	if cfg.TUI {
		console = nil
	}
	logFile, err := logging.Setup(cfg.Logging, console, isatty.IsTerminal(os.Stderr.Fd()))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("hacksstv failed")
		stop()
		_ = logFile.Close()
		os.Exit(1)
	}
	log.Info().Msg("Shutting down...")
}

func run(ctx context.Context, cfg *config.Config) error {
	protocol, err := cfg.Protocol()
	if err != nil {
		return err
	}

	opts := []encoder.Option{
		encoder.WithSampleRate(cfg.SampleRate),
		encoder.WithTailSilence(cfg.TailSilence()),
	}

	if cfg.MQTT.Broker != "" {
		pub, err := status.Connect(cfg.MQTT)
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, encoder.WithListener(pub.Observe))
	}

	var reg *prometheus.Registry
	if cfg.Metrics.Listen != "" {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, encoder.WithListener(metrics.NewCollector(reg).Observe))
	}

	var prog *tea.Program
	if cfg.TUI {
		prog = tea.NewProgram(ui.New(title(cfg, protocol)))
		opts = append(opts, encoder.WithListener(ui.Listener(prog)))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	enc := encoder.New(audioOpener(cfg), opts...)
	if err := enc.Start(ctx); err != nil {
		return err
	}

	if reg != nil {
		g.Go(func() error { return metrics.Serve(ctx, cfg.Metrics.Listen, reg) })
	}
	if prog != nil {
		g.Go(func() error {
			defer cancel()
			_, err := prog.Run()
			return err
		})
	}

	err = feed(ctx, cfg, enc, protocol)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if shutdownErr := enc.Shutdown(shutdownCtx); err == nil {
		err = shutdownErr
	}
	if prog != nil {
		ui.Finished(prog)
	}
	cancel()
	if waitErr := g.Wait(); err == nil {
		err = waitErr
	}
	return err
}

// feed submits the configured images and, unless a folder is being watched,
// waits for them to go out.
func feed(ctx context.Context, cfg *config.Config, enc *encoder.Encoder, p sstv.Protocol) error {
	d := p.Descriptor()
	submit := func(img image.Image, from string) {
		frame := source.Fit(img, d.Width, d.Height)
		source.Label(frame, cfg.Source.Callsign)
		id, err := enc.Submit(p, frame)
		if err != nil {
			log.Error().Err(err).Str("source", from).Msg("failed to queue image")
			return
		}
		log.Info().Str("job", id.String()).Str("source", from).Stringer("protocol", p).Msg("image queued")
	}

	src := cfg.Source
	if src.Test {
		log.Info().Msg("Test mode: color bars will be transmitted.")
		submit(source.ColorBars(d.Width, d.Height), "test")
	}
	if src.Image != "" {
		img, err := source.Load(src.Image)
		if err != nil {
			return err
		}
		submit(img, src.Image)
	}
	if src.Device != "" || (!src.Test && src.Image == "" && src.WatchDir == "") {
		img, err := source.CaptureFrame(ctx, src.Device, d.Width, d.Height)
		if err != nil {
			return fmt.Errorf("failed to capture from camera: %w", err)
		}
		submit(img, "camera")
	}

	if src.WatchDir != "" {
		return source.Watch(ctx, src.WatchDir, cfg.Settle(), func(path string) {
			img, err := source.Load(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("skipping file")
				return
			}
			submit(img, path)
		})
	}
	return enc.Drain(ctx)
}

// audioOpener combines the configured sound output with the radio.
func audioOpener(cfg *config.Config) audio.Opener {
	var openers []audio.Opener
	switch cfg.Audio.Backend {
	case "oto":
		openers = append(openers, audio.OtoOpener)
	case "malgo":
		openers = append(openers, audio.MalgoOpener)
	case "pcm":
		path := cfg.Audio.PCMPath
		openers = append(openers, func(int) (audio.Sink, error) {
			s, err := audio.OpenPCM(path)
			if err != nil {
				return nil, err
			}
			return s, nil
		})
	}
	if cfg.SDR.Enabled {
		openers = append(openers, sdr.Opener(sdr.OpenHackRF, sdrConfig(cfg.SDR)))
	}
	return audio.TeeOpener(openers...)
}

func sdrConfig(c config.SDR) sdr.Config {
	return sdr.Config{
		FrequencyMHz:  c.FrequencyMHz,
		SampleRate:    c.SampleRate(),
		DeviationHz:   c.DeviationHz,
		AudioCutoffHz: c.CutoffHz,
		Gain:          c.Gain,
		Amp:           c.Amp,
		Level:         c.Level,
	}
}

func title(cfg *config.Config, p sstv.Protocol) string {
	d := p.Descriptor()
	s := fmt.Sprintf("hacksstv  %s %dx%d", d.Name, d.Width, d.Height)
	if cfg.SDR.Enabled {
		s += fmt.Sprintf("  %.3f MHz", cfg.SDR.FrequencyMHz)
	}
	return s
}

func protocolTable() string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("MODE", "NAME", "SIZE", "VIS", "COLOR", "DURATION")
	for _, p := range sstv.Protocols() {
		d := p.Descriptor()
		color := "RGB"
		if d.Color == sstv.ColorYUV {
			color = "YUV " + d.Layout.String()
		}
		t.Row(
			d.Key,
			d.Name,
			fmt.Sprintf("%dx%d", d.Width, d.Height),
			strconv.Itoa(int(d.VIS)),
			color,
			d.Duration().Round(100*time.Millisecond).String(),
		)
	}
	return t.String()
}
