// Command epd drives a Pervasive Displays e-paper panel from the command
// line. It supports one-shot image and clear operations plus a daemon
// mode that redraws on a cron schedule.
//
//	epd -config /etc/epd/config.yaml draw photo.png
//	epd clear
//	epd daemon
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/disintegration/imaging"
	"github.com/robfig/cron/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/develone/gratis/internal/config"
	"github.com/develone/gratis/internal/convert"
	"github.com/develone/gratis/internal/epd"
	appLog "github.com/develone/gratis/internal/log"
	"github.com/develone/gratis/internal/therm"
)

type flagConfig struct {
	configPath string
	verb       string
	image      string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("epd starting",
		"verb", flags.verb,
		"panel", conf.Panel,
		"sensor", conf.Sensor,
		"spi_port", conf.SPIPort,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	switch flags.verb {
	case "draw":
		image := flags.image
		if image == "" {
			image = conf.Image
		}
		err = runDraw(ctx, conf, image)
	case "clear":
		err = runClear(ctx, conf)
	case "daemon":
		err = runDaemon(ctx, conf)
	default:
		fmt.Fprintf(os.Stderr, "usage: epd [-config path] draw [image] | clear | daemon\n")
		os.Exit(2)
	}
	if err != nil {
		appLog.Error("run failed", err, "verb", flags.verb)
		os.Exit(1)
	}
	appLog.Info("epd exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/epd/config.yaml", "Path to config file")
	flag.Parse()

	cfg.verb = flag.Arg(0)
	cfg.image = flag.Arg(1)

	return cfg
}

func runDraw(ctx context.Context, conf *config.Config, path string) error {
	if path == "" {
		return errors.New("no image given and no default image configured")
	}
	img, err := imaging.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	return withDriver(ctx, conf, func(d *epd.Driver) error {
		buf := convert.Pack(img, d.Profile())
		appLog.Info("drawing frame", "image", path, "bytes", len(buf))
		return d.Image(buf)
	})
}

func runClear(ctx context.Context, conf *config.Config) error {
	return withDriver(ctx, conf, func(d *epd.Driver) error {
		appLog.Info("clearing panel")
		d.Clear()
		return nil
	})
}

func runDaemon(ctx context.Context, conf *config.Config) error {
	appLog.Info("daemon mode", "schedule", conf.RefreshCron)

	c := cron.New()
	_, err := c.AddFunc(conf.RefreshCron, func() {
		if err := runDraw(ctx, conf, conf.Image); err != nil {
			appLog.Error("scheduled draw failed", err, "image", conf.Image)
		}
	})
	if err != nil {
		return fmt.Errorf("bad refresh schedule %q: %w", conf.RefreshCron, err)
	}
	c.Start()

	<-ctx.Done()
	stop := c.Stop()
	<-stop.Done()
	return nil
}

// withDriver brings the panel up, runs fn, and always tears the panel
// back down. Power transition failures are surfaced as errors.
func withDriver(ctx context.Context, conf *config.Config, fn func(*epd.Driver) error) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("host init: %w", err)
	}

	port, err := spireg.Open(conf.SPIPort)
	if err != nil {
		return fmt.Errorf("spi open: %w", err)
	}
	defer port.Close()

	pins, err := resolvePins(conf.Pins)
	if err != nil {
		return err
	}

	transport, err := epd.NewSPI(port, pins, physic.Frequency(conf.SPIHz)*physic.Hertz)
	if err != nil {
		return err
	}

	size, err := epd.ParseSize(conf.Panel)
	if err != nil {
		return err
	}
	d := epd.New(transport, size)

	celsius, err := readTemperature(ctx, conf)
	if err != nil {
		appLog.Error("temperature read failed, using default", err)
		celsius = epd.DefaultTemperature
	}
	d.SetFactor(int(celsius))
	appLog.Debug("compensation selected", "celsius", celsius, "band", d.TemperatureOffset())

	d.Begin()
	if s := d.Status(); s != epd.StatusOK {
		return fmt.Errorf("panel power up: %s", s)
	}

	opErr := fn(d)

	d.End()
	if s := d.Status(); opErr == nil && s != epd.StatusOK {
		return fmt.Errorf("panel power down: %s", s)
	}
	return opErr
}

func resolvePins(pc config.PinsConfig) (epd.PinSet, error) {
	byName := func(name string) (gpio.PinIO, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio pin %q not found", name)
		}
		return p, nil
	}

	var pins epd.PinSet
	var err error
	if pins.PanelOn, err = byName(pc.PanelOn); err != nil {
		return pins, err
	}
	if pins.Border, err = byName(pc.Border); err != nil {
		return pins, err
	}
	if pins.Discharge, err = byName(pc.Discharge); err != nil {
		return pins, err
	}
	if pins.Reset, err = byName(pc.Reset); err != nil {
		return pins, err
	}
	if pins.Busy, err = byName(pc.Busy); err != nil {
		return pins, err
	}
	if pins.ChipSelect, err = byName(pc.ChipSelect); err != nil {
		return pins, err
	}
	return pins, nil
}

func readTemperature(ctx context.Context, conf *config.Config) (float64, error) {
	var reader therm.Reader
	switch conf.Sensor {
	case "fixed":
		reader = therm.NewFixedReader(float64(conf.Temperature))
	default:
		reader = therm.NewLM75Reader(conf.I2CBus, conf.LM75Addr)
	}
	return reader.Read(ctx)
}
