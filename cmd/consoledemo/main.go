// Command consoledemo plays test tones through the mixing console.
//
// Usage:
//
//	consoledemo [flags]
//
// It creates a "tone" channel fed by a sine and a "pulse" channel fed by
// short bursts, sends them into the hall and delay buses and prints meter
// readings once per second. With -offline it renders without an audio
// device and prints the final meters.
//
// Examples:
//
//	consoledemo
//	consoledemo -config console.yaml -duration 10s
//	consoledemo -offline -freq 220
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/algo-console/console"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "YAML engine config (defaults when empty)")
	duration := flag.Duration("duration", 5*time.Second, "playback length")
	freq := flag.Float64("freq", 440, "tone frequency in Hz")
	offline := flag.Bool("offline", false, "render without an audio device")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: consoledemo [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Plays test tones through the mixing console.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := run(logger, *configPath, *duration, *freq, *offline); err != nil {
		logger.WithError(err).Error("consoledemo failed")
		os.Exit(1)
	}
}

func run(logger *logrus.Logger, configPath string, duration time.Duration, freq float64, offline bool) error {
	cfg := console.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = console.LoadConfig(configPath); err != nil {
			return err
		}
	}

	var out console.OutputContext = &console.SpeakerContext{}
	var bounce *console.OfflineContext
	if offline {
		bounce = &console.OfflineContext{}
		out = bounce
	}

	engine, err := console.New(cfg, console.WithOutput(out), console.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Disconnect(); err != nil {
			logger.WithError(err).Warn("disconnect failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := engine.Initialize(initCtx); err != nil {
		return err
	}

	sr := beep.SampleRate(int(cfg.SampleRate))
	if err := patch(engine, sr, freq, duration); err != nil {
		return err
	}

	if bounce != nil {
		bounce.Render(sr.N(duration))
		return report(engine)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	deadline := time.After(duration)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return report(engine)
		case <-ticker.C:
			if err := report(engine); err != nil {
				return err
			}
		}
	}
}

func patch(engine *console.Engine, sr beep.SampleRate, freq float64, duration time.Duration) error {
	if _, err := engine.CreateMixerChannel("tone", "Tone"); err != nil {
		return err
	}
	if _, err := engine.CreateMixerChannel("pulse", "Pulse"); err != nil {
		return err
	}

	tone, err := generators.SineTone(sr, freq)
	if err != nil {
		return err
	}
	if err := engine.ConnectToChannel("tone", beep.Take(sr.N(duration), tone)); err != nil {
		return err
	}

	burst, err := generators.SineTone(sr, freq*2)
	if err != nil {
		return err
	}
	period, on := sr.N(time.Second), sr.N(80*time.Millisecond)
	pos := 0
	pulses := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		n, ok := burst.Stream(samples)
		for i := range n {
			if (pos+i)%period >= on {
				samples[i] = [2]float64{}
			}
		}
		pos += n
		return n, ok
	})
	if err := engine.ConnectToChannel("pulse", beep.Take(sr.N(duration), pulses)); err != nil {
		return err
	}

	steps := []func() error{
		func() error { return engine.SetChannelVolume("tone", 0.5) },
		func() error { return engine.SetChannelPan("tone", -0.4) },
		func() error { return engine.SetChannelEQ("tone", console.EQ{Low: -3, HighMid: 2}) },
		func() error { return engine.SetSendLevel("tone", "hall", 0.3) },
		func() error { return engine.SetChannelPan("pulse", 0.5) },
		func() error { return engine.SetSendLevel("pulse", "delay", 0.6) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	return nil
}

func report(engine *console.Engine) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "channel\tpeak\trms")

	for _, id := range engine.Channels() {
		m, err := engine.GetChannelMeters(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\n", id, m.Peak, m.RMS)
	}

	m, err := engine.GetMasterMeters()
	if err != nil {
		return err
	}
	fmt.Fprintf(tw, "master\t%.3f\t%.3f\n", m.Peak, m.RMS)

	return tw.Flush()
}
