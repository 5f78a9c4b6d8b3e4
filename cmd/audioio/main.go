// SPDX-License-Identifier: EPL-2.0

// Command audioio records from and plays to a sound device using WAV files.
//
// Usage:
//
//	audioio [-config file] [-platform name] [-log-level level] record [flags] out.wav
//	audioio [-config file] [-platform name] [-log-level level] play [flags] in.wav
//	audioio info in.wav
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/audioio"
	"github.com/ik5/audioio/audio"
	"github.com/ik5/audioio/engine"
	"github.com/ik5/audioio/formats/wav"
	"github.com/ik5/audioio/internal/config"
	"github.com/ik5/audioio/internal/observe"
	"github.com/ik5/audioio/platform/null"
	"github.com/ik5/audioio/platform/portaudio"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2

	shutdownTimeout = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// cli carries what every subcommand needs.
type cli struct {
	cfg       *config.Config
	platforms *audio.Registry
	log       *zap.Logger
	stdout    io.Writer
	stderr    io.Writer
}

func newRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register(null.New())
	reg.Register(portaudio.New())

	return reg
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("audioio", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "path to a YAML configuration file")
	platformName := global.String("platform", "", "audio backend: portaudio or null")
	logLevel := global.String("log-level", "", "debug, info, warn or error")
	global.Usage = func() {
		fmt.Fprintln(stderr, "usage: audioio [global flags] record|play|info [flags] file.wav")
		global.PrintDefaults()
	}

	if err := global.Parse(args); err != nil {
		return exitUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return exitUsage
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(stderr, "audioio: %v\n", err)
			return exitError
		}
	}
	if *platformName != "" {
		cfg.Platform.Name = *platformName
	}
	if *logLevel != "" {
		cfg.Log.Level = config.LogLevel(*logLevel)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "audioio: invalid configuration:\n%v\n", err)
		return exitError
	}

	log, closeLog := newLogger(cfg.Log, stderr)
	defer closeLog()

	c := &cli{
		cfg:       cfg,
		platforms: newRegistry(),
		log:       log,
		stdout:    stdout,
		stderr:    stderr,
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "record":
		return c.record(ctx, rest)
	case "play":
		return c.play(ctx, rest)
	case "info":
		return c.info(rest)
	}

	fmt.Fprintf(stderr, "audioio: unknown command %q\n", cmd)
	global.Usage()
	return exitUsage
}

func (c *cli) record(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	rate := fs.Int("rate", c.cfg.Session.SampleRate, "sample rate in Hz")
	channels := fs.Int("channels", c.cfg.Session.Channels, "1 or 2")
	format := fs.String("format", c.cfg.Session.Format, "pcm16 or float32")
	buffer := fs.Int("buffer", c.cfg.Session.BufferSize, "transfer buffer in bytes")
	duration := fs.Duration("duration", c.cfg.Session.Duration, "recording length; 0 records until interrupted")

	path, ok := c.parse(fs, args)
	if !ok {
		return exitUsage
	}

	c.cfg.Session.SampleRate = *rate
	c.cfg.Session.Channels = *channels
	c.cfg.Session.Format = *format
	c.cfg.Session.BufferSize = *buffer
	c.cfg.Session.Duration = *duration
	if err := config.Validate(c.cfg); err != nil {
		fmt.Fprintf(c.stderr, "audioio: invalid session:\n%v\n", err)
		return exitUsage
	}

	cfg, err := c.cfg.AudioConfig(audio.Input)
	if err != nil {
		fmt.Fprintf(c.stderr, "audioio: %v\n", err)
		return exitUsage
	}

	return c.session(ctx, func(ctx context.Context, platform audio.Platform, opts []engine.Option) (audioio.Result, error) {
		if d := c.cfg.Session.Duration; d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}

		c.log.Info("recording", zap.String("path", path), zap.Int("sample_rate", cfg.SampleRate),
			zap.Int("channels", cfg.Channels), zap.Stringer("format", cfg.Format))

		return audioio.RecordWAV(ctx, platform, cfg, path, opts...)
	})
}

func (c *cli) play(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	buffer := fs.Int("buffer", 0, "transfer buffer in bytes; 0 picks one from the file")

	path, ok := c.parse(fs, args)
	if !ok {
		return exitUsage
	}

	return c.session(ctx, func(ctx context.Context, platform audio.Platform, opts []engine.Option) (audioio.Result, error) {
		c.log.Info("playing", zap.String("path", path))

		return audioio.PlayWAV(ctx, platform, path, *buffer, opts...)
	})
}

func (c *cli) info(args []string) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(c.stderr)

	path, ok := c.parse(fs, args)
	if !ok {
		return exitUsage
	}

	f, err := wav.Open(path)
	if err != nil {
		fmt.Fprintf(c.stderr, "audioio: %v\n", err)
		return exitError
	}
	defer f.Close()

	info := f.Info()
	format := "unknown"
	if sf, err := info.SampleFormat(); err == nil {
		format = sf.String()
	}

	fmt.Fprintf(c.stdout, "file:        %s\n", path)
	fmt.Fprintf(c.stdout, "sample rate: %d Hz\n", info.SampleRate)
	fmt.Fprintf(c.stdout, "channels:    %d\n", info.Channels)
	fmt.Fprintf(c.stdout, "format:      %s (%d-bit)\n", format, info.BitsPerSample())
	fmt.Fprintf(c.stdout, "data:        %d bytes\n", f.DataLen())
	fmt.Fprintf(c.stdout, "duration:    %s\n", f.Duration())

	return exitOK
}

// parse parses a subcommand's flags and returns its single file argument.
func (c *cli) parse(fs *flag.FlagSet, args []string) (string, bool) {
	if err := fs.Parse(args); err != nil {
		return "", false
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(c.stderr, "audioio %s: exactly one file argument is required\n", fs.Name())
		return "", false
	}

	return fs.Arg(0), true
}

type sessionFunc func(ctx context.Context, platform audio.Platform, opts []engine.Option) (audioio.Result, error)

// session runs fn next to the optional metrics endpoint. The endpoint is
// shut down as soon as fn returns.
func (c *cli) session(ctx context.Context, fn sessionFunc) int {
	platform, err := c.platforms.Lookup(c.cfg.Platform.Name)
	if err != nil {
		fmt.Fprintf(c.stderr, "audioio: %v; available: %v\n", err, c.platforms.Names())
		return exitUsage
	}

	opts := []engine.Option{engine.WithLogger(c.log)}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if addr := c.cfg.Metrics.ListenAddr; addr != "" {
		provider, err := observe.NewProvider(observe.ProviderConfig{})
		if err != nil {
			c.log.Error("cannot create metrics provider", zap.Error(err))
			return exitError
		}
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			_ = provider.Shutdown(sctx)
		}()
		opts = append(opts, engine.WithMeterProvider(provider.MeterProvider))

		ln, err := net.Listen("tcp", addr)
		if err != nil {
			c.log.Error("cannot listen for metrics", zap.String("addr", addr), zap.Error(err))
			return exitError
		}
		c.log.Info("serving metrics", zap.Stringer("addr", ln.Addr()))

		g.Go(func() error {
			return serveMetrics(gctx, ln, provider.Handler())
		})
	}

	var res audioio.Result
	g.Go(func() error {
		defer cancel()

		var err error
		res, err = fn(gctx, platform, opts)
		return err
	})

	if err := g.Wait(); err != nil {
		c.log.Error("session failed", zap.Error(err))
		fmt.Fprintf(c.stderr, "audioio: %v\n", err)
		return exitError
	}

	c.log.Info("session finished",
		zap.String("path", res.Path),
		zap.Int64("bytes", res.Bytes),
		zap.Duration("duration", res.Duration()),
	)
	fmt.Fprintf(c.stdout, "%s: %d bytes, %s\n", res.Path, res.Bytes, res.Duration())

	return exitOK
}

// serveMetrics serves /metrics on ln until ctx is done.
func serveMetrics(ctx context.Context, ln net.Listener, h http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(sctx)
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
