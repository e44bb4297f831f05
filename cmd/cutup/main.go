package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
	"github.com/satindergrewal/cutup/internal/audio"
	"github.com/satindergrewal/cutup/internal/config"
	"github.com/satindergrewal/cutup/internal/cutup"
	"github.com/satindergrewal/cutup/internal/stream"
)

// Process exit codes.
const (
	exitOK      = 0
	exitFatal   = 1
	exitUsage   = 2
	exitBadData = 3
)

// errUsage marks command line mistakes.
var errUsage = errors.New("usage")

// auditionCrossfade is the loop seam of the audition player.
const auditionCrossfade = 500 * time.Millisecond

func main() {
	ctx := logger.WithContext(context.Background())
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := doMain(ctx, os.Args[1:]); err != nil {
		logger.Ef(ctx, "run err %+v", err)
		cancel()
		os.Exit(exitCode(err))
	}
	logger.Tf(ctx, "run ok")
}

// exitCode maps a failure to the process status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Cause(err) == errUsage {
		return exitUsage
	}
	switch cutup.KindOf(err) {
	case cutup.InputConstraintViolation:
		return exitBadData
	case cutup.InvalidParameter, cutup.ConfigurationError:
		return exitUsage
	}
	return exitFatal
}

// options is the parsed command line on top of the environment.
type options struct {
	cfg    config.Config
	input  string
	output string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("cutup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: cutup [flags] input [output]\n\n")
		fs.PrintDefaults()
	}

	var (
		hpm       = fs.Float64("hpm", cutup.DefaultHitsPerMinute, "edits per minute")
		seed      = fs.Int64("seed", -1, "random seed, negative picks one")
		weights   = fs.String("weights", "", "operation weights, e.g. reverse=4,silence=0")
		crossfade = fs.Int("crossfade", cutup.DefaultCrossfadeFrames, "crossfade samples per window edge, 0 disables")
		stereoify = fs.Bool("stereoify", false, "duplicate mono input instead of rejecting it")
		listen    = fs.String("listen", "", "audition server address, e.g. :8080")
		envFile   = fs.String("env", ".env", "environment file")
		verbose   = fs.Bool("v", false, "log every window")
	)
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrapf(errUsage, "parse flags: %v", err)
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return nil, errors.Wrapf(errUsage, "want input [output], got %v args", fs.NArg())
	}

	if err := config.LoadEnvFile(*envFile); err != nil {
		return nil, errors.Wrapf(err, "env")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, cutup.Errorf(cutup.InvalidParameter, "%v", err)
	}

	// Flags given on the command line win over the environment.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "hpm":
			cfg.HitsPerMinute = *hpm
		case "seed":
			cfg.Seed = *seed
		case "weights":
			cfg.Weights = *weights
		case "crossfade":
			cfg.CrossfadeFrames = *crossfade
		case "stereoify":
			cfg.Stereoify = *stereoify
		case "listen":
			cfg.Listen = *listen
		case "v":
			cfg.Verbose = *verbose
		}
	})

	o := &options{cfg: cfg, input: fs.Arg(0), output: cfg.Output}
	if fs.NArg() == 2 {
		o.output = fs.Arg(1)
	}
	return o, nil
}

// engineOptions turns configuration into engine options, picking a seed
// when none is configured.
func engineOptions(cfg config.Config) (cutup.Options, error) {
	if cfg.CrossfadeFrames < 0 {
		return cutup.Options{}, cutup.Errorf(cutup.InvalidParameter, "negative crossfade %v", cfg.CrossfadeFrames)
	}

	seed := uint64(cfg.Seed)
	if cfg.Seed < 0 {
		seed = uint64(time.Now().UnixNano())
	}

	opts := cutup.DefaultOptions(seed)
	opts.HitsPerMinute = cfg.HitsPerMinute
	opts.CrossfadeFrames = cfg.CrossfadeFrames
	opts.Schedule.MinFraction = cfg.WindowMin
	opts.Schedule.MaxFraction = cfg.WindowMax
	opts.Schedule.Jitter = cfg.Jitter
	opts.Verbose = cfg.Verbose
	return opts, nil
}

func buildRegistry(weights string) (*cutup.Registry, error) {
	reg := cutup.DefaultRegistry()
	if weights == "" {
		return reg, nil
	}
	overrides, err := cutup.ParseWeights(weights)
	if err != nil {
		return nil, errors.Wrapf(err, "weights")
	}
	return reg.WithWeights(overrides)
}

func doMain(ctx context.Context, args []string) error {
	o, err := parseArgs(args, os.Stderr)
	if err != nil {
		return err
	}
	cfg := o.cfg

	opts, err := engineOptions(cfg)
	if err != nil {
		return err
	}
	reg, err := buildRegistry(cfg.Weights)
	if err != nil {
		return err
	}
	logger.Tf(ctx, "cutup start, input=%v, output=%v, hpm=%v, seed=%v, crossfade=%v, ops=%v",
		o.input, o.output, opts.HitsPerMinute, opts.Seed, opts.CrossfadeFrames, reg.Names())

	buf, err := audio.ReadFile(ctx, o.input, cfg.FFmpeg)
	if err != nil {
		return cutup.Errorf(cutup.InputConstraintViolation, "read %v: %v", o.input, err)
	}
	if buf.NumChannels() == 1 && cfg.Stereoify {
		logger.Tf(ctx, "stereoify mono input %v", o.input)
		buf = buf.Stereoify()
	}
	logger.Tf(ctx, "read %v ok, channels=%v, rate=%v, depth=%v, duration=%v",
		o.input, buf.NumChannels(), buf.SampleRate, buf.Depth(), buf.Duration())

	engine := cutup.NewEngine(reg, opts)
	report, err := engine.Run(ctx, buf)
	if err != nil {
		return errors.Wrapf(err, "cutup %v", o.input)
	}

	if err := audio.WriteFile(o.output, buf); err != nil {
		return errors.Wrapf(err, "write %v", o.output)
	}
	logger.Tf(ctx, "write %v ok, windows=%v, seed=%v, elapsed=%v", o.output, report.Windows, report.Seed, report.Elapsed)

	if cfg.Listen == "" {
		return nil
	}
	return audition(ctx, cfg, o.output, buf, report)
}

// audition loops the collage to HTTP and WebRTC listeners until ctx is done.
func audition(ctx context.Context, cfg config.Config, output string, buf *audio.Buffer, report *cutup.Report) error {
	player := stream.NewPlayer(auditionCrossfade)
	go player.Run(ctx)
	player.Enqueue(stream.NewTake(filepath.Base(output), buf))

	broadcaster := stream.NewBroadcaster()
	go broadcaster.Run(ctx, player.Frames())

	webrtcHandler := stream.NewWebRTCHandler(broadcaster)

	mux := http.NewServeMux()
	mux.Handle("/stream", stream.NewHTTPHandler(broadcaster, cfg.FFmpeg))
	mux.Handle("/offer", webrtcHandler)

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(map[string]any{
			"report":           report,
			"playback":         player.Status(),
			"http_listeners":   broadcaster.ListenerCount(),
			"webrtc_listeners": webrtcHandler.PeerCount(),
		})
	})

	mux.HandleFunc("/api/skip", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		player.Skip()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	mux.HandleFunc("/api/save", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(output)))
		w.Header().Set("Content-Type", "audio/wav")
		http.ServeFile(w, r, output)
	})

	server := &http.Server{Addr: cfg.Listen, Handler: mux}
	go func() {
		<-ctx.Done()
		logger.Tf(ctx, "audition shutting down")
		server.Close()
	}()

	logger.Tf(ctx, "audition live on %v, take=%v", cfg.Listen, filepath.Base(output))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return errors.Wrapf(err, "listen %v", cfg.Listen)
	}
	return nil
}
