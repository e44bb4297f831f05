package cutup

import (
	"context"
	"fmt"
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
	"github.com/satindergrewal/cutup/internal/audio"
)

// DefaultHitsPerMinute is the edit rate when none is given.
const DefaultHitsPerMinute = 180

// DefaultCrossfadeFrames is the edge fade applied to every edited window.
const DefaultCrossfadeFrames = 256

// State is where the engine is in a run.
type State int

const (
	StateIdle State = iota
	StateScheduling
	StateApplying
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduling:
		return "scheduling"
	case StateApplying:
		return "applying"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options controls a run.
type Options struct {
	HitsPerMinute   float64
	Seed            uint64
	CrossfadeFrames int // per edge; 0 disables
	Schedule        ScheduleOptions
	Verbose         bool // log every window
}

// DefaultOptions returns the stock settings with the given seed.
func DefaultOptions(seed uint64) Options {
	return Options{
		HitsPerMinute:   DefaultHitsPerMinute,
		Seed:            seed,
		CrossfadeFrames: DefaultCrossfadeFrames,
		Schedule:        DefaultScheduleOptions(),
	}
}

// Report summarizes a finished run.
type Report struct {
	State    State          `json:"state"`
	Seed     uint64         `json:"seed"`
	Windows  int            `json:"windows"`
	Counts   map[string]int `json:"counts"` // windows per operation
	Elapsed  time.Duration  `json:"elapsed"`
	Channels int            `json:"channels"`
	Frames   int            `json:"frames"`
}

// Engine turns a buffer into a cut-up collage. It is not safe for
// concurrent use.
type Engine struct {
	registry *Registry
	opts     Options
	state    State
}

// NewEngine binds a registry to run options.
func NewEngine(registry *Registry, opts Options) *Engine {
	return &Engine{registry: registry, opts: opts}
}

// State returns the state reached by the latest run.
func (e *Engine) State() State {
	return e.state
}

// Run schedules and applies edits to buf. On success buf holds the collage,
// with the same channel and frame counts as before; on failure buf is left
// exactly as it was.
func (e *Engine) Run(ctx context.Context, buf *audio.Buffer) (*Report, error) {
	e.state = StateIdle
	if err := checkInput(buf); err != nil {
		return nil, e.fail(err)
	}
	if e.registry == nil || e.registry.TotalWeight() <= 0 {
		return nil, e.fail(Errorf(ConfigurationError, "operation registry has nothing to select"))
	}

	e.state = StateScheduling
	rng := NewRand(e.opts.Seed)
	windows, err := Schedule(buf.FrameCount(), buf.SampleRate, e.opts.HitsPerMinute, rng, e.opts.Schedule)
	if err != nil {
		return nil, e.fail(errors.Wrapf(err, "schedule"))
	}
	logger.Tf(ctx, "cutup schedule ok, frames=%v, rate=%v, hpm=%v, seed=%v, windows=%v",
		buf.FrameCount(), buf.SampleRate, e.opts.HitsPerMinute, e.opts.Seed, len(windows))

	return e.Apply(ctx, buf, windows, rng)
}

// Apply runs the given windows against buf, selecting an operation for each.
// Windows must be ordered, disjoint and in bounds; a window that is not is
// a Fatal error.
func (e *Engine) Apply(ctx context.Context, buf *audio.Buffer, windows []Window, rng Rand) (*Report, error) {
	starts := time.Now()
	if err := checkInput(buf); err != nil {
		return nil, e.fail(err)
	}

	e.state = StateApplying
	frames := buf.FrameCount()
	editable := buf.EditableChannels()

	work := make([][]int, editable)
	for c := range work {
		work[c] = append([]int(nil), buf.Channels[c]...)
	}

	report := &Report{
		Seed:     e.opts.Seed,
		Counts:   make(map[string]int),
		Channels: buf.NumChannels(),
		Frames:   frames,
	}

	prevEnd := 0
	for i, w := range windows {
		if !w.Within(frames) || w.Start < prevEnd {
			return nil, e.fail(Errorf(Fatal, "window %v %v out of order or bounds, frames=%v, previous end=%v",
				i, w, frames, prevEnd))
		}
		prevEnd = w.End()

		op, err := e.registry.Select(rng)
		if err != nil {
			return nil, e.fail(errors.Wrapf(err, "select for window %v", i))
		}
		if err := e.applyWindow(work, w, op, buf.Depth(), rng); err != nil {
			return nil, e.fail(errors.Wrapf(err, "apply %v to window %v %v", op.Name, i, w))
		}

		report.Counts[op.Name]++
		if e.opts.Verbose {
			logger.Tf(ctx, "cutup window %v/%v %v op=%v", i+1, len(windows), w, op.Name)
		}
	}

	for c := range work {
		if len(work[c]) != frames {
			return nil, e.fail(Errorf(Fatal, "channel %v has %v frames after pass, want %v", c, len(work[c]), frames))
		}
	}
	for c := range work {
		copy(buf.Channels[c], work[c])
	}

	e.state = StateComplete
	report.State = e.state
	report.Windows = len(windows)
	report.Elapsed = time.Since(starts)
	logger.Tf(ctx, "cutup complete, windows=%v, counts=%v, elapsed=%v", report.Windows, report.Counts, report.Elapsed)
	return report, nil
}

// applyWindow runs op over one window of the working channels and fades the
// window edges back into the untouched material.
func (e *Engine) applyWindow(work [][]int, w Window, op Operation, bitDepth int, rng Rand) (err error) {
	original := make([][]int, len(work))
	region := &Region{
		Window:   w,
		Channels: make([][]int, len(work)),
		Source:   work,
		BitDepth: bitDepth,
	}
	for c := range work {
		// Full slice expression so an append cannot spill past the window.
		region.Channels[c] = work[c][w.Start:w.End():w.End()]
		original[c] = append([]int(nil), region.Channels[c]...)
	}

	defer func() {
		if r := recover(); r != nil {
			err = Errorf(Fatal, "operation %v panicked: %v", op.Name, r)
		}
	}()

	if err := op.Apply(region, rng); err != nil {
		return Errorf(Fatal, "operation %v: %v", op.Name, err)
	}

	for c := range region.Channels {
		if len(region.Channels[c]) != w.Length {
			return Errorf(Fatal, "operation %v resized channel %v to %v, want %v",
				op.Name, c, len(region.Channels[c]), w.Length)
		}
		dst := work[c][w.Start:w.End()]
		copy(dst, region.Channels[c])
		audio.BlendEdges(original[c], dst, e.opts.CrossfadeFrames, audio.Linear)
	}
	return nil
}

func (e *Engine) fail(err error) error {
	e.state = StateFailed
	return err
}

func checkInput(buf *audio.Buffer) error {
	if buf == nil {
		return Errorf(InputConstraintViolation, "no buffer")
	}
	if buf.NumChannels() < audio.MaxEditableChannels {
		return Errorf(InputConstraintViolation, "need at least %v channels, got %v",
			audio.MaxEditableChannels, buf.NumChannels())
	}
	if err := buf.Validate(); err != nil {
		return Errorf(InputConstraintViolation, "invalid buffer: %v", err)
	}
	if buf.FrameCount() == 0 {
		return Errorf(InputConstraintViolation, "empty buffer")
	}
	return nil
}
