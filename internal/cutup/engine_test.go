package cutup

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/satindergrewal/cutup/internal/audio"
)

func noisyBuffer(channels, frames int, seed uint64) *audio.Buffer {
	buf := audio.NewBuffer(channels, frames, 8000, 16)
	rng := NewRand(seed)
	for c := range buf.Channels {
		for i := range buf.Channels[c] {
			buf.Channels[c][i] = rng.IntN(20000) - 10000
		}
	}
	return buf
}

func testOptions() Options {
	opts := DefaultOptions(11)
	opts.HitsPerMinute = 600
	return opts
}

func TestRunPreservesShapeAndExtraChannels(t *testing.T) {
	buf := noisyBuffer(4, 8000*5, 1)
	before := buf.Clone()

	e := NewEngine(DefaultRegistry(), testOptions())
	report, err := e.Run(context.Background(), buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.State() != StateComplete || report.State != StateComplete {
		t.Errorf("state = %v/%v, want complete", e.State(), report.State)
	}
	if buf.NumChannels() != 4 || buf.FrameCount() != 8000*5 {
		t.Fatalf("shape = %dx%d, want 4x%d", buf.NumChannels(), buf.FrameCount(), 8000*5)
	}
	for c := 2; c < 4; c++ {
		if !slices.Equal(buf.Channels[c], before.Channels[c]) {
			t.Errorf("channel %d was edited", c)
		}
	}
	if slices.Equal(buf.Channels[0], before.Channels[0]) && slices.Equal(buf.Channels[1], before.Channels[1]) {
		t.Error("no edits reached the editable channels")
	}

	sum := 0
	for _, n := range report.Counts {
		sum += n
	}
	if sum != report.Windows {
		t.Errorf("counts sum to %d, want %d windows", sum, report.Windows)
	}
	if report.Windows == 0 {
		t.Error("expected some windows at 600 hpm over 5s")
	}
}

func TestRunDeterministic(t *testing.T) {
	a := noisyBuffer(2, 8000*3, 5)
	b := a.Clone()

	if _, err := NewEngine(DefaultRegistry(), testOptions()).Run(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if _, err := NewEngine(DefaultRegistry(), testOptions()).Run(context.Background(), b); err != nil {
		t.Fatal(err)
	}
	for c := range a.Channels {
		if !slices.Equal(a.Channels[c], b.Channels[c]) {
			t.Fatalf("channel %d differs between runs with the same seed", c)
		}
	}

	other := testOptions()
	other.Seed = 12
	c := noisyBuffer(2, 8000*3, 5)
	if _, err := NewEngine(DefaultRegistry(), other).Run(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	if slices.Equal(a.Channels[0], c.Channels[0]) {
		t.Error("different seeds produced the same output")
	}
}

func TestRunRejectsMono(t *testing.T) {
	buf := noisyBuffer(1, 1000, 1)
	before := buf.Clone()

	e := NewEngine(DefaultRegistry(), testOptions())
	_, err := e.Run(context.Background(), buf)
	if !IsKind(err, InputConstraintViolation) {
		t.Fatalf("err = %v, want InputConstraintViolation", err)
	}
	if e.State() != StateFailed {
		t.Errorf("state = %v, want failed", e.State())
	}
	if !slices.Equal(buf.Channels[0], before.Channels[0]) {
		t.Error("mono buffer was modified")
	}

	// Stereoified it is accepted.
	if _, err := e.Run(context.Background(), buf.Stereoify()); err != nil {
		t.Errorf("Run(stereoified): %v", err)
	}
}

func TestRunRejectsEmpty(t *testing.T) {
	e := NewEngine(DefaultRegistry(), testOptions())
	for name, buf := range map[string]*audio.Buffer{
		"nil":    nil,
		"empty":  audio.NewBuffer(2, 0, 8000, 16),
		"ragged": {Channels: [][]int{{1, 2}, {1}}, SampleRate: 8000},
	} {
		if _, err := e.Run(context.Background(), buf); !IsKind(err, InputConstraintViolation) {
			t.Errorf("%s: err = %v, want InputConstraintViolation", name, err)
		}
	}
}

func TestRunRejectsBadRate(t *testing.T) {
	opts := testOptions()
	opts.HitsPerMinute = 0
	buf := noisyBuffer(2, 1000, 1)
	before := buf.Clone()

	_, err := NewEngine(DefaultRegistry(), opts).Run(context.Background(), buf)
	if !IsKind(err, InvalidParameter) {
		t.Fatalf("err = %v, want InvalidParameter", err)
	}
	if !slices.Equal(buf.Channels[0], before.Channels[0]) {
		t.Error("buffer was modified")
	}
}

func TestRunRejectsZeroWeights(t *testing.T) {
	reg, err := NewRegistry(Operation{Name: "silence", Weight: 0, Apply: Silence})
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(reg, testOptions())
	if _, err := e.Run(context.Background(), noisyBuffer(2, 8000, 1)); !IsKind(err, ConfigurationError) {
		t.Errorf("err = %v, want ConfigurationError", err)
	}
	if _, err := NewEngine(nil, testOptions()).Run(context.Background(), noisyBuffer(2, 8000, 1)); !IsKind(err, ConfigurationError) {
		t.Errorf("nil registry err = %v, want ConfigurationError", err)
	}
}

func silenceEngine(t *testing.T, crossfade int) *Engine {
	t.Helper()
	reg, err := NewRegistry(Operation{Name: OpSilence, Weight: 1, Apply: Silence})
	if err != nil {
		t.Fatal(err)
	}
	opts := testOptions()
	opts.CrossfadeFrames = crossfade
	return NewEngine(reg, opts)
}

func TestApplySilenceWindow(t *testing.T) {
	buf := noisyBuffer(2, 400, 3)
	before := buf.Clone()

	w := Window{Start: 100, Length: 50}
	if _, err := silenceEngine(t, 0).Apply(context.Background(), buf, []Window{w}, NewRand(1)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for c := range buf.Channels {
		for i, v := range buf.Channels[c] {
			want := before.Channels[c][i]
			if i >= w.Start && i < w.End() {
				want = 0
			}
			if v != want {
				t.Fatalf("channel %d frame %d = %d, want %d", c, i, v, want)
			}
		}
	}
}

func TestApplySilenceWindowWithCrossfade(t *testing.T) {
	buf := noisyBuffer(2, 400, 3)
	before := buf.Clone()

	w := Window{Start: 100, Length: 50}
	if _, err := silenceEngine(t, 8).Apply(context.Background(), buf, []Window{w}, NewRand(1)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for c := range buf.Channels {
		for i := w.Start + 8; i < w.End()-8; i++ {
			if buf.Channels[c][i] != 0 {
				t.Fatalf("channel %d frame %d = %d, want 0 inside the fades", c, i, buf.Channels[c][i])
			}
		}
		if !slices.Equal(buf.Channels[c][:w.Start], before.Channels[c][:w.Start]) {
			t.Errorf("channel %d changed before the window", c)
		}
		if !slices.Equal(buf.Channels[c][w.End():], before.Channels[c][w.End():]) {
			t.Errorf("channel %d changed after the window", c)
		}
		// The first faded frame still carries most of the original.
		orig, got := before.Channels[c][w.Start], buf.Channels[c][w.Start]
		if abs(got) > abs(orig) {
			t.Errorf("channel %d fade-in frame = %d, louder than original %d", c, got, orig)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestApplyRejectsBadWindows(t *testing.T) {
	tests := map[string][]Window{
		"past end":    {{Start: 390, Length: 20}},
		"negative":    {{Start: -1, Length: 5}},
		"overlapping": {{Start: 10, Length: 20}, {Start: 20, Length: 5}},
		"unordered":   {{Start: 100, Length: 5}, {Start: 10, Length: 5}},
	}
	for name, windows := range tests {
		buf := noisyBuffer(2, 400, 3)
		before := buf.Clone()

		e := silenceEngine(t, 0)
		_, err := e.Apply(context.Background(), buf, windows, NewRand(1))
		if !IsKind(err, Fatal) {
			t.Errorf("%s: err = %v, want Fatal", name, err)
		}
		if e.State() != StateFailed {
			t.Errorf("%s: state = %v, want failed", name, e.State())
		}
		if !slices.Equal(buf.Channels[0], before.Channels[0]) {
			t.Errorf("%s: buffer modified on failure", name)
		}
	}
}

func TestApplyContainsFailingOperations(t *testing.T) {
	ops := map[string]ApplyFunc{
		"panics": func(*Region, Rand) error { panic("boom") },
		"errors": func(*Region, Rand) error { return errors.New("nope") },
		"resizes": func(r *Region, _ Rand) error {
			r.Channels[0] = r.Channels[0][:1]
			return nil
		},
	}
	for name, apply := range ops {
		reg, err := NewRegistry(Operation{Name: name, Weight: 1, Apply: apply})
		if err != nil {
			t.Fatal(err)
		}
		buf := noisyBuffer(2, 400, 3)
		before := buf.Clone()

		_, err = NewEngine(reg, testOptions()).Apply(context.Background(), buf, []Window{{Start: 10, Length: 20}}, NewRand(1))
		if !IsKind(err, Fatal) {
			t.Errorf("%s: err = %v, want Fatal", name, err)
		}
		if !slices.Equal(buf.Channels[0], before.Channels[0]) {
			t.Errorf("%s: buffer modified on failure", name)
		}
	}
}

func TestRunTinyBufferHighRate(t *testing.T) {
	buf := noisyBuffer(2, 10, 9)
	opts := testOptions()
	opts.HitsPerMinute = 1e9

	report, err := NewEngine(DefaultRegistry(), opts).Run(context.Background(), buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Windows > 10 {
		t.Errorf("windows = %d, want at most 10", report.Windows)
	}
	if buf.FrameCount() != 10 {
		t.Errorf("frames = %d, want 10", buf.FrameCount())
	}
}

func TestRunBufferShorterThanSpacing(t *testing.T) {
	buf := noisyBuffer(2, 100, 9)
	before := buf.Clone()

	report, err := NewEngine(DefaultRegistry(), testOptions()).Run(context.Background(), buf)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Windows != 0 {
		t.Fatalf("windows = %d, want 0", report.Windows)
	}
	if !slices.Equal(buf.Channels[0], before.Channels[0]) {
		t.Error("buffer changed without any windows")
	}
}
