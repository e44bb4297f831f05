package stream

import (
	"context"
	"sync"
	"time"

	"github.com/ossrs/go-oryx-lib/logger"
	"github.com/satindergrewal/cutup/internal/audio"
)

// Take is one rendering ready for audition: interleaved preview PCM padded
// to whole frames.
type Take struct {
	Name    string
	Samples []int16
}

// NewTake renders buf in the preview format.
func NewTake(name string, buf *audio.Buffer) Take {
	pcm := audio.PreviewPCM(buf)
	if rem := len(pcm) % audio.FrameSamples; rem != 0 {
		pcm = append(pcm, make([]int16, audio.FrameSamples-rem)...)
	}
	return Take{Name: name, Samples: pcm}
}

// Frames returns the number of 20ms frames in the take.
func (t *Take) Frames() int {
	return len(t.Samples) / audio.FrameSamples
}

func (t *Take) frame(i int) []int16 {
	return t.Samples[i*audio.FrameSamples : (i+1)*audio.FrameSamples]
}

// Status is what the player is doing right now.
type Status struct {
	Take     string        `json:"take"`
	Position time.Duration `json:"position"`
	Duration time.Duration `json:"duration"`
	Loops    int           `json:"loops"`
}

// Player loops takes at real-time rate as 20ms PCM frames. The end of each
// pass crossfades into the start of the next take queued, or back into its
// own start when nothing is queued.
type Player struct {
	takeCh       chan Take
	frameCh      chan []int16
	skipCh       chan struct{}
	crossfadeDur time.Duration

	mu     sync.RWMutex
	status Status
}

// NewPlayer creates a player with the given loop crossfade.
func NewPlayer(crossfade time.Duration) *Player {
	return &Player{
		takeCh:       make(chan Take, 8),
		frameCh:      make(chan []int16, 100),
		skipCh:       make(chan struct{}, 1),
		crossfadeDur: crossfade,
	}
}

// Frames returns the channel of outgoing PCM frames.
func (p *Player) Frames() <-chan []int16 {
	return p.frameCh
}

// Enqueue queues a take to follow the current one.
func (p *Player) Enqueue(t Take) {
	p.takeCh <- t
}

// Skip restarts the current take, or moves to the queued one.
func (p *Player) Skip() {
	select {
	case p.skipCh <- struct{}{}:
	default:
	}
}

// Status returns current playback info.
func (p *Player) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Run plays until ctx is cancelled, then closes the frame channel.
func (p *Player) Run(ctx context.Context) {
	defer close(p.frameCh)

	ticker := time.NewTicker(audio.FrameDuration)
	defer ticker.Stop()

	var cur *Take
	var startFrame int
	for {
		if cur == nil {
			select {
			case <-ctx.Done():
				return
			case t := <-p.takeCh:
				cur, startFrame = &t, 0
			}
		}

		next, nextStart, ok := p.playTake(ctx, ticker, cur, startFrame)
		if !ok {
			return
		}
		cur, startFrame = next, nextStart
	}
}

// playTake plays one pass of t from startFrame and returns what comes next.
// ok is false once ctx is done.
func (p *Player) playTake(ctx context.Context, ticker *time.Ticker, t *Take, startFrame int) (next *Take, nextStart int, ok bool) {
	total := t.Frames()
	if total == 0 {
		logger.Wf(ctx, "skip empty take %v", t.Name)
		return nil, 0, true
	}
	cfFrames := min(int(p.crossfadeDur/audio.FrameDuration), total/2)
	cfStart := total - cfFrames

	p.setTake(t, startFrame, total)

	for i := startFrame; i < cfStart; i++ {
		if !p.sendFrame(ctx, ticker, t.frame(i)) {
			return p.interrupted(ctx, t)
		}
		p.updatePosition(i)
	}

	incoming := t
	select {
	case q := <-p.takeCh:
		incoming = &q
	default:
	}
	if incoming.Frames() < cfFrames {
		cfFrames = 0
	}

	for i := 0; i < cfFrames; i++ {
		progress := float64(i) / float64(cfFrames)
		frame := audio.CrossfadeFrames(t.frame(cfStart+i), incoming.frame(i), progress)
		if !p.sendFrame(ctx, ticker, frame) {
			return p.interrupted(ctx, incoming)
		}
		p.updatePosition(cfStart + i)
	}

	if incoming == t {
		p.mu.Lock()
		p.status.Loops++
		p.mu.Unlock()
	} else {
		logger.Tf(ctx, "audition crossfade %v to %v", t.Name, incoming.Name)
	}
	return incoming, cfFrames, true
}

// interrupted decides what plays after a skip: the queued take if any,
// otherwise t again from the top.
func (p *Player) interrupted(ctx context.Context, t *Take) (*Take, int, bool) {
	if ctx.Err() != nil {
		return nil, 0, false
	}
	select {
	case q := <-p.takeCh:
		return &q, 0, true
	default:
	}
	return t, 0, true
}

// sendFrame waits for the ticker then sends a frame. Returns false on skip or cancel.
func (p *Player) sendFrame(ctx context.Context, ticker *time.Ticker, frame []int16) bool {
	select {
	case <-ctx.Done():
		return false
	case <-p.skipCh:
		logger.Tf(ctx, "audition skipped")
		return false
	case <-ticker.C:
	}

	select {
	case p.frameCh <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Player) setTake(t *Take, startFrame, totalFrames int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status.Take != t.Name {
		p.status.Loops = 0
	}
	p.status.Take = t.Name
	p.status.Position = time.Duration(startFrame) * audio.FrameDuration
	p.status.Duration = time.Duration(totalFrames) * audio.FrameDuration
}

func (p *Player) updatePosition(frameIdx int) {
	p.mu.Lock()
	p.status.Position = time.Duration(frameIdx) * audio.FrameDuration
	p.mu.Unlock()
}
