package stream

import (
	"context"
	"io"
	"net/http"
	"os/exec"
	"strconv"

	"github.com/ossrs/go-oryx-lib/logger"
	"github.com/satindergrewal/cutup/internal/audio"
)

// HTTPHandler serves the audition as a chunked MP3 stream. Each connection
// spawns an ffmpeg process to encode PCM to MP3 in real time.
type HTTPHandler struct {
	broadcaster *Broadcaster
	ffmpeg      string
}

// NewHTTPHandler creates an HTTP stream handler using the given ffmpeg binary.
func NewHTTPHandler(b *Broadcaster, ffmpeg string) *HTTPHandler {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &HTTPHandler{broadcaster: b, ffmpeg: ffmpeg}
}

// encoderArgs is the ffmpeg command line for preview PCM on stdin to MP3 on stdout.
func encoderArgs() []string {
	return []string{
		"-f", "s16le",
		"-ar", strconv.Itoa(audio.PreviewSampleRate),
		"-ac", strconv.Itoa(audio.PreviewChannels),
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", "192k",
		"-f", "mp3",
		"-fflags", "nobuffer",
		"-flush_packets", "1",
		"-loglevel", "error",
		"pipe:1",
	}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(logger.WithContext(r.Context()))
	defer cancel()

	cmd := exec.CommandContext(ctx, h.ffmpeg, encoderArgs()...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		logger.Ef(ctx, "audition stdin pipe err %+v", err)
		http.Error(w, "encoder unavailable", http.StatusInternalServerError)
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		logger.Ef(ctx, "audition stdout pipe err %+v", err)
		http.Error(w, "encoder unavailable", http.StatusInternalServerError)
		return
	}
	if err := cmd.Start(); err != nil {
		logger.Ef(ctx, "audition start %v err %+v", h.ffmpeg, err)
		http.Error(w, "encoder unavailable", http.StatusInternalServerError)
		return
	}
	defer cmd.Wait()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("ICY-Name", "cutup audition")

	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)

	logger.Tf(ctx, "audition http listener connected, remote=%v, total=%v", r.RemoteAddr, h.broadcaster.ListenerCount())
	defer func() {
		logger.Tf(ctx, "audition http listener gone, remote=%v, dropped=%v", r.RemoteAddr, listener.Dropped())
	}()

	go func() {
		defer stdin.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-listener.done:
				return
			case frame, ok := <-listener.C:
				if !ok {
					return
				}
				if _, err := stdin.Write(audio.SamplesToBytes(frame)); err != nil {
					return
				}
			}
		}
	}()

	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				break
			}
			flusher.Flush()
		}
		if err != nil {
			if err != io.EOF {
				logger.Wf(ctx, "audition read encoder err %+v", err)
			}
			break
		}
	}
	cancel()
}
