package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

// wavFormatPCM is the RIFF format tag for integer PCM.
const wavFormatPCM = 1

// ReadFile decodes path into a Buffer. Integer PCM WAV files are read
// directly; anything else is first transcoded by ffmpeg into a temporary
// 16-bit WAV that keeps the source channel layout and sample rate.
func ReadFile(ctx context.Context, path, ffmpeg string) (*Buffer, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		buf, err := decodeWAV(path)
		if err == nil {
			return buf, nil
		}
		logger.Wf(ctx, "decode %v as wav failed, fallback to ffmpeg, err %v", path, err)
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("cutup-%v.wav", uuid.NewString()))
	defer os.Remove(tmp)

	if err := transcode(ctx, ffmpeg, path, tmp); err != nil {
		return nil, errors.Wrapf(err, "transcode %v", path)
	}

	buf, err := decodeWAV(tmp)
	if err != nil {
		return nil, errors.Wrapf(err, "decode transcoded %v", path)
	}
	logger.Tf(ctx, "decode %v by ffmpeg ok, channels=%v, rate=%v, frames=%v",
		path, buf.NumChannels(), buf.SampleRate, buf.FrameCount())
	return buf, nil
}

func transcode(ctx context.Context, ffmpeg, input, output string) error {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, ffmpeg,
		"-i", input,
		"-vn",
		"-c:a", "pcm_s16le",
		"-loglevel", "error",
		"-y", output,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "ffmpeg %v", strings.TrimSpace(string(out)))
	}
	return nil
}

func decodeWAV(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %v", path)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, errors.Wrapf(err, "read header %v", path)
	}
	if dec.NumChans < 1 {
		return nil, errors.Errorf("invalid wav file %v", path)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, errors.Errorf("unsupported wav format %v", dec.WavAudioFormat)
	}
	// 8-bit WAV is unsigned, leave it to ffmpeg.
	if !supportedDepth(int(dec.BitDepth)) {
		return nil, errors.Errorf("unsupported bit depth %v", dec.BitDepth)
	}

	ib, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrapf(err, "decode %v", path)
	}

	buf, err := FromIntBuffer(ib, int(dec.BitDepth))
	if err != nil {
		return nil, errors.Wrapf(err, "convert %v", path)
	}
	return buf, nil
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
