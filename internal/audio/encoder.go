package audio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/ossrs/go-oryx-lib/errors"
)

func supportedDepth(bitDepth int) bool {
	return bitDepth == 16 || bitDepth == 24 || bitDepth == 32
}

// WriteFile serializes buf as an integer PCM WAV at the buffer's bit depth.
// Samples outside the representable range are clamped. The data goes to a
// temporary file beside path which is renamed over path only once complete,
// so a failure leaves any existing file untouched.
func WriteFile(path string, buf *Buffer) error {
	if err := buf.Validate(); err != nil {
		return errors.Wrapf(err, "invalid buffer")
	}
	depth := buf.Depth()
	if !supportedDepth(depth) {
		return errors.Errorf("unsupported output bit depth %v", depth)
	}

	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%v.%v.tmp", filepath.Base(path), uuid.NewString()))
	if err := writeWAV(tmp, buf, depth); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "rename %v to %v", tmp, path)
	}
	return nil
}

func writeWAV(path string, buf *Buffer, depth int) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %v", path)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, buf.SampleRate, depth, buf.NumChannels(), wavFormatPCM)
	if err := enc.Write(buf.IntBuffer()); err != nil {
		return errors.Wrapf(err, "write %v", path)
	}
	if err := enc.Close(); err != nil {
		return errors.Wrapf(err, "close encoder %v", path)
	}
	if err := f.Sync(); err != nil {
		return errors.Wrapf(err, "sync %v", path)
	}
	return nil
}
