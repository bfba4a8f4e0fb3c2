// Package ogg wraps jfreymuth/oggvorbis for decoding Ogg Vorbis audio files,
// giving FileSource an additional source format beyond the teacher's
// mp3/flac/wav set.
package ogg

import (
	"fmt"
	"math"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

// Decoder wraps oggvorbis for decoding Ogg Vorbis audio files.
// Implements types.AudioDecoder.
type Decoder struct {
	file     *os.File
	reader   *oggvorbis.Reader
	rate     int
	channels int
}

// NewDecoder creates a new Ogg Vorbis decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Open opens an Ogg Vorbis file for decoding.
func (d *Decoder) Open(fileName string) error {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("failed to open OGG file: %w", err)
	}

	reader, err := oggvorbis.NewReader(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to read OGG headers: %w", err)
	}

	d.file = file
	d.reader = reader
	d.rate = reader.SampleRate()
	d.channels = reader.Channels()

	return nil
}

// Close closes the underlying file.
func (d *Decoder) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// GetFormat returns the audio format. oggvorbis decodes to float32 in
// [-1, 1]; DecodeSamples rescales to signed 32-bit PCM so bitsPerSample
// follows the same integer-PCM convention every other decoder uses.
func (d *Decoder) GetFormat() (rate, channels, bitsPerSample int) {
	return d.rate, d.channels, 32
}

// DecodeSamples decodes up to 'samples' frames into the provided buffer as
// little-endian signed 32-bit PCM.
//
// The buffer must be large enough to hold samples * channels * 4 bytes.
func (d *Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.reader == nil {
		return 0, fmt.Errorf("decoder not initialized")
	}

	scratch := make([]float32, samples*d.channels)
	n, err := d.reader.Read(scratch)
	if err != nil && n == 0 {
		return 0, err
	}

	frames := n / d.channels
	for i := 0; i < frames*d.channels; i++ {
		v := scratch[i]
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		pcm := int32(math.Round(float64(v) * math.MaxInt32))
		off := i * 4
		audio[off] = byte(pcm)
		audio[off+1] = byte(pcm >> 8)
		audio[off+2] = byte(pcm >> 16)
		audio[off+3] = byte(pcm >> 24)
	}

	return frames, nil
}
