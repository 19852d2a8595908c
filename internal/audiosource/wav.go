// ABOUTME: WAV Source builder, backed by go-audio/wav
// ABOUTME: Decodes the whole file up front and serves it out in chunks per tick
package audiosource

import (
	"encoding/binary"
	"os"

	"github.com/go-audio/wav"

	"github.com/resonate-protocol/playd/internal/audio"
	"github.com/resonate-protocol/playd/internal/playerr"
)

// wavChunkFrames bounds how many frames one Decode call hands to the
// pipeline, so a single tick never has to push an entire file into the
// ring at once.
const wavChunkFrames = 1024

// WAVSource decodes a WAV file via go-audio/wav. WAV's whole-file header
// means there's no streaming API to speak of, so the file is decoded to
// PCM once at Open and served out progressively from memory; this keeps
// Decode's per-tick contract (bounded work, legal zero-byte results)
// without needing our own incremental RIFF reader.
type WAVSource struct {
	path    string
	format  audio.Format
	samples []int16 // interleaved
	cursor  int      // index into samples, in units of one int16
}

// NewWAV opens path as a WAV file.
func NewWAV(path string) (audio.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, playerr.Wrap(playerr.DecoderBuild, "open wav file", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, playerr.New(playerr.DecoderBuild, "not a valid wav file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, playerr.Wrap(playerr.DecoderBuild, "decode wav pcm", err)
	}

	format := audio.Format{
		Channels:   buf.Format.NumChannels,
		SampleRate: buf.Format.SampleRate,
		Sample:     audio.S16,
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}

	return &WAVSource{path: path, format: format, samples: samples}, nil
}

func (s *WAVSource) File() string         { return s.path }
func (s *WAVSource) Format() audio.Format { return s.format }

func (s *WAVSource) Length() int64 {
	if s.format.Channels == 0 {
		return audio.UnknownLength
	}
	return int64(len(s.samples) / s.format.Channels)
}

// Decode returns the next chunk of already-decoded samples as bytes.
func (s *WAVSource) Decode() (audio.DecodeResult, error) {
	total := len(s.samples)
	if s.cursor >= total {
		return audio.DecodeResult{Status: audio.EOF}, nil
	}

	chunkLen := wavChunkFrames * s.format.Channels
	end := s.cursor + chunkLen
	if end > total {
		end = total
	}

	chunk := s.samples[s.cursor:end]
	out := make([]byte, len(chunk)*2)
	for i, v := range chunk {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	s.cursor = end

	status := audio.Decoding
	if s.cursor >= total {
		status = audio.EOF
	}
	return audio.DecodeResult{Status: status, Bytes: out}, nil
}

// Seek moves to the given sample index, clamping to the file's length.
func (s *WAVSource) Seek(sampleIndex int64) (int64, error) {
	total := int64(len(s.samples) / s.format.Channels)
	if sampleIndex < 0 {
		sampleIndex = 0
	}
	if sampleIndex > total {
		sampleIndex = total
	}

	s.cursor = int(sampleIndex) * s.format.Channels
	return sampleIndex, nil
}

func (s *WAVSource) Close() error { return nil }
