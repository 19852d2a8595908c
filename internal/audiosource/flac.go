// ABOUTME: FLAC Source builder, backed by mewkiz/flac
// ABOUTME: Pulls one frame (a multi-sample block) per Decode call
package audiosource

import (
	"encoding/binary"
	"io"

	"github.com/mewkiz/flac"

	"github.com/resonate-protocol/playd/internal/audio"
	"github.com/resonate-protocol/playd/internal/playerr"
)

// FLACSource decodes a FLAC file via mewkiz/flac. FLAC's native decode
// unit is already a bounded frame (typically a few thousand samples), so
// Decode pulls exactly one frame per call instead of re-chunking like
// WAVSource does.
type FLACSource struct {
	path   string
	stream *flac.Stream
	format audio.Format
}

// NewFLAC opens path as a FLAC stream.
func NewFLAC(path string) (audio.Source, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, playerr.Wrap(playerr.DecoderBuild, "open flac stream", err)
	}

	format := audio.Format{
		Channels:   int(stream.Info.NChannels),
		SampleRate: int(stream.Info.SampleRate),
		Sample:     audio.S16,
	}

	return &FLACSource{path: path, stream: stream, format: format}, nil
}

func (s *FLACSource) File() string         { return s.path }
func (s *FLACSource) Format() audio.Format { return s.format }

func (s *FLACSource) Length() int64 {
	if s.stream.Info.NSamples == 0 {
		return audio.UnknownLength
	}
	return int64(s.stream.Info.NSamples)
}

func (s *FLACSource) Decode() (audio.DecodeResult, error) {
	frame, err := s.stream.ParseNext()
	if err == io.EOF {
		return audio.DecodeResult{Status: audio.EOF}, nil
	}
	if err != nil {
		return audio.DecodeResult{}, playerr.Wrap(playerr.Internal, "flac frame decode", err)
	}

	nSamples := len(frame.Subframes[0].Samples)
	channels := len(frame.Subframes)
	out := make([]byte, 0, nSamples*channels*2)

	var shift uint
	if bps := s.stream.Info.BitsPerSample; bps > 16 {
		shift = uint(bps) - 16
	}

	var b [2]byte
	for i := 0; i < nSamples; i++ {
		for ch := 0; ch < channels; ch++ {
			v := frame.Subframes[ch].Samples[i]
			var s16 int16
			if shift > 0 {
				s16 = int16(v >> shift)
			} else {
				s16 = int16(v)
			}
			binary.LittleEndian.PutUint16(b[:], uint16(s16))
			out = append(out, b[:]...)
		}
	}

	return audio.DecodeResult{Status: audio.Decoding, Bytes: out}, nil
}

func (s *FLACSource) Seek(sampleIndex int64) (int64, error) {
	if sampleIndex < 0 {
		sampleIndex = 0
	}
	pos, err := s.stream.Seek(uint64(sampleIndex))
	if err != nil {
		return 0, playerr.Wrap(playerr.SeekRange, "flac seek", err)
	}
	return int64(pos), nil
}

func (s *FLACSource) Close() error {
	return s.stream.Close()
}
