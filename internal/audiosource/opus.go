// ABOUTME: Opus Source builder, backed by gopkg.in/hraban/opus.v2
// ABOUTME: Reads packets from a minimal length-prefixed framing rather than a full Ogg demuxer
package audiosource

import (
	"encoding/binary"
	"io"
	"os"

	"gopkg.in/hraban/opus.v2"

	"github.com/resonate-protocol/playd/internal/audio"
	"github.com/resonate-protocol/playd/internal/playerr"
)

// opusSampleRate and opusChannels are fixed: hraban/opus decodes to
// whatever rate/channel count the Decoder was built with, and this
// backend always requests 48kHz stereo, the native Opus rate.
const (
	opusSampleRate = 48000
	opusChannels   = 2
	// opusMaxFrameMs is the largest single Opus frame RFC 6716 allows.
	opusMaxFrameMs = 120
)

// OpusSource decodes a sequence of Opus packets via hraban/opus. The file
// format is a minimal framing of our own: each packet is prefixed with a
// 4-byte little-endian length. No Ogg container reader exists anywhere in
// the example corpus this was built from, so real Ogg-Opus files (and the
// seek-table they'd provide) aren't supported; see DESIGN.md.
type OpusSource struct {
	path            string
	file            *os.File
	dec             *opus.Decoder
	format          audio.Format
	maxFrameSamples int
	position        int64
	eof             bool
}

// NewOpus opens path as a length-prefixed Opus packet stream.
func NewOpus(path string) (audio.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, playerr.Wrap(playerr.DecoderBuild, "open opus file", err)
	}

	dec, err := opus.NewDecoder(opusSampleRate, opusChannels)
	if err != nil {
		f.Close()
		return nil, playerr.Wrap(playerr.DecoderBuild, "create opus decoder", err)
	}

	return &OpusSource{
		path:            path,
		file:            f,
		dec:             dec,
		format:          audio.Format{Channels: opusChannels, SampleRate: opusSampleRate, Sample: audio.S16},
		maxFrameSamples: opusSampleRate * opusMaxFrameMs / 1000,
	}, nil
}

func (s *OpusSource) File() string         { return s.path }
func (s *OpusSource) Format() audio.Format { return s.format }
func (s *OpusSource) Length() int64        { return audio.UnknownLength }

func (s *OpusSource) Decode() (audio.DecodeResult, error) {
	if s.eof {
		return audio.DecodeResult{Status: audio.EOF}, nil
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(s.file, lenBuf[:]); err != nil {
		s.eof = true
		return audio.DecodeResult{Status: audio.EOF}, nil
	}

	packetLen := binary.LittleEndian.Uint32(lenBuf[:])
	packet := make([]byte, packetLen)
	if _, err := io.ReadFull(s.file, packet); err != nil {
		return audio.DecodeResult{}, playerr.Wrap(playerr.Internal, "truncated opus packet", err)
	}

	pcm := make([]int16, s.maxFrameSamples*s.format.Channels)
	n, err := s.dec.Decode(packet, pcm)
	if err != nil {
		return audio.DecodeResult{}, playerr.Wrap(playerr.Internal, "opus decode", err)
	}

	frames := n * s.format.Channels
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(pcm[i]))
	}
	s.position += int64(n)

	return audio.DecodeResult{Status: audio.Decoding, Bytes: out}, nil
}

// Seek rewinds to the start of the packet stream. Without a page index,
// seeking to an arbitrary sample offset isn't possible here; any
// non-zero target still clamps to 0.
func (s *OpusSource) Seek(int64) (int64, error) {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return 0, playerr.Wrap(playerr.SeekRange, "opus seek", err)
	}
	s.position = 0
	s.eof = false
	return 0, nil
}

func (s *OpusSource) Close() error {
	return s.file.Close()
}
