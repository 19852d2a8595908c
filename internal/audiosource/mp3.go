// ABOUTME: MP3 Source builder, backed by hajimehoshi/go-mp3
// ABOUTME: go-mp3's Decoder is itself an io.Reader/io.Seeker over decoded s16 stereo PCM
package audiosource

import (
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"github.com/resonate-protocol/playd/internal/audio"
	"github.com/resonate-protocol/playd/internal/playerr"
)

// mp3ChunkBytes bounds how many decoded bytes one Decode call returns.
const mp3ChunkBytes = 8192

// MP3Source decodes an MP3 file via go-mp3, which always produces
// interleaved signed 16-bit stereo PCM regardless of the source's own
// channel layout.
type MP3Source struct {
	path   string
	file   *os.File
	dec    *mp3.Decoder
	format audio.Format
	eof    bool
}

// NewMP3 opens path as an MP3 stream.
func NewMP3(path string) (audio.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, playerr.Wrap(playerr.DecoderBuild, "open mp3 file", err)
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, playerr.Wrap(playerr.DecoderBuild, "decode mp3 header", err)
	}

	format := audio.Format{
		Channels:   2,
		SampleRate: dec.SampleRate(),
		Sample:     audio.S16,
	}

	return &MP3Source{path: path, file: f, dec: dec, format: format}, nil
}

func (s *MP3Source) File() string         { return s.path }
func (s *MP3Source) Format() audio.Format { return s.format }

func (s *MP3Source) Length() int64 {
	n := s.dec.Length()
	if n < 0 {
		return audio.UnknownLength
	}
	return n / int64(s.format.FrameSize())
}

func (s *MP3Source) Decode() (audio.DecodeResult, error) {
	if s.eof {
		return audio.DecodeResult{Status: audio.EOF}, nil
	}

	buf := make([]byte, mp3ChunkBytes)
	n, err := s.dec.Read(buf)
	if err != nil && err != io.EOF {
		return audio.DecodeResult{}, playerr.Wrap(playerr.Internal, "mp3 decode", err)
	}

	status := audio.Decoding
	if err == io.EOF {
		status = audio.EOF
		s.eof = true
	}
	return audio.DecodeResult{Status: status, Bytes: buf[:n]}, nil
}

func (s *MP3Source) Seek(sampleIndex int64) (int64, error) {
	byteOffset := sampleIndex * int64(s.format.FrameSize())
	pos, err := s.dec.Seek(byteOffset, io.SeekStart)
	if err != nil {
		return 0, playerr.Wrap(playerr.SeekRange, "mp3 seek", err)
	}
	s.eof = false
	return pos / int64(s.format.FrameSize()), nil
}

func (s *MP3Source) Close() error {
	return s.file.Close()
}
