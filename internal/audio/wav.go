// Package audio renders the phase-change chime and keeps the cue volume.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ent0n29/pomochat/internal/atomicfile"
)

// wavHeader is the 44-byte canonical header for mono 16-bit PCM.
type wavHeader struct {
	Riff          [4]byte
	RiffSize      uint32
	Wave          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

func newWAVHeader(pcmLen, sampleRate int) wavHeader {
	if sampleRate <= 0 {
		sampleRate = chimeSampleRate
	}
	return wavHeader{
		Riff:          [4]byte{'R', 'I', 'F', 'F'},
		RiffSize:      uint32(36 + pcmLen),
		Wave:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1,
		Channels:      1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * 2),
		BlockAlign:    2,
		BitsPerSample: 16,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(pcmLen),
	}
}

// EncodeWAVPCM16LE wraps mono PCM16LE samples in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	if err := writeWAV(&buf, pcm, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWAVPCM16LEFile replaces path with a WAV file, so a player never
// opens a half-written cue.
func WriteWAVPCM16LEFile(path string, pcm []byte, sampleRate int) error {
	wav, err := EncodeWAVPCM16LE(pcm, sampleRate)
	if err != nil {
		return err
	}
	if err := atomicfile.Write(path, wav); err != nil {
		return fmt.Errorf("write cue: %w", err)
	}
	return nil
}

func writeWAV(out io.Writer, pcm []byte, sampleRate int) error {
	if err := binary.Write(out, binary.LittleEndian, newWAVHeader(len(pcm), sampleRate)); err != nil {
		return err
	}
	_, err := out.Write(pcm)
	return err
}
