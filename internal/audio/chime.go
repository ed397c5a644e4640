package audio

import (
	"encoding/binary"
	"math"
)

const chimeSampleRate = 22050

type note struct {
	freq   float64
	millis int
}

// Each phase gets its own short melody so the cue is recognisable without
// looking at the screen.
var melodies = map[string][]note{
	"focus":       {{freq: 660, millis: 140}, {freq: 880, millis: 220}},
	"short_break": {{freq: 880, millis: 140}, {freq: 660, millis: 220}},
	"long_break":  {{freq: 880, millis: 120}, {freq: 660, millis: 120}, {freq: 440, millis: 320}},
}

// KnownCue reports whether name has a melody.
func KnownCue(name string) bool {
	_, ok := melodies[name]
	return ok
}

// ChimePCM renders the melody for name as PCM16LE mono at chimeSampleRate.
// volume is a percentage in [0, 100].
func ChimePCM(name string, volume int) []byte {
	notes, ok := melodies[name]
	if !ok {
		return nil
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	amp := float64(volume) / 100 * 0.6 * math.MaxInt16

	var total int
	for _, n := range notes {
		total += chimeSampleRate * n.millis / 1000
	}
	pcm := make([]byte, 0, total*2)
	for _, n := range notes {
		samples := chimeSampleRate * n.millis / 1000
		for i := 0; i < samples; i++ {
			// Linear fade out per note avoids clicks between notes.
			env := 1 - float64(i)/float64(samples)
			v := amp * env * math.Sin(2*math.Pi*n.freq*float64(i)/chimeSampleRate)
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(int16(v)))
		}
	}
	return pcm
}

// ChimeWAV wraps ChimePCM in a WAV container.
func ChimeWAV(name string, volume int) ([]byte, error) {
	return EncodeWAVPCM16LE(ChimePCM(name, volume), chimeSampleRate)
}
