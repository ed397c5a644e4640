package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

var ErrInvalidVolume = errors.New("volume must be between 0 and 100")

const DefaultVolume = 50

// Player renders the phase-change chime at the current volume. When a
// directory is configured the chime is written to <dir>/<name>.wav and, if a
// command is configured, handed to that command for playback.
type Player struct {
	mu      sync.RWMutex
	volume  int
	dir     string
	command string
}

type PlayerConfig struct {
	Dir     string
	Command string
	Volume  int
}

func NewPlayer(cfg PlayerConfig) *Player {
	vol := cfg.Volume
	if vol < 0 || vol > 100 {
		vol = DefaultVolume
	}
	return &Player{
		volume:  vol,
		dir:     strings.TrimSpace(cfg.Dir),
		command: strings.TrimSpace(cfg.Command),
	}
}

func (p *Player) Volume() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume
}

// SetVolume stores a percentage. Out-of-range values leave the volume unchanged.
func (p *Player) SetVolume(percent int) error {
	if percent < 0 || percent > 100 {
		return ErrInvalidVolume
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = percent
	return nil
}

// Cue renders the chime for name. It returns the written file path, or ""
// when no directory is configured. Playback, when configured, is started in
// the background.
func (p *Player) Cue(ctx context.Context, name string) (string, error) {
	if !KnownCue(name) {
		return "", fmt.Errorf("unknown cue %q", name)
	}
	p.mu.RLock()
	vol, dir, command := p.volume, p.dir, p.command
	p.mu.RUnlock()

	if dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create sound dir: %w", err)
	}
	path := filepath.Join(dir, name+".wav")
	if err := WriteWAVPCM16LEFile(path, ChimePCM(name, vol), chimeSampleRate); err != nil {
		return "", err
	}
	if command == "" || vol == 0 {
		return path, nil
	}

	cmd := exec.CommandContext(ctx, command, path)
	if err := cmd.Start(); err != nil {
		return path, fmt.Errorf("start %s: %w", command, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("sound playback failed: %v", err)
		}
	}()
	return path, nil
}
