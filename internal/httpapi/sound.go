package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/pomochat/internal/audio"
)

// handleSound serves the phase cue as WAV at the current volume, so a
// browser source in the streaming software can play it.
func (s *Server) handleSound(w http.ResponseWriter, r *http.Request) {
	cue := strings.TrimSuffix(chi.URLParam(r, "cue"), ".wav")
	if !audio.KnownCue(cue) {
		respondError(w, http.StatusNotFound, "unknown_cue", "no sound for "+cue)
		return
	}
	volume := audio.DefaultVolume
	if s.deps.Volume != nil {
		volume = s.deps.Volume.Volume()
	}
	wav, err := audio.ChimeWAV(cue, volume)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}
