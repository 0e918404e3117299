package httpapi

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nguyentantai21042004/audio-reader/internal/models"
)

func viewParam(r *http.Request) (models.View, error) {
	view, err := models.ParseView(chi.URLParam(r, "view"))
	if err != nil {
		return "", badRequest{msg: err.Error()}
	}
	return view, nil
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slot, err := slotParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	track, err := s.Convert(r.Context(), slot)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

func (h *Handler) downloadAudio(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slot, err := slotParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	track, err := s.Audio(slot)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f, err := os.Open(track.Path)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("open audio: %w", err))
		return
	}
	defer f.Close()

	name := slot.Name() + track.Format.Ext()
	w.Header().Set("Content-Type", track.Format.MIMEType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	http.ServeContent(w, r, name, time.Time{}, f)
}

func (h *Handler) transcribe(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slot, err := slotParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := viewParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	t, err := s.Transcribe(r.Context(), slot, view)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// downloadTranscript serves a cached view as a .txt/.srt attachment
func (h *Handler) downloadTranscript(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slot, err := slotParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := viewParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	t, err := s.Transcript(slot, view)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	name := view.FileName()
	if slot.IsClip() {
		name = slot.Name() + "_" + name
	}
	contentType := "text/plain; charset=utf-8"
	if strings.HasSuffix(name, ".srt") {
		contentType = "application/x-subrip; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(t.Text))
}

func (h *Handler) summarize(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := s.Summarize(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) extractTopics(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := s.ExtractTopics(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) describeClip(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slot, err := slotParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := s.DescribeClip(r.Context(), slot)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := s.AggregateDescription(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
