package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nguyentantai21042004/audio-reader/internal/models"
	"github.com/nguyentantai21042004/audio-reader/internal/pipeline"
)

// multipartSlack covers the multipart envelope around the file part.
const multipartSlack = 1 << 20

func (h *Handler) session(r *http.Request) (*pipeline.Session, error) {
	return h.registry.Get(chi.URLParam(r, "sessionID"))
}

func slotParam(r *http.Request) (models.Slot, error) {
	slot, err := models.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		return 0, badRequest{msg: err.Error()}
	}
	return slot, nil
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Create(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": s.ID()})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	snap, err := s.Snapshot()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Close(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bind streams the multipart "file" part into the slot
func (h *Handler) bind(w http.ResponseWriter, r *http.Request) {
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

	// Step 1: Reject oversize bodies before touching the slot
	if h.maxUpload > 0 && r.ContentLength > h.maxUpload+multipartSlack {
		h.writeError(w, r, errTooLarge)
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		h.writeError(w, r, badRequest{msg: fmt.Sprintf("expected multipart/form-data: %v", err)})
		return
	}

	// Step 2: Find the file part and check its container
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			h.writeError(w, r, badRequest{msg: `missing "file" part`})
			return
		}
		if err != nil {
			h.writeError(w, r, badRequest{msg: fmt.Sprintf("read multipart: %v", err)})
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		name := filepath.Base(part.FileName())
		if container := models.ContainerOf(name); !h.allowed[container] {
			h.writeError(w, r, badRequest{msg: fmt.Sprintf("unsupported container %q, allowed: %s", container, h.allowedList())})
			return
		}

		// Step 3: Bind, enforcing the size bound while streaming
		var src io.Reader = part
		if h.maxUpload > 0 {
			src = &limitReader{r: part, remaining: h.maxUpload}
		}
		asset, err := s.Bind(r.Context(), slot, name, src)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, asset)
		return
	}
}

func (h *Handler) allowedList() string {
	names := make([]string, 0, len(h.allowed))
	for c := range h.allowed {
		names = append(names, c)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// limitReader fails with errTooLarge once more than remaining bytes are read.
type limitReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, errTooLarge
	}
	return n, err
}

func (h *Handler) processAll(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	report, err := s.ProcessAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	snap, err := s.Snapshot()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report":  report,
		"session": snap,
	})
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	snap, err := s.Snapshot()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	f, err := os.CreateTemp("", "report-*.docx")
	if err != nil {
		h.writeError(w, r, fmt.Errorf("create report file: %w", err))
		return
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	title := "Session " + s.ID()
	if asset := snap.Slot(models.SlotPrimary).Asset; asset != nil {
		title = strings.TrimSuffix(asset.Name, filepath.Ext(asset.Name))
	}
	if err := h.exporter.WriteReport(r.Context(), snap, title, path); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", `attachment; filename="report.docx"`)
	http.ServeFile(w, r, path)
}

type publishRequest struct {
	VideoID string `json:"video_id"`
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		h.writeError(w, r, errPublishingDisabled)
		return
	}
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, badRequest{msg: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if strings.TrimSpace(req.VideoID) == "" {
		h.writeError(w, r, badRequest{msg: "video_id is required"})
		return
	}

	snap, err := s.Snapshot()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if snap.YouTubeDescription == nil {
		h.writeError(w, r, &pipeline.StageError{Key: "youtube.description", Err: pipeline.ErrNotGenerated})
		return
	}

	url, err := h.publisher.UpdateDescription(r.Context(), req.VideoID, snap.YouTubeDescription.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
