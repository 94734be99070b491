package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/Negr087/substr/internal/captions"
	"github.com/Negr087/substr/internal/logging"
)

// maxAudioUploadBytes bounds a single transcription upload. Four seconds of
// compressed audio stays far below this.
const maxAudioUploadBytes = 16 << 20

// TranscribeSegment is one timed piece of a transcription response.
type TranscribeSegment struct {
	Start float64 `json:"start"`
	Text  string  `json:"text"`
}

// TranscribeResponse carries the joined text plus its timed segments.
type TranscribeResponse struct {
	Text     string              `json:"text"`
	Segments []TranscribeSegment `json:"segments"`
}

// handleTranscribe accepts a multipart form with an "audio" file field and
// returns the transcribed (and translated) segments, timestamped relative to
// the start of the upload.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadBytes)
	file, _, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "audio file field required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read audio upload")
		return
	}
	if len(audio) == 0 {
		s.writeError(w, http.StatusBadRequest, "audio upload is empty")
		return
	}

	units, err := s.transcriber.Transcribe(r.Context(), audio)
	if err != nil {
		s.logger.Warn("transcription failed", logging.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "transcription failed",
			"details": err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, buildTranscribeResponse(units))
}

func buildTranscribeResponse(units []captions.Unit) TranscribeResponse {
	segments := make([]TranscribeSegment, 0, len(units))
	texts := make([]string, 0, len(units))
	for _, unit := range units {
		segments = append(segments, TranscribeSegment{Start: unit.Offset, Text: unit.Text})
		texts = append(texts, unit.Text)
	}
	return TranscribeResponse{
		Text:     strings.Join(texts, " "),
		Segments: segments,
	}
}
