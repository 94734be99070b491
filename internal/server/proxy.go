package server

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Negr087/substr/internal/logging"
)

// proxyCacheControl pins successful responses in the browser cache; media
// content behind a fixed URL never changes.
const proxyCacheControl = "public, max-age=31536000"

// handleProxyVideo streams a remote media URL through this origin so the
// page's audio tap can read it without tripping cross-origin restrictions.
func (s *Server) handleProxyVideo(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet:
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target == "" {
		s.writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}
	if parsed, err := url.Parse(target); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		s.writeError(w, http.StatusBadRequest, "url must be http or https")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid media url")
		return
	}
	// Byte-range requests keep seeking cheap for large files.
	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := s.upstream.Do(req)
	if err != nil {
		s.logger.Warn("proxy fetch failed",
			logging.String(logging.FieldMediaURL, target),
			logging.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, "failed to fetch video")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("proxy upstream status",
			logging.String(logging.FieldMediaURL, target),
			logging.Int("status", resp.StatusCode),
		)
		s.writeError(w, http.StatusInternalServerError, "failed to fetch video")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", proxyCacheControl)
	for _, header := range []string{"Content-Length", "Content-Range", "Accept-Ranges"} {
		if value := resp.Header.Get(header); value != "" {
			w.Header().Set(header, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Debug("proxy stream interrupted",
			logging.String(logging.FieldMediaURL, target),
			logging.Error(err),
		)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Range, Content-Type")
}
