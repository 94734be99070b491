package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Negr087/substr/internal/capture"
	"github.com/Negr087/substr/internal/captions"
	"github.com/Negr087/substr/internal/logging"
	"github.com/Negr087/substr/internal/nostr"
	"github.com/Negr087/substr/internal/services"
	"github.com/Negr087/substr/internal/session"
)

const (
	testEventID  = "5c83da77af1dec6d7289834998ad7aafbd9e2191396d75ec3cc27f5a77226f36"
	testMediaURL = "https://cdn.example.com/clip.mp4"
)

type stubTranscriber struct {
	units []captions.Unit
	err   error
}

func (s stubTranscriber) Transcribe(ctx context.Context, audio []byte) ([]captions.Unit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.units, nil
}

type stubEventResolver struct{}

func (stubEventResolver) Resolve(ctx context.Context, id string) (*nostr.Event, string, error) {
	return &nostr.Event{
		ID:   id,
		Kind: nostr.KindFileMetadata,
		Tags: [][]string{{"url", testMediaURL}},
	}, "wss://relay.damus.io", nil
}

func newTestSession(t *testing.T) (*session.Session, *captions.Cache) {
	t.Helper()
	cache := captions.NewCache()
	pipeline := captions.NewPipeline(stubTranscriber{}, cache, 1, logging.NewNop())
	sampler := capture.NewSampler(
		func(string) (capture.Tap, error) { return nil, errors.New("no tap in tests") },
		time.Second, 1, pipeline.OnSegment, nil, logging.NewNop(),
	)
	sess := session.New(stubEventResolver{}, sampler, pipeline, cache, nil, logging.NewNop())
	t.Cleanup(func() { _ = sess.Close() })
	return sess, cache
}

func newTestServer(t *testing.T, transcriber captions.Transcriber, opts ...Option) (*Server, *captions.Cache) {
	t.Helper()
	sess, cache := newTestSession(t)
	return New("127.0.0.1:0", sess, transcriber, logging.NewNop(), opts...), cache
}

func TestProxyVideoStreamsUpstream(t *testing.T) {
	t.Parallel()

	payload := []byte("not really an mp4")
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/webm")
		w.Write(payload)
	}))
	defer upstream.Close()

	srv, _ := newTestServer(t, stubTranscriber{})
	req := httptest.NewRequest(http.MethodGet, "/api/proxy-video?url="+upstream.URL+"/v.webm", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !bytes.Equal(w.Body.Bytes(), payload) {
		t.Errorf("body = %q", w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "video/webm" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Cache-Control"); got != proxyCacheControl {
		t.Errorf("Cache-Control = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin = %q", got)
	}
}

func TestProxyVideoValidation(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, stubTranscriber{})
	for _, target := range []string{"/api/proxy-video", "/api/proxy-video?url=ftp://nope"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
}

func TestProxyVideoUpstreamFailure(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	srv, _ := newTestServer(t, stubTranscriber{})
	req := httptest.NewRequest(http.MethodGet, "/api/proxy-video?url="+upstream.URL, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp["error"] == "" {
		t.Error("expected error message in body")
	}
}

func TestProxyVideoPreflight(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, stubTranscriber{})
	req := httptest.NewRequest(http.MethodOptions, "/api/proxy-video", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("preflight should advertise allowed methods")
	}
}

func multipartAudio(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, "window.ogg")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestTranscribeReturnsSegments(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, stubTranscriber{units: []captions.Unit{
		{Offset: 0, Text: "hola"},
		{Offset: 1.8, Text: "mundo"},
	}})

	body, contentType := multipartAudio(t, "audio", []byte("ogg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp TranscribeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Text != "hola mundo" {
		t.Errorf("text = %q", resp.Text)
	}
	if len(resp.Segments) != 2 || resp.Segments[1].Start != 1.8 || resp.Segments[1].Text != "mundo" {
		t.Errorf("segments = %+v", resp.Segments)
	}
}

func TestTranscribeRejectsBadUploads(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, stubTranscriber{})

	cases := []struct {
		name  string
		field string
		data  []byte
	}{
		{name: "wrong field name", field: "clip", data: []byte("ogg-bytes")},
		{name: "empty audio", field: "audio", data: nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			body, contentType := multipartAudio(t, tc.field, tc.data)
			req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestTranscribeFailureCarriesDetails(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, stubTranscriber{
		err: services.Wrap(services.ErrService, "huggingface", "transcribe", "model loading", nil),
	})

	body, contentType := multipartAudio(t, "audio", []byte("ogg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "transcription failed" || resp["details"] == "" {
		t.Errorf("body = %+v", resp)
	}
}

func TestStatusReflectsSession(t *testing.T) {
	t.Parallel()

	srv, cache := newTestServer(t, stubTranscriber{})
	if _, err := srv.session.Search(context.Background(), testEventID); err != nil {
		t.Fatalf("Search: %v", err)
	}
	cache.Timeline(testMediaURL).Append([]captions.Entry{{Time: 1.0, Text: "hola"}})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Search.MediaURL != testMediaURL || resp.Search.EventID != testEventID {
		t.Errorf("search = %+v", resp.Search)
	}
	if resp.Capturing {
		t.Error("nothing should be capturing")
	}
	if resp.Captions != 1 {
		t.Errorf("captions = %d, want 1", resp.Captions)
	}
}

func TestHistoryListsCaptions(t *testing.T) {
	t.Parallel()

	srv, cache := newTestServer(t, stubTranscriber{})
	if _, err := srv.session.Search(context.Background(), testEventID); err != nil {
		t.Fatalf("Search: %v", err)
	}
	cache.Timeline(testMediaURL).Append([]captions.Entry{
		{Time: 1.0, Text: "uno"},
		{Time: 5.0, Text: "dos"},
		{Time: 9.0, Text: "tres"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=2", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.MediaURL != testMediaURL {
		t.Errorf("media url = %q", resp.MediaURL)
	}
	if len(resp.Captions) != 2 || resp.Captions[0].Text != "dos" || resp.Captions[1].Text != "tres" {
		t.Errorf("captions = %+v", resp.Captions)
	}

	bad := httptest.NewRequest(http.MethodGet, "/api/history?limit=-1", nil)
	wBad := httptest.NewRecorder()
	srv.Handler().ServeHTTP(wBad, bad)
	if wBad.Code != http.StatusBadRequest {
		t.Errorf("negative limit: status = %d, want 400", wBad.Code)
	}
}

func TestStartServesAndStops(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, stubTranscriber{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	srv.Stop()
}
