package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/stampmaker/internal/config"
	"github.com/lehigh-university-libraries/stampmaker/internal/credentials"
	"github.com/lehigh-university-libraries/stampmaker/internal/imagecodec"
	"github.com/lehigh-university-libraries/stampmaker/internal/providers"
	"github.com/lehigh-university-libraries/stampmaker/internal/readiness"
	"github.com/lehigh-university-libraries/stampmaker/internal/studio"
)

type fakeGenerator struct {
	imageErr error
}

func (f *fakeGenerator) SuggestCaptions(ctx context.Context, count int, topic string) ([]string, error) {
	out := make([]string, count)
	for i := range out {
		out[i] = "idea"
	}
	return out, nil
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, req providers.ImageRequest) (string, error) {
	if f.imageErr != nil {
		return "", f.imageErr
	}
	return imagecodec.DataURI("image/png", []byte("png:"+req.Caption)), nil
}

type testServer struct {
	mux *http.ServeMux
}

func newTestServer(t *testing.T, gen providers.Generator, keyPresent bool, staticDir string) *testServer {
	t.Helper()
	env := &credentials.Environment{Names: []string{"API_KEY"}, Lookup: func(string) string {
		if keyPresent {
			return "k"
		}
		return ""
	}}
	probe := readiness.New(env, nil, false)
	probe.Check(context.Background())

	st, err := studio.New(config.Default(), gen, probe)
	if err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	New(st, env, staticDir).Routes(mux)
	return &testServer{mux: mux}
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	return s.do(t, method, path, r, "application/json")
}

func (s *testServer) createSession(t *testing.T, form any) studio.View {
	t.Helper()
	rr := s.doJSON(t, "POST", "/api/sessions", form)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var view studio.View
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	return view
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, files map[string][]byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		keyPresent bool
		want       string
	}{
		{name: "key present", keyPresent: true, want: "ok"},
		{name: "key missing", keyPresent: false, want: "missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeGenerator{}, tt.keyPresent, "")
			rr := s.do(t, "GET", "/api/health", nil, "")
			var got map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatal(err)
			}
			if got["status"] != tt.want {
				t.Errorf("Expected %s, got %v", tt.want, got)
			}
		})
	}
}

func TestKeyStatus(t *testing.T) {
	s := newTestServer(t, &fakeGenerator{}, false, "")
	rr := s.do(t, "POST", "/api/key/check", nil, "")
	var got keyStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Ready || got.State != readiness.NeedsSelection || got.CanSelect {
		t.Errorf("Unexpected key status: %+v", got)
	}

	if rr := s.do(t, "GET", "/api/key/check", nil, ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rr.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, &fakeGenerator{}, true, "")
	view := s.createSession(t, nil)
	if view.BatchSize != 8 || len(view.Items) != 8 || view.Unlocked {
		t.Errorf("Unexpected new session: %+v", view)
	}

	rr := s.doJSON(t, "PUT", "/api/sessions/"+view.ID, map[string]any{"batch_size": 16, "style": "anime"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var updated studio.View
	if err := json.Unmarshal(rr.Body.Bytes(), &updated); err != nil {
		t.Fatal(err)
	}
	if updated.BatchSize != 16 || updated.Style.Key != "anime" {
		t.Errorf("Unexpected update: %+v", updated)
	}

	if rr := s.doJSON(t, "PUT", "/api/sessions/"+view.ID, map[string]any{"batch_size": 5}); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad batch size, got %d", rr.Code)
	}

	rr = s.do(t, "GET", "/api/sessions", nil, "")
	var list []studio.View
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 session, got %d", len(list))
	}

	if rr := s.do(t, "DELETE", "/api/sessions/"+view.ID, nil, ""); rr.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rr.Code)
	}
	if rr := s.do(t, "GET", "/api/sessions/"+view.ID, nil, ""); rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
}

func TestGenerateStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		keyPresent bool
		gen        *fakeGenerator
		form       map[string]any
		wantCode   int
	}{
		{name: "wrong password", keyPresent: true, gen: &fakeGenerator{}, form: map[string]any{"password": "nope"}, wantCode: http.StatusForbidden},
		{name: "wrong password beats missing key", keyPresent: false, gen: &fakeGenerator{}, form: map[string]any{"password": "nope"}, wantCode: http.StatusForbidden},
		{name: "key not ready", keyPresent: false, gen: &fakeGenerator{}, form: map[string]any{"password": "linklelab"}, wantCode: http.StatusPreconditionFailed},
		{name: "empty batch", keyPresent: true, gen: &fakeGenerator{}, form: map[string]any{"password": "linklelab", "items": []map[string]string{{"text": " "}}}, wantCode: http.StatusBadRequest},
		{name: "remote failure", keyPresent: true, gen: &fakeGenerator{imageErr: errors.New("connection reset")}, form: map[string]any{"password": "linklelab"}, wantCode: http.StatusBadGateway},
		{name: "success", keyPresent: true, gen: &fakeGenerator{}, form: map[string]any{"password": "linklelab"}, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.gen, tt.keyPresent, "")
			view := s.createSession(t, nil)
			rr := s.doJSON(t, "POST", "/api/sessions/"+view.ID+"/generate", tt.form)
			if rr.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				var resp errorResponse
				if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
					t.Fatal(err)
				}
				if resp.Message == "" || resp.Session == nil {
					t.Errorf("Expected remediation message and session, got %+v", resp)
				}
			}
		})
	}
}

func TestGenerateAndDownload(t *testing.T) {
	s := newTestServer(t, &fakeGenerator{}, true, "")
	view := s.createSession(t, map[string]any{
		"password": "linklelab",
		"items":    []map[string]string{{"text": "first"}, {"text": ""}, {"text": "second"}},
	})

	rr := s.doJSON(t, "POST", "/api/sessions/"+view.ID+"/generate", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Session studio.View `json:"session"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	stamps := resp.Session.Stamps
	if len(stamps) != 2 || stamps[0].Caption != "second" {
		t.Fatalf("Unexpected stamps: %+v", stamps)
	}
	if resp.Session.Progress.Completed != 2 || resp.Session.Progress.Total != 2 {
		t.Errorf("Unexpected progress: %+v", resp.Session.Progress)
	}

	rr = s.do(t, "GET", "/api/sessions/"+view.ID+"/stamps/"+stamps[0].ID, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "image/png" {
		t.Errorf("Unexpected content type %s", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "stamp-02-second.png") {
		t.Errorf("Unexpected disposition %s", rr.Header().Get("Content-Disposition"))
	}
	if rr.Body.String() != "png:second" {
		t.Errorf("Unexpected body %q", rr.Body.String())
	}

	if rr := s.do(t, "GET", "/api/sessions/"+view.ID+"/stamps/nope", nil, ""); rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}

	rr = s.do(t, "POST", "/api/sessions/"+view.ID+"/reset", nil, "")
	var reset studio.View
	if err := json.Unmarshal(rr.Body.Bytes(), &reset); err != nil {
		t.Fatal(err)
	}
	if len(reset.Stamps) != 0 {
		t.Errorf("Expected empty gallery after reset, got %d", len(reset.Stamps))
	}
}

func TestSuggest(t *testing.T) {
	s := newTestServer(t, &fakeGenerator{}, true, "")
	view := s.createSession(t, nil)

	if rr := s.doJSON(t, "POST", "/api/sessions/"+view.ID+"/suggest", nil); rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 without password, got %d", rr.Code)
	}

	rr := s.doJSON(t, "POST", "/api/sessions/"+view.ID+"/suggest", map[string]any{"password": "linklelab"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Captions []string    `json:"captions"`
		Session  studio.View `json:"session"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Captions) != 8 || resp.Session.Items[0].Text != "idea" {
		t.Errorf("Unexpected suggestion response: %+v", resp)
	}
}

func TestActionBodyOfUnknownLength(t *testing.T) {
	s := newTestServer(t, &fakeGenerator{}, true, "")
	view := s.createSession(t, map[string]any{"password": "linklelab"})

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "empty chunked body", body: "", want: http.StatusOK},
		{name: "malformed body", body: "{", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/sessions/"+view.ID+"/suggest", io.NopCloser(strings.NewReader(tt.body)))
			req.ContentLength = -1
			req.TransferEncoding = []string{"chunked"}
			rr := httptest.NewRecorder()
			s.mux.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestReferenceUpload(t *testing.T) {
	s := newTestServer(t, &fakeGenerator{}, true, "")
	view := s.createSession(t, nil)
	path := "/api/sessions/" + view.ID + "/references"

	body, ct := multipartBody(t, map[string][]byte{"me.png": pngBytes(t)})
	rr := s.do(t, "POST", path, body, ct)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	body, ct = multipartBody(t, map[string][]byte{"notes.txt": []byte("hello there")})
	if rr := s.do(t, "POST", path, body, ct); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-image, got %d", rr.Code)
	}

	for range 3 {
		body, ct = multipartBody(t, map[string][]byte{"more.png": pngBytes(t)})
		s.do(t, "POST", path, body, ct)
	}
	rr = s.do(t, "GET", "/api/sessions/"+view.ID, nil, "")
	var got studio.View
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.References) != 3 || got.References[0] != "me.png" {
		t.Errorf("Expected references truncated to 3, got %v", got.References)
	}

	if rr := s.do(t, "DELETE", path+"/0", nil, ""); rr.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rr.Code)
	}
	if rr := s.do(t, "DELETE", path+"/9", nil, ""); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

func TestReferenceUploadFromURL(t *testing.T) {
	img := pngBytes(t)
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photos/me.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(img)
	}))
	defer remote.Close()

	s := newTestServer(t, &fakeGenerator{}, true, "")
	view := s.createSession(t, nil)
	path := "/api/sessions/" + view.ID + "/references"

	rr := s.doJSON(t, "POST", path, map[string]string{"image_url": remote.URL + "/photos/me.png"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "me.png") {
		t.Errorf("Expected reference name in response: %s", rr.Body.String())
	}

	if rr := s.doJSON(t, "POST", path, map[string]string{"image_url": remote.URL + "/missing"}); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for failed download, got %d", rr.Code)
	}
}

func TestStatic(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>stamps</h1>"), 0644); err != nil {
		t.Fatal(err)
	}
	s := newTestServer(t, &fakeGenerator{}, true, dir)

	rr := s.do(t, "GET", "/", nil, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "stamps") {
		t.Errorf("Expected index, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := s.do(t, "GET", "/healthcheck", nil, ""); rr.Body.String() != "OK" {
		t.Errorf("Unexpected healthcheck body %q", rr.Body.String())
	}
}
