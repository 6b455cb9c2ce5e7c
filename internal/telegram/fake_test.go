package telegram

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeAPI is a scripted Bot API server.
type fakeAPI struct {
	t     *testing.T
	mu    sync.Mutex
	calls []fakeCall
	files map[string][]byte

	// failures maps a method to the number of 502s it returns first.
	failures map[string]int
}

type fakeCall struct {
	Method      string
	ContentType string
	Body        []byte
	Form        map[string]string
	Upload      []byte
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	f := &fakeAPI{t: t, files: map[string][]byte{}, failures: map[string]int{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c := NewClient("TOKEN", WithBaseURL(srv.URL), WithRetries(3, time.Millisecond))
	return f, c
}

func (f *fakeAPI) failFirst(method string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = n
}

func (f *fakeAPI) addFile(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = data
}

func (f *fakeAPI) recorded() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/file/botTOKEN/") {
		f.mu.Lock()
		data, ok := f.files[strings.TrimPrefix(r.URL.Path, "/file/botTOKEN/")]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
		return
	}

	method := strings.TrimPrefix(r.URL.Path, "/botTOKEN/")
	call := fakeCall{Method: method, ContentType: r.Header.Get("Content-Type")}
	if strings.HasPrefix(call.ContentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			call.Form = map[string]string{}
			for k, v := range r.MultipartForm.Value {
				call.Form[k] = v[0]
			}
			if fh := r.MultipartForm.File["photo"]; len(fh) > 0 {
				file, _ := fh[0].Open()
				call.Upload, _ = io.ReadAll(file)
				file.Close()
			}
		}
	} else {
		call.Body, _ = io.ReadAll(r.Body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	fail := f.failures[method]
	if fail > 0 {
		f.failures[method] = fail - 1
	}
	f.mu.Unlock()

	if fail > 0 {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
		return
	}

	switch method {
	case "getMe":
		writeOK(w, User{ID: 42, IsBot: true, Username: "polybot"})
	case "getFile":
		id := r.URL.Query().Get("file_id")
		if id == "missing" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(apiResponse{OK: false, ErrorCode: 400, Description: "Bad Request: invalid file_id"})
			return
		}
		writeOK(w, File{FileID: id, FilePath: "photos/" + id + ".png"})
	case "sendMessage", "sendPhoto", "setWebhook", "deleteWebhook":
		writeOK(w, true)
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(apiResponse{OK: false, ErrorCode: 404, Description: "Not Found"})
	}
}

func writeOK(w http.ResponseWriter, result any) {
	raw, _ := json.Marshal(result)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(apiResponse{OK: true, Result: raw})
}
