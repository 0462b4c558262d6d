package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmorgan81/pawtrait/internal/handler"
	"github.com/gabriel-vasile/mimetype"
)

const formFileField = "file"

// multipartOverhead is allowed on top of MaxUploadBytes for boundaries, part
// headers and the other form fields. The file part itself is held to the limit.
const multipartOverhead = 64 << 10

func (a *API) rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Pet Photo Transformer API!"})
}

func (a *API) readyHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.handler.CheckReady(); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *API) promptsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.handler.Catalog().List())
}

func (a *API) generateImageHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.handler.CheckReady(); err != nil {
		a.writeError(w, r, err)
		return
	}

	raw := r.URL.Query().Get("prompt_id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		a.writeError(w, r, handler.BadRequest(fmt.Sprintf("invalid prompt_id %q", raw), nil))
		return
	}
	if _, err := a.handler.ResolvePrompt(id); err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.parseForm(w, r); err != nil {
		a.writeError(w, r, err)
		return
	}
	data, mimeType, err := readImage(r, a.opts.MaxUploadBytes)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	out, err := a.handler.Handle(r.Context(), handler.Input{PromptID: id, Image: data, MIMEType: mimeType})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type uploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Theme   string `json:"theme,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (a *API) uploadHandler(w http.ResponseWriter, r *http.Request) {
	fail := func(err error) {
		status, detail := translate(err)
		logError(r, status, err)
		writeJSON(w, status, uploadResponse{Error: detail})
	}

	if err := a.handler.CheckReady(); err != nil {
		fail(err)
		return
	}
	if err := a.parseForm(w, r); err != nil {
		fail(err)
		return
	}
	entry, err := a.handler.ResolveTheme(r.FormValue("theme"))
	if err != nil {
		fail(err)
		return
	}
	data, mimeType, err := readImage(r, a.opts.MaxUploadBytes)
	if err != nil {
		fail(err)
		return
	}

	out, err := a.handler.Handle(r.Context(), handler.Input{PromptID: entry.ID, Image: data, MIMEType: mimeType})
	if err != nil {
		fail(err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{Success: true, URL: out.URL, Theme: out.Title})
}

func (a *API) feedHandler(w http.ResponseWriter, r *http.Request) {
	if a.feed == nil {
		a.writeError(w, r, handler.Unavailable("gallery feed", errors.New("no listable storage configured")))
		return
	}
	rss, err := a.feed.Generate(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rss)
}

func (a *API) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, a.opts.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(a.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return handler.BadRequest(fmt.Sprintf("upload exceeds %d bytes", a.opts.MaxUploadBytes), nil)
		}
		return handler.BadRequest("invalid multipart form", err)
	}
	return nil
}

// readImage reads the uploaded file, at most limit bytes, and sniffs its type
// from the content.
func readImage(r *http.Request, limit int64) ([]byte, string, error) {
	file, _, err := r.FormFile(formFileField)
	if err != nil {
		return nil, "", handler.BadRequest("missing file upload", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, "", handler.BadRequest("read file upload", err)
	}
	if int64(len(data)) > limit {
		return nil, "", handler.BadRequest(fmt.Sprintf("upload exceeds %d bytes", limit), nil)
	}
	if len(data) == 0 {
		return nil, "", handler.BadRequest("empty file upload", nil)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, "", handler.BadRequest(fmt.Sprintf("unsupported upload type %s", mt.String()), nil)
	}
	return data, mt.String(), nil
}
