package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	pptxhtml "github.com/VantageDataChat/GoPPTHTML"
)

const pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// uploadResponse is the body of a successful upload.
type uploadResponse struct {
	Slides      []string              `json:"slides"`
	Diagnostics []pptxhtml.Diagnostic `json:"diagnostics"`
}

// exportRequest is the JSON form of an export request.
type exportRequest struct {
	HTML     string `json:"html"`
	Filename string `json:"filename,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// statusFor maps conversion errors onto HTTP statuses.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, pptxhtml.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, pptxhtml.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pptxhtml.ErrCollaboratorFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusFor(err)
	event := log.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = log.Ctx(r.Context()).Error()
	}
	event.Err(err).Int("status", status).Msg(msg)
	_ = writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			err = fmt.Errorf("multipart field %q is required: %w", "file", pptxhtml.ErrMalformedInput)
		}
		s.fail(w, r, err, "Failed to read upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, err, "Failed to read upload")
		return
	}
	pkg, err := pptxhtml.ReadPackage(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		s.fail(w, r, err, "Failed to open package")
		return
	}

	res, err := s.assembler.Convert(r.Context(), pkg)
	if err != nil {
		s.fail(w, r, err, "Conversion failed")
		return
	}

	resp := uploadResponse{
		Slides:      make([]string, len(res.Slides)),
		Diagnostics: res.Diagnostics,
	}
	for i, rs := range res.Slides {
		resp.Slides[i] = rs.Markup
	}
	if resp.Diagnostics == nil {
		resp.Diagnostics = []pptxhtml.Diagnostic{}
	}
	log.Ctx(r.Context()).Info().
		Str("filename", header.Filename).
		Int("slides", len(resp.Slides)).
		Int("diagnostics", len(resp.Diagnostics)).
		Msg("Package converted")
	_ = writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	data, mimeType, err := s.images.Fetch(r.Context(), r.PathValue("handle"))
	if err != nil {
		if errors.Is(err, pptxhtml.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.fail(w, r, err, "Failed to fetch image")
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if mimeType == "image/svg+xml" {
		// Stored SVG may carry script; opened directly it must not run.
		w.Header().Set("Content-Security-Policy", "sandbox; default-src 'none'; style-src 'unsafe-inline'")
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(data)
}

// readMarkup accepts either {"html": "..."} JSON or a raw HTML body.
func readMarkup(r *http.Request) (string, string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", "", err
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return string(body), "", nil
	}
	var req exportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", "", fmt.Errorf("invalid JSON body: %w", pptxhtml.ErrMalformedInput)
	}
	return req.HTML, req.Filename, nil
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	markup, filename, err := readMarkup(r)
	if err != nil {
		s.fail(w, r, err, "Failed to read markup")
		return
	}

	res, err := s.decomposer.Decompose(r.Context(), markup)
	if err != nil {
		s.fail(w, r, err, "Decomposition failed")
		return
	}
	written, err := s.writer.Write(r.Context(), res.Document)
	if err != nil {
		s.fail(w, r, err, "Failed to write package")
		return
	}
	diagnostics := len(res.Diagnostics) + len(written.Diagnostics)

	if filename == "" {
		filename = "presentation.pptx"
	}
	w.Header().Set("Content-Type", pptxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("X-Slidekit-Diagnostics", strconv.Itoa(diagnostics))
	for _, d := range written.Diagnostics {
		log.Ctx(r.Context()).Warn().Str("diagnostic", d.String()).Msg("Export degraded")
	}
	log.Ctx(r.Context()).Info().
		Int("slides", len(res.Document.Slides)).
		Int("diagnostics", diagnostics).
		Int("bytes", len(written.Data)).
		Msg("Package exported")
	w.Write(written.Data)
}
