package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-boarding/internal/storage"
	"github.com/goliatone/go-boarding/pkg/field"
	"github.com/goliatone/go-boarding/pkg/formstate"
	"github.com/goliatone/go-boarding/pkg/upload"
)

const (
	// maxUploadMemory bounds the multipart parts kept in memory; larger parts
	// spill to temporary files.
	maxUploadMemory = 8 << 20
	// maxUploadBody caps bodies of fields without a size limit.
	maxUploadBody = 64 << 20
	// multipartOverhead leaves room for boundaries, headers and the
	// "current" references next to the file part.
	multipartOverhead = 1 << 20
)

// filesField finds the files item called name. An explicit ?entity= narrows
// the lookup; otherwise entities are searched in name order.
func (s *Server) filesField(entity, name string) (field.Files, bool) {
	names := s.Entities.Names()
	if entity != "" {
		names = []string{entity}
	}
	sort.Strings(names)
	for _, e := range names {
		schema, err := s.Entities.Schema(e)
		if err != nil {
			continue
		}
		desc, ok := schema.Field(name)
		if !ok {
			continue
		}
		if files, ok := desc.(field.Files); ok {
			return files, true
		}
	}
	return field.Files{}, false
}

// upload stores the "file" part and answers with its reference. "current"
// parts carry the references already attached so count limits hold.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "field")
	desc, ok := s.filesField(r.URL.Query().Get("entity"), name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown upload field "+name)
		return
	}
	limit := int64(maxUploadBody)
	if desc.MaxBytes > 0 {
		limit = desc.MaxBytes + multipartOverhead
	}
	if r.ContentLength > limit {
		s.uploadTooLarge(w, desc, limit)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.uploadTooLarge(w, desc, limit)
			return
		}
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid multipart body")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "file part is required")
		return
	}
	defer file.Close()

	current, err := field.FileRefs(r.MultipartForm.Value["current"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid current references")
		return
	}
	state := formstate.New(nil, map[string]any{name: current})

	ref, err := s.Uploads.Attach(r.Context(), state, desc, header.Filename, header.Size, file)
	if err != nil {
		var uerr *upload.Error
		if errors.As(err, &uerr) && uerr.Err == nil {
			s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"field": name, "errors": uerr.Messages})
			return
		}
		s.writeJSON(w, http.StatusBadGateway, map[string]any{"field": name, "errors": []string{"Upload failed"}})
		return
	}
	s.writeJSON(w, http.StatusCreated, ref)
}

func (s *Server) uploadTooLarge(w http.ResponseWriter, desc field.Files, limit int64) {
	label := desc.Label()
	if label == "" {
		label = desc.Name()
	}
	maxBytes := desc.MaxBytes
	if maxBytes <= 0 {
		maxBytes = limit
	}
	s.writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
		"field":  desc.Name(),
		"errors": []string{fmt.Sprintf("%s: file exceeds the %d bytes limit", label, maxBytes)},
	})
}

// file streams a stored upload back.
func (s *Server) file(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rc, meta, err := s.Files.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "NOT_FOUND", "file not found")
			return
		}
		s.logger.Error("open file", zap.String("id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "could not open file")
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(meta.Name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": meta.Name}))
	if seeker, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, meta.Name, meta.CreatedAt, seeker)
		return
	}
	w.Header().Set("Content-Length", strconv.FormatInt(meta.SizeInBytes, 10))
	w.Header().Set("Last-Modified", meta.CreatedAt.Format(time.RFC1123))
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("stream file", zap.String("id", id), zap.Error(err))
	}
}
