package web

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/billing/internal/core"
	"github.com/JonMunkholm/billing/internal/web/middleware"
	"github.com/JonMunkholm/billing/internal/web/templates"
)

// handleImport streams the multipart "file" part into the service. The
// size limit is enforced by the service on the file bytes, so the form
// is read part by part instead of through ParseMultipartForm.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if d := s.importDeadline(); d > 0 {
		// Recorders in tests do not support deadlines.
		rc := http.NewResponseController(w)
		deadline := time.Now().Add(d)
		_ = rc.SetReadDeadline(deadline)
		_ = rc.SetWriteDeadline(deadline)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		s.respondError(w, r, badRequest("no file provided"))
		return
	}

	for {
		part, err := mr.NextPart()
		if err != nil {
			s.respondError(w, r, badRequest("no file provided"))
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		ctx := core.ContextWithClientIP(r.Context(), middleware.ClientIP(r))
		report, err := s.service.Import(ctx, part.FileName(), part)
		part.Close()
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		if isHTMX(r) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_ = templates.ImportReport(part.FileName(), report.Successes, report.Errors).Render(r.Context(), w)
			return
		}
		writeJSON(w, report)
		return
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if _, err := s.service.Export(r.Context(), opts, &buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeAttachment(w, s.service.ExportFileName(), buf.Bytes())
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := core.WriteTemplate(&buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeAttachment(w, core.TemplateFileName, buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	_, _ = w.Write(data)
}
