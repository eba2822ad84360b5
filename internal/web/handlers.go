package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aristay/bookingimport/internal/core"
	"github.com/aristay/bookingimport/internal/logging"
	"github.com/aristay/bookingimport/internal/web/middleware"
	"github.com/aristay/bookingimport/internal/web/views"
)

// defaultActor is recorded when the caller does not name an acting user.
const defaultActor = "spreadsheet-import"

// multipartOverhead is allowed on top of the file size for form fields.
const multipartOverhead = 1 << 20

// resolveBody is the JSON form of a resolve request.
type resolveBody struct {
	Sheet       string                  `json:"sheet" validate:"max=100"`
	Property    string                  `json:"property" validate:"max=200"`
	Pending     []core.PendingCandidate `json:"pending" validate:"omitempty,dive"`
	Resolutions core.Resolutions        `json:"resolutions" validate:"omitempty,dive,keys,required,max=64,endkeys,required"`
	Actor       string                  `json:"actor" validate:"max=200"`
}

// reportResponse adds the elapsed time to a report.
type reportResponse struct {
	*core.ImportReport
	DurationMS int64 `json:"duration_ms"`
}

type healthResponse struct {
	Status  string             `json:"status"`
	Imports core.LimiterStatus `json:"imports"`
}

// handleImport runs detect-and-import on an uploaded spreadsheet.
//
// Form fields: file (required), sheet, property, acting_user. property
// applies to rows whose property column is empty or missing.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readUpload(w, r, true)
	if !ok {
		return
	}

	property := strings.TrimSpace(r.FormValue("property"))
	if err := s.validate.Var(property, "max=200"); err != nil {
		writeError(w, r, http.StatusBadRequest, "property: must be at most 200 characters")
		return
	}

	report, err := s.service.Import(r.Context(), core.ImportRequest{
		Data:     data,
		Sheet:    strings.TrimSpace(r.FormValue("sheet")),
		Property: property,
		Actor:    actorFor(r, r.FormValue("acting_user")),
	})
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	respondReport(w, r, report)
}

// handleResolve applies conflict decisions.
//
// A JSON body carries the pending candidates of an earlier report. A
// multipart body re-uploads the file instead; its decisions come either as
// a "resolutions" JSON field or as resolution[KEY] fields from the report
// fragment.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var (
		req core.ResolveRequest
		ok  bool
	)
	if isJSONBody(r) {
		req, ok = s.decodeResolveJSON(w, r)
	} else {
		req, ok = s.decodeResolveForm(w, r)
	}
	if !ok {
		return
	}

	report, err := s.service.Resolve(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	respondReport(w, r, report)
}

func (s *Server) decodeResolveJSON(w http.ResponseWriter, r *http.Request) (core.ResolveRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	var body resolveBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		}
		return core.ResolveRequest{}, false
	}
	if err := s.validate.Struct(body); err != nil {
		writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return core.ResolveRequest{}, false
	}
	if len(body.Pending) == 0 {
		writeError(w, r, http.StatusBadRequest, "pending candidates are required when no file is uploaded")
		return core.ResolveRequest{}, false
	}

	return core.ResolveRequest{
		Sheet:       strings.TrimSpace(body.Sheet),
		Property:    strings.TrimSpace(body.Property),
		Pending:     body.Pending,
		Resolutions: body.Resolutions,
		Actor:       actorFor(r, body.Actor),
	}, true
}

func (s *Server) decodeResolveForm(w http.ResponseWriter, r *http.Request) (core.ResolveRequest, bool) {
	data, ok := s.readUpload(w, r, false)
	if !ok {
		return core.ResolveRequest{}, false
	}

	body := resolveBody{
		Sheet:    r.FormValue("sheet"),
		Property: r.FormValue("property"),
		Actor:    r.FormValue("acting_user"),
	}
	if raw := r.FormValue("pending"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &body.Pending); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid pending format")
			return core.ResolveRequest{}, false
		}
	}
	if raw := r.FormValue("resolutions"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &body.Resolutions); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid resolutions format")
			return core.ResolveRequest{}, false
		}
	}
	for name, values := range r.MultipartForm.Value {
		key, ok := strings.CutPrefix(name, "resolution[")
		if !ok || !strings.HasSuffix(key, "]") || len(values) == 0 {
			continue
		}
		action := strings.TrimSpace(values[0])
		if action == "" {
			continue
		}
		if body.Resolutions == nil {
			body.Resolutions = make(core.Resolutions)
		}
		body.Resolutions[strings.TrimSuffix(key, "]")] = core.Action(action)
	}

	if err := s.validate.Struct(body); err != nil {
		writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return core.ResolveRequest{}, false
	}
	if data == nil && len(body.Pending) == 0 {
		writeError(w, r, http.StatusBadRequest, "upload the file again or send the pending candidates")
		return core.ResolveRequest{}, false
	}

	return core.ResolveRequest{
		Data:        data,
		Sheet:       strings.TrimSpace(body.Sheet),
		Property:    strings.TrimSpace(body.Property),
		Pending:     body.Pending,
		Resolutions: body.Resolutions,
		Actor:       actorFor(r, body.Actor),
	}, true
}

// readUpload parses a multipart form and reads its "file" part. A missing
// file is an error only when required; otherwise it yields nil data.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, required bool) ([]byte, bool) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, &core.SourceFormatError{
				Reason: fmt.Sprintf("file too large: exceeds %d bytes", maxSize),
			}, http.StatusRequestEntityTooLarge)
			return nil, false
		}
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}

	file, _, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) && !required {
		return nil, true
	}
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "no file provided")
		return nil, false
	}
	defer file.Close()

	data, err := core.ReadSource(file, maxSize)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return nil, false
	}
	return data, true
}

// handleColumns lists the accepted columns and header synonyms.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"columns":     s.service.Columns(),
		"date_format": core.DateLayout,
		"statuses":    core.Statuses,
	})
}

// handleTemplate downloads an XLSX workbook with the expected header row.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.Template()
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings-template.xlsx"`)
	w.Write(data)
}

// handleHealth reports liveness and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{Status: "ok", Imports: s.service.Limiter().Status()})
}

// respondReport writes a report as an HTMX fragment or as JSON.
func respondReport(w http.ResponseWriter, r *http.Request, report *core.ImportReport) {
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := views.Report(report).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render report", "error", err)
		}
		return
	}
	writeJSON(w, reportResponse{ImportReport: report, DurationMS: report.Duration.Milliseconds()})
}

// actorFor picks the acting user: an explicit value first, then the
// X-Acting-User header, then defaultActor.
func actorFor(r *http.Request, explicit string) string {
	if actor := middleware.CleanActor(explicit); actor != "" {
		return actor
	}
	if actor := logging.Actor(r.Context()); actor != "" {
		return actor
	}
	return defaultActor
}

func isJSONBody(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// validationMessage flattens validator errors into one line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
	}
	return "invalid request: " + strings.Join(parts, "; ")
}
