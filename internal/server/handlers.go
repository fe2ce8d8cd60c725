package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/climatewash/internal/pipeline"
)

const multipartMemory = 32 << 20

var validate = validator.New()

// DiagnosisOptions are the per-request diagnosis choices shared by every content type
type DiagnosisOptions struct {
	Version         string `json:"version,omitempty"`
	EmpowermentOnly bool   `json:"empowerment_only,omitempty"`
	Export          bool   `json:"export,omitempty"`
}

func (o DiagnosisOptions) options() pipeline.Options {
	return pipeline.Options{Version: o.Version, EmpowermentOnly: o.EmpowermentOnly, Export: o.Export}
}

// TextRequest represents the request body for /v1/diagnoses/text
type TextRequest struct {
	Text string `json:"text" validate:"required"`
	DiagnosisOptions
}

// URLRequest represents a request naming a web page or video
type URLRequest struct {
	URL string `json:"url" validate:"required,url"`
	DiagnosisOptions
}

// VideoRequest diagnoses a YouTube video by URL, or an already acquired and possibly edited transcript
type VideoRequest struct {
	URL    string `json:"url" validate:"required_without=Text"`
	Text   string `json:"text" validate:"required_without=URL"`
	Source string `json:"source"`
	DiagnosisOptions
}

type diagnoseFunc func(ctx context.Context, opts pipeline.Options) (*pipeline.Diagnosis, error)

func (s *Server) handleDiagnoseText(w http.ResponseWriter, r *http.Request) error {
	var req TextRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	return s.respondDiagnosis(w, r, req.options(), func(ctx context.Context, opts pipeline.Options) (*pipeline.Diagnosis, error) {
		return s.diagnoser.DiagnoseText(ctx, req.Text, opts)
	})
}

func (s *Server) handleDiagnoseWeb(w http.ResponseWriter, r *http.Request) error {
	var req URLRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	return s.respondDiagnosis(w, r, req.options(), func(ctx context.Context, opts pipeline.Options) (*pipeline.Diagnosis, error) {
		return s.diagnoser.DiagnoseWebPage(ctx, req.URL, opts)
	})
}

func (s *Server) handleDiagnoseImage(w http.ResponseWriter, r *http.Request) error {
	filename, data, opts, err := s.readUpload(w, r)
	if err != nil {
		return err
	}
	return s.respondDiagnosis(w, r, opts, func(ctx context.Context, opts pipeline.Options) (*pipeline.Diagnosis, error) {
		return s.diagnoser.DiagnoseImage(ctx, filename, data, opts)
	})
}

func (s *Server) handleDiagnoseDocument(w http.ResponseWriter, r *http.Request) error {
	filename, data, opts, err := s.readUpload(w, r)
	if err != nil {
		return err
	}
	return s.respondDiagnosis(w, r, opts, func(ctx context.Context, opts pipeline.Options) (*pipeline.Diagnosis, error) {
		return s.diagnoser.DiagnoseDocument(ctx, filename, data, opts)
	})
}

// handleDiagnoseVideo accepts a JSON body (url, or text with source) or a multipart media upload
func (s *Server) handleDiagnoseVideo(w http.ResponseWriter, r *http.Request) error {
	if isMultipart(r) {
		filename, data, opts, err := s.readUpload(w, r)
		if err != nil {
			return err
		}
		return s.respondDiagnosis(w, r, opts, func(ctx context.Context, opts pipeline.Options) (*pipeline.Diagnosis, error) {
			return s.diagnoser.DiagnoseMedia(ctx, filename, data, opts)
		})
	}

	var req VideoRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	return s.respondDiagnosis(w, r, req.options(), func(ctx context.Context, opts pipeline.Options) (*pipeline.Diagnosis, error) {
		if strings.TrimSpace(req.Text) != "" {
			return s.diagnoser.DiagnoseTranscript(ctx, req.Text, req.Source, opts)
		}
		return s.diagnoser.DiagnoseVideo(ctx, req.URL, opts)
	})
}

// respondDiagnosis runs a diagnosis and writes it as JSON, or as a progress event stream when requested
func (s *Server) respondDiagnosis(w http.ResponseWriter, r *http.Request, opts pipeline.Options, run diagnoseFunc) error {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if !wantsStream(r) {
		diag, err := run(ctx, opts)
		if err != nil {
			return err
		}
		s.jsonResponse(w, http.StatusOK, diag)
		return nil
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		return err
	}
	opts.OnProgress = func(event pipeline.ProgressEvent) {
		sse.WriteEvent(eventProgress, event) //nolint:errcheck
	}
	diag, err := run(ctx, opts)
	if err != nil {
		sse.WriteError(HTTPStatus(err), validationMessage(err))
		return nil
	}
	sse.WriteEvent(eventResult, diag) //nolint:errcheck
	sse.WriteComplete(diag.ID.String(), diag.Result.OverallRisk)
	return nil
}

// decodeJSON decodes and validates a JSON request body
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return validate.Struct(v)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readUpload reads the "file" part of a multipart request along with the diagnosis options form fields
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, pipeline.Options, error) {
	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, pipeline.Options{}, tooLarge
		}
		return "", nil, pipeline.Options{}, &ErrValidation{Field: "file", Message: "invalid multipart upload"}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, pipeline.Options{}, &ErrValidation{Field: "file", Message: "missing upload"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, pipeline.Options{}, err
	}

	opts := pipeline.Options{Version: r.FormValue("version")}
	if opts.EmpowermentOnly, err = formBool(r, "empowerment_only"); err != nil {
		return "", nil, pipeline.Options{}, err
	}
	if opts.Export, err = formBool(r, "export"); err != nil {
		return "", nil, pipeline.Options{}, err
	}
	return header.Filename, data, opts, nil
}

func formBool(r *http.Request, field string) (bool, error) {
	raw := r.FormValue(field)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ErrValidation{Field: field, Message: "must be true or false"}
	}
	return v, nil
}
