package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/fabfab/pdfqa/config"
	"github.com/fabfab/pdfqa/ingestion"
	"github.com/fabfab/pdfqa/pipeline"
)

const uploadField = "file"

// Pipeline is the part of the coordinator the HTTP layer drives.
type Pipeline interface {
	Ingest(ctx context.Context, src ingestion.Source) (pipeline.IngestResult, error)
	Answer(ctx context.Context, question string) (pipeline.Answer, error)
	State() pipeline.State
}

// Server exposes the upload and question endpoints plus the chat UI.
type Server struct {
	cfg      config.Config
	pipeline Pipeline
	logger   *log.Logger
	handler  http.Handler
}

type messageResponse struct {
	Message string `json:"message"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// New constructs a Server backed by p.
func New(cfg config.Config, p Pipeline, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{cfg: cfg, pipeline: p, logger: logger}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/openapi.yaml", s.handleOpenAPI)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/ask", s.handleAsk)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	w.Header().Set("Content-Type", "text/yaml; charset=utf-8")
	w.Header().Set("Content-Disposition", "inline; filename=\"openapi.yaml\"")
	_, _ = w.Write(openAPISpecYAML)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	s.writeJSON(w, http.StatusOK, s.pipeline.State())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read upload field %q: %w", uploadField, err))
		return
	}
	defer file.Close()

	if ingestion.DetectFormat(header.Filename) != ingestion.FormatPDF {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %s", pipeline.ErrWrongFileType, header.Filename))
		return
	}

	scratch, err := os.CreateTemp(s.cfg.ScratchDir, "upload-*.pdf")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("create scratch file: %w", err))
		return
	}
	defer func() {
		_ = scratch.Close()
		if err := os.Remove(scratch.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Printf("remove scratch file %s: %v", scratch.Name(), err)
		}
	}()

	size, err := io.Copy(scratch, file)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("store upload: %w", err))
		return
	}

	result, err := s.pipeline.Ingest(r.Context(), ingestion.Source{
		Name:   header.Filename,
		Reader: scratch,
		Size:   size,
	})
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("PDF processed successfully! Created %d chunks from %d pages.", result.ChunkCount, result.PageCount),
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	answer, err := s.pipeline.Answer(r.Context(), req.Question)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, askResponse{Answer: answer.Text})
}

func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if pipeline.IsClientError(err) {
		status = http.StatusBadRequest
	}
	s.writeError(w, status, err)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, messageResponse{Message: pipeline.UserMessage(err)})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}

	return nil
}
