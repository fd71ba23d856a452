// Package api exposes the EDI codec over HTTP. This is a capability module
// that can be enabled via the CLI or used programmatically.
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/libops/acqedi/edifact"
	"github.com/libops/acqedi/ingest/amazon"
	"github.com/libops/acqedi/ingest/workday"
)

// Config holds the API server configuration
type Config struct {
	Port      string
	LogPrefix string
	// Generator carries the interchange identity used for /convert. Its
	// TaxPolicy is overridden per request based on the detected vendor.
	Generator edifact.Config
}

// DefaultConfig returns the default API configuration
func DefaultConfig() Config {
	return Config{
		Port:      ":8080",
		LogPrefix: "API: ",
	}
}

// Server represents the HTTP API server
type Server struct {
	config Config
	mux    *http.ServeMux
}

// New creates a new API server with the given configuration
func New(cfg Config) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// registerRoutes sets up the API endpoints
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/convert", s.handleConvert)
	s.mux.HandleFunc("/parse", s.handleParse)
	s.mux.HandleFunc("/health", s.handleHealth)
}

// Handler returns the http.Handler for the server
// This allows the server to be used with custom http.Server configurations
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server (blocking)
func (s *Server) Start() error {
	log.Printf("%sStarting server on %s", s.config.LogPrefix, s.config.Port)
	return http.ListenAndServe(s.config.Port, s.mux)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleParse parses a raw EDIFACT stream back into invoices. The stream
// arrives either as a multipart "file" field or as the request body.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	log.Printf("%sReceived parse request from %s", s.config.LogPrefix, r.RemoteAddr)

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stream, _, err := s.requestPayload(r)
	if err != nil {
		http.Error(w, "Could not read request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(edifact.Parse(string(stream)))
}

// handleConvert turns an uploaded vendor export into an EDIFACT stream. The
// vendor is taken from the "vendor" form value when present, otherwise from
// the uploaded filename's extension.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	log.Printf("%sReceived convert request from %s", s.config.LogPrefix, r.RemoteAddr)

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form with 32MB max memory
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		log.Printf("%sError parsing multipart form: %v", s.config.LogPrefix, err)
		http.Error(w, "Could not parse multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		log.Printf("%sError getting file from form: %v", s.config.LogPrefix, err)
		http.Error(w, "Could not get uploaded file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		log.Printf("%sError reading file bytes: %v", s.config.LogPrefix, err)
		http.Error(w, "Could not read file: "+err.Error(), http.StatusInternalServerError)
		return
	}

	vendor := coalesce(r.FormValue("vendor"), r.URL.Query().Get("vendor"), vendorForFilename(handler.Filename))

	var (
		invoices []edifact.Invoice
		policy   edifact.TaxPolicy
	)
	switch vendor {
	case "amazon":
		invoices, err = amazon.Read(bytes.NewReader(fileBytes))
		policy = edifact.TaxInNetTotal
	case "workday":
		invoices, err = workday.Read(bytes.NewReader(fileBytes))
		policy = edifact.TaxAsCharge
	default:
		http.Error(w, "Unknown vendor: "+vendor, http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("%sError reading %s export: %v", s.config.LogPrefix, vendor, err)
		http.Error(w, "Could not read export: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg := s.config.Generator
	cfg.TaxPolicy = policy
	gen := edifact.NewGenerator(cfg)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, gen.Generate(invoices))
}

// requestPayload returns the request content, preferring a multipart "file"
// field over the raw body.
func (s *Server) requestPayload(r *http.Request) ([]byte, string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, "", err
		}
		file, handler, err := r.FormFile("file")
		if err != nil {
			return nil, "", err
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		return data, handler.Filename, err
	}
	data, err := io.ReadAll(r.Body)
	return data, "", err
}

// vendorForFilename maps an export's extension to its vendor.
func vendorForFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "amazon"
	case ".xlsx":
		return "workday"
	default:
		return ""
	}
}

// coalesce returns the first non-empty string
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
