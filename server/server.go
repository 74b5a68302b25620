// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/totodo/allpassagent/chat"
	"github.com/totodo/allpassagent/ingestion"
	"github.com/totodo/allpassagent/storage"
)

const defaultMaxUploadSize = 32 << 20 // 32 MiB

// Server is the HTTP boundary: document upload and status on one side,
// the streamed chat conversation on the other. Handlers are thin; all
// domain behavior lives in the packages they call.
type Server struct {
	docs      storage.DocumentRepository
	pipeline  *ingestion.Pipeline
	chat      *chat.Orchestrator
	logger    *slog.Logger
	addr      string
	maxUpload int64

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithAddr sets the listen address.
// Default is ":8080".
func WithAddr(addr string) Option {
	return func(s *Server) error {
		if addr == "" {
			return errors.New("addr must not be empty")
		}
		s.addr = addr
		return nil
	}
}

// WithMaxUploadSize bounds the accepted upload body in bytes.
// Default is 32 MiB.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) error {
		if n <= 0 {
			return errors.New("max upload size must be positive")
		}
		s.maxUpload = n
		return nil
	}
}

// NewServer creates the HTTP server over the given document repository,
// ingestion pipeline and chat orchestrator.
func NewServer(docs storage.DocumentRepository, pipeline *ingestion.Pipeline, orchestrator *chat.Orchestrator, opts ...Option) (*Server, error) {
	if docs == nil {
		return nil, ErrDocumentStoreRequired
	}
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	if orchestrator == nil {
		return nil, ErrOrchestratorRequired
	}

	s := &Server{
		docs:      docs,
		pipeline:  pipeline,
		chat:      orchestrator,
		logger:    slog.Default(),
		addr:      ":8080",
		maxUpload: defaultMaxUploadSize,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "server")
	return s, nil
}

// Handler returns the route table as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/documents", s.handleUpload)
	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// ListenAndServe starts serving and blocks until the listener fails or
// Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http server listening", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, letting in-flight requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
