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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/storage"
)

type documentResponse struct {
	Id          string     `json:"id"`
	Filename    string     `json:"filename"`
	MediaKind   string     `json:"mediaKind"`
	Status      string     `json:"status"`
	PageCount   int        `json:"pageCount"`
	ChunkCount  int        `json:"chunkCount"`
	VectorCount int        `json:"vectorCount"`
	Error       string     `json:"error,omitempty"`
	UploadedAt  time.Time  `json:"uploadedAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

type chatRequest struct {
	Message string      `json:"message"`
	History []core.Turn `json:"history"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toDocumentResponse(doc *core.Document) documentResponse {
	resp := documentResponse{
		Id:          strconv.FormatUint(uint64(doc.Id), 10),
		Filename:    doc.Filename,
		MediaKind:   string(doc.MediaKind),
		Status:      string(doc.Status),
		PageCount:   doc.PageCount,
		ChunkCount:  doc.ChunkCount,
		VectorCount: doc.VectorCount,
		Error:       doc.Error,
		UploadedAt:  doc.UploadedAt,
	}
	if !doc.ProcessedAt.IsZero() {
		t := doc.ProcessedAt
		resp.ProcessedAt = &t
	}
	return resp
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	kind, err := core.MediaKindForFilename(header.Filename)
	if err != nil {
		s.writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	doc, err := s.pipeline.SubmitDocument(r.Context(), header.Filename, kind, data)
	if err != nil {
		if errors.Is(err, core.ErrInvalidDocument) || errors.Is(err, core.ErrInvalidMediaKind) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("document submission failed", "filename", header.Filename, "error", err)
		s.writeError(w, http.StatusInternalServerError, "document submission failed")
		return
	}

	s.logger.Info("document accepted", "id", doc.Id, "filename", doc.Filename)
	s.writeJSON(w, http.StatusAccepted, toDocumentResponse(doc))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.docs.ListDocuments(r.Context())
	if err != nil {
		s.logger.Error("document listing failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "document listing failed")
		return
	}

	resp := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toDocumentResponse(doc))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := s.docs.GetDocument(r.Context(), core.ID(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("document lookup failed", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "document lookup failed")
		return
	}
	s.writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	convo := core.ConversationContext{Message: req.Message, History: req.History}
	err := s.chat.RespondSSE(r.Context(), convo, w, func() {
		// Flushing is best-effort; buffered test writers don't support it.
		_ = rc.Flush()
	})
	if err != nil {
		// Headers are already out; all we can do is drop the connection.
		s.logger.Warn("chat stream aborted", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
