package server

import "errors"

var (
	ErrDocumentStoreRequired = errors.New("document store is required")
	ErrPipelineRequired      = errors.New("ingestion pipeline is required")
	ErrOrchestratorRequired  = errors.New("chat orchestrator is required")
)
