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


// Package storage provides the storage abstraction layer for allpassagent.
//
// This package defines the repository and queue interfaces that decouple
// storage implementation from business logic. It allows different backends
// (BadgerDB, in-memory, etc.) to be used interchangeably.
//
// # Architecture
//
// Two interfaces make up the layer:
//
//   - DocumentRepository: documents and their extracted chunks. The document
//     record is the source of truth; the vector index is a derived projection
//     that can be rebuilt from stored chunks.
//   - TaskQueue: durable FIFO queues for the three ingestion stages
//     (parse, embed, index). Queue state survives process restarts so an
//     ingestion chain resumes after a crash.
//
// # Constructor Return Type Pattern
//
// Public constructors in implementation packages return interface types to
// enforce abstraction and keep backends swappable:
//
//	repo, err := badger.NewDocumentRepository(backend)  // storage.DocumentRepository
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	docs, queue, backend, err := badger.NewMemoryStores()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access from
// multiple goroutines. The single-consumer assumption of the ingestion
// pipeline is a property of the pipeline, not of the queue.
package storage
