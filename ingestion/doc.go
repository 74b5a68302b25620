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


// Package ingestion implements the asynchronous document processing
// pipeline: parse into chunks, embed in paced batches, index into the
// vector store. Work is carried by durable per-stage task queues, so
// pending documents survive a restart, and a bounded retry budget keeps a
// poisoned task from blocking the pipeline forever.
package ingestion
