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


// Package reindex rebuilds the vector index from the document store.
//
// The document store is the source of truth; the vector index is a derived
// projection of it. When the index is lost, corrupted, or the embedding
// model changes, a reindex run re-embeds every stored chunk and upserts it
// under its deterministic vector ID, so rebuilding is idempotent. Documents
// whose chunks are missing go back through the parse stage of the ingestion
// pipeline instead.
package reindex
