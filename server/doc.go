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


// Package server exposes the HTTP API.
//
//	POST /api/documents       multipart upload, returns 202 and the document
//	GET  /api/documents       all documents with their processing status
//	GET  /api/documents/{id}  one document
//	POST /api/chat            server-sent event stream of the answer
//	GET  /healthz             liveness probe
//
// Uploads are accepted before processing happens: the response carries
// status "pending" and the ingestion worker picks the document up
// asynchronously. Document IDs are serialized as decimal strings because
// they are 64-bit values and JSON numbers are not.
package server
