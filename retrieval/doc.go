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


// Package retrieval implements query-time search over the vector index.
//
// A query is first enriched with a bounded window of conversation history,
// then run through two searches: a general similarity search with a quality
// floor, and a multimedia-only search whose hits are boosted before fusion.
// Fusion keeps the best hit per source file. The fused set is reranked by a
// second-pass relevance model, with a lexical heuristic standing in when
// that service is unavailable; reranking can degrade but never fail.
package retrieval
