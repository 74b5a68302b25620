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


// Package recommend derives follow-up question suggestions from a
// conversation and its retrieved sources.
//
// Topics come from a keyword table, intent from lexical markers, and
// questions from four concurrent generators: one re-queries the vector
// index per message keyword, the others are templates driven by topics,
// intent and cited sources. Scores combine each candidate's grounding
// signal with keyword overlap and a per-category weight table, and the
// final pick keeps the categories diverse. Generation never fails; when
// nothing clears the relevance bar, generic fallback questions are
// returned.
package recommend
