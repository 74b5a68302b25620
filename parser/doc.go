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


// Package parser turns raw document bytes into chunked, page-annotated text.
//
// Extraction keeps whatever page structure the source has: form-feed
// separated pages for pdf and pptx, synthetic pages for long plain and rich
// text, nothing for short documents. The chunker then cuts each page into
// sentence-aligned chunks with a fixed overlap window, producing the spans
// the embedding and retrieval stages work with.
package parser
