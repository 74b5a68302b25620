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


// Package chat orchestrates a streamed answer to a user message.
//
// The orchestrator retrieves relevant document excerpts, streams the model's
// answer as content events, and closes every stream with exactly one final
// event carrying citations and follow-up question recommendations. Upstream
// failures degrade rather than break the stream: retrieval errors fall back
// to an uncited answer, and a chat model failure streams an apology before
// the final event.
//
// Events use the SSE wire format; WriteEvent and ParseEvents are the two
// sides of it.
package chat
