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


package badger

import "github.com/totodo/allpassagent/storage"

// NewMemoryStores creates an in-memory document repository and task queue for testing.
// Returns docs, queue, backend, and error.
// Caller must close the queue and backend when done.
func NewMemoryStores() (storage.DocumentRepository, storage.TaskQueue, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, err
	}

	docs := NewDocumentRepository(backend)

	queue, err := NewTaskQueue(backend)
	if err != nil {
		docs.Close()
		backend.Close()
		return nil, nil, nil, err
	}

	return docs, queue, backend, nil
}
