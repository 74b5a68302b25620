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

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/storage"
)

// TaskQueue implements storage.TaskQueue for BadgerDB. Every mutation is
// committed before the call returns, so pending work survives a crash.
//
// FIFO order comes from a per-queue Badger sequence: each enqueued task gets
// a monotonically increasing sequence number encoded big-endian in its key,
// and dequeue takes the lexicographically first key. Dequeue reads and
// deletes in one transaction, which is the transactional pop the single
// consumer relies on.
type TaskQueue struct {
	backend *Backend
	idSeq   *badger.Sequence
	seqs    map[core.TaskKind]*badger.Sequence
}

var _ storage.TaskQueue = (*TaskQueue)(nil)

// NewTaskQueue creates a new TaskQueue covering the three pipeline queues.
func NewTaskQueue(backend *Backend) (*TaskQueue, error) {
	idSeq, err := backend.GetSequence(taskIDSeq)
	if err != nil {
		return nil, err
	}

	seqs := make(map[core.TaskKind]*badger.Sequence, 3)
	for _, kind := range []core.TaskKind{core.TaskParse, core.TaskEmbed, core.TaskIndex} {
		seq, err := backend.GetSequence(makeQueueSeqName(kind))
		if err != nil {
			idSeq.Release()
			for _, s := range seqs {
				s.Release()
			}
			return nil, err
		}
		seqs[kind] = seq
	}

	return &TaskQueue{
		backend: backend,
		idSeq:   idSeq,
		seqs:    seqs,
	}, nil
}

// Close releases the queue sequences.
func (q *TaskQueue) Close() error {
	err := q.idSeq.Release()
	for _, seq := range q.seqs {
		if releaseErr := seq.Release(); err == nil {
			err = releaseErr
		}
	}
	return err
}

// Enqueue appends a task to the tail of the named queue.
func (q *TaskQueue) Enqueue(ctx context.Context, queue core.TaskKind, task *core.Task) error {
	seq, ok := q.seqs[queue]
	if !ok {
		return fmt.Errorf("%w: %q", storage.ErrUnknownQueue, queue)
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = core.DefaultMaxRetries
	}
	if task.Id == 0 {
		nextID, err := q.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = q.idSeq.Next()
			if err != nil {
				return err
			}
		}
		task.Id = core.ID(nextID)
	}

	if err := core.ValidateTask(task); err != nil {
		return err
	}

	pos, err := seq.Next()
	if err != nil {
		return err
	}

	return q.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTaskKey(queue, pos)
		if err := tx.Set(key, storage.MarshalTask(task)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Dequeue removes and returns the oldest task in the named queue.
// Returns nil, nil when the queue is empty.
func (q *TaskQueue) Dequeue(ctx context.Context, queue core.TaskKind) (*core.Task, error) {
	if _, ok := q.seqs[queue]; !ok {
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownQueue, queue)
	}

	var task *core.Task
	err := q.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeQueuePrefix(queue)
		iter := tx.NewIterator(opts)

		iter.Rewind()
		if !iter.Valid() {
			iter.Close()
			return nil
		}

		item := iter.Item()
		key := item.KeyCopy(nil)
		err := item.Value(func(val []byte) error {
			var unmarshalErr error
			task, unmarshalErr = storage.UnmarshalTask(val)
			return unmarshalErr
		})
		iter.Close()
		if err != nil {
			return err
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Size returns the number of pending tasks in the named queue.
func (q *TaskQueue) Size(ctx context.Context, queue core.TaskKind) (int, error) {
	if _, ok := q.seqs[queue]; !ok {
		return 0, fmt.Errorf("%w: %q", storage.ErrUnknownQueue, queue)
	}

	count := 0
	err := q.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeQueuePrefix(queue)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Clear removes all pending tasks from the named queue.
func (q *TaskQueue) Clear(ctx context.Context, queue core.TaskKind) error {
	if _, ok := q.seqs[queue]; !ok {
		return fmt.Errorf("%w: %q", storage.ErrUnknownQueue, queue)
	}

	return q.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeQueuePrefix(queue)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}
