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


package storage

import (
	"time"

	mus "github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/totodo/allpassagent/core"
)

// Persisted values use the MUS binary format. Timestamps are stored as Unix
// micro, with 0 reserved for the zero time.

var (
	vectorSer  = ord.NewSliceSer[float32](varint.Float32)
	vectorsSer = ord.NewSliceSer[[]float32](vectorSer)
	chunksSer  = ord.NewSliceSer[core.Chunk](chunkSer{})
)

func marshalTime(t time.Time, bs []byte) int {
	if t.IsZero() {
		return varint.Int64.Marshal(0, bs)
	}
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micro, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || micro == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micro).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	if t.IsZero() {
		return varint.Int64.Size(0)
	}
	return varint.Int64.Size(t.UnixMicro())
}

// chunkSer serializes core.Chunk values.
type chunkSer struct{}

var _ mus.Serializer[core.Chunk] = chunkSer{}

func (chunkSer) Marshal(c core.Chunk, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(c.DocumentID), bs)
	n += varint.Int.Marshal(c.Index, bs[n:])
	n += ord.String.Marshal(c.Content, bs[n:])
	n += varint.Int.Marshal(c.PageNumber, bs[n:])
	n += ord.String.Marshal(string(c.PageType), bs[n:])
	n += varint.Int.Marshal(c.StartChar, bs[n:])
	n += varint.Int.Marshal(c.EndChar, bs[n:])
	return
}

func (chunkSer) Unmarshal(bs []byte) (c core.Chunk, n int, err error) {
	var (
		docID    uint64
		pageType string
		n1       int
	)
	docID, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	c.DocumentID = core.ID(docID)
	c.Index, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.PageNumber, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	pageType, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.PageType = core.PageType(pageType)
	c.StartChar, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.EndChar, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (chunkSer) Size(c core.Chunk) (size int) {
	size = varint.Uint64.Size(uint64(c.DocumentID))
	size += varint.Int.Size(c.Index)
	size += ord.String.Size(c.Content)
	size += varint.Int.Size(c.PageNumber)
	size += ord.String.Size(string(c.PageType))
	size += varint.Int.Size(c.StartChar)
	size += varint.Int.Size(c.EndChar)
	return
}

func (s chunkSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// documentSer serializes core.Document values.
type documentSer struct{}

var _ mus.Serializer[core.Document] = documentSer{}

func (documentSer) Marshal(d core.Document, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(d.Id), bs)
	n += ord.String.Marshal(d.Filename, bs[n:])
	n += ord.String.Marshal(d.SourceLocation, bs[n:])
	n += ord.String.Marshal(string(d.MediaKind), bs[n:])
	n += ord.String.Marshal(string(d.Status), bs[n:])
	n += varint.Int.Marshal(d.PageCount, bs[n:])
	n += varint.Int.Marshal(d.ChunkCount, bs[n:])
	n += varint.Int.Marshal(d.VectorCount, bs[n:])
	n += ord.String.Marshal(d.Error, bs[n:])
	n += marshalTime(d.UploadedAt, bs[n:])
	n += marshalTime(d.ProcessedAt, bs[n:])
	return
}

func (documentSer) Unmarshal(bs []byte) (d core.Document, n int, err error) {
	var (
		id                 uint64
		kind, status       string
		n1                 int
	)
	id, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	d.Id = core.ID(id)
	d.Filename, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.SourceLocation, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	kind, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.MediaKind = core.MediaKind(kind)
	status, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Status = core.DocumentStatus(status)
	d.PageCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.ChunkCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.VectorCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Error, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.UploadedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.ProcessedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (documentSer) Size(d core.Document) (size int) {
	size = varint.Uint64.Size(uint64(d.Id))
	size += ord.String.Size(d.Filename)
	size += ord.String.Size(d.SourceLocation)
	size += ord.String.Size(string(d.MediaKind))
	size += ord.String.Size(string(d.Status))
	size += varint.Int.Size(d.PageCount)
	size += varint.Int.Size(d.ChunkCount)
	size += varint.Int.Size(d.VectorCount)
	size += ord.String.Size(d.Error)
	size += sizeTime(d.UploadedAt)
	size += sizeTime(d.ProcessedAt)
	return
}

func (s documentSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// taskSer serializes core.Task values, including stage payloads.
type taskSer struct{}

var _ mus.Serializer[core.Task] = taskSer{}

func (taskSer) Marshal(t core.Task, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(t.Id), bs)
	n += varint.Uint64.Marshal(uint64(t.DocumentID), bs[n:])
	n += ord.String.Marshal(string(t.Kind), bs[n:])
	n += ord.String.Marshal(t.SourceLocation, bs[n:])
	n += ord.String.Marshal(string(t.MediaKind), bs[n:])
	n += chunksSer.Marshal(t.Chunks, bs[n:])
	n += vectorsSer.Marshal(t.Vectors, bs[n:])
	n += marshalTime(t.CreatedAt, bs[n:])
	n += varint.Int.Marshal(t.RetryCount, bs[n:])
	n += varint.Int.Marshal(t.MaxRetries, bs[n:])
	return
}

func (taskSer) Unmarshal(bs []byte) (t core.Task, n int, err error) {
	var (
		id, docID  uint64
		kind, mk   string
		n1         int
	)
	id, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	t.Id = core.ID(id)
	docID, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	t.DocumentID = core.ID(docID)
	kind, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	t.Kind = core.TaskKind(kind)
	t.SourceLocation, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	mk, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	t.MediaKind = core.MediaKind(mk)
	t.Chunks, n1, err = chunksSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	t.Vectors, n1, err = vectorsSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	t.CreatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	if err != nil {
		return
	}
	t.RetryCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	t.MaxRetries, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (taskSer) Size(t core.Task) (size int) {
	size = varint.Uint64.Size(uint64(t.Id))
	size += varint.Uint64.Size(uint64(t.DocumentID))
	size += ord.String.Size(string(t.Kind))
	size += ord.String.Size(t.SourceLocation)
	size += ord.String.Size(string(t.MediaKind))
	size += chunksSer.Size(t.Chunks)
	size += vectorsSer.Size(t.Vectors)
	size += sizeTime(t.CreatedAt)
	size += varint.Int.Size(t.RetryCount)
	size += varint.Int.Size(t.MaxRetries)
	return
}

func (s taskSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, documentSer{}.Size(*doc))
	documentSer{}.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, _, err := documentSer{}.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, chunkSer{}.Size(*chunk))
	chunkSer{}.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := chunkSer{}.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalTask serializes a Task to bytes.
func MarshalTask(task *core.Task) []byte {
	buf := make([]byte, taskSer{}.Size(*task))
	taskSer{}.Marshal(*task, buf)
	return buf
}

// UnmarshalTask deserializes a Task from bytes.
func UnmarshalTask(data []byte) (*core.Task, error) {
	task, _, err := taskSer{}.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &task, nil
}
