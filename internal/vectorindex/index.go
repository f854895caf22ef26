// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package vectorindex

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/circutor-labs/protogateway/internal/common"
)

const fileVersion uint32 = 1

// record is one entry owned by the index: a device id, its embedding
// vector, and a digest of the text that produced it (for idempotent
// re-insertion).
type record struct {
	deviceID   string
	vector     []float64
	textDigest [sha256.Size]byte
}

// Index holds (device_id, vector) pairs in memory and persists them as a
// single binary file that reloads bit-identically. It is a constructed
// component; callers own the *Index returned by New or Load.
type Index struct {
	mu        sync.RWMutex
	dimension int
	byID      map[string]int // device_id -> index into records
	records   []record
}

// New returns an empty index fixed at the given dimension for its
// lifetime.
func New(dimension int) *Index {
	return &Index{dimension: dimension, byID: make(map[string]int)}
}

// Dimension reports the fixed vector width this index was created with.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Upsert inserts or replaces the record for deviceID, computed from text.
// Re-inserting the same (deviceID, text) pair is a no-op beyond
// recomputing the identical vector: idempotent by construction since
// Embed is deterministic.
func (idx *Index) Upsert(deviceID, text string) error {
	vec := Embed(text)
	if len(vec) != idx.dimension {
		return common.NewInvariantViolation(fmt.Sprintf("embedding dimension %d does not match index dimension %d", len(vec), idx.dimension))
	}
	digest := sha256.Sum256([]byte(text))

	idx.mu.Lock()
	defer idx.mu.Unlock()
	r := record{deviceID: deviceID, vector: vec, textDigest: digest}
	if i, ok := idx.byID[deviceID]; ok {
		idx.records[i] = r
		return nil
	}
	idx.byID[deviceID] = len(idx.records)
	idx.records = append(idx.records, r)
	return nil
}

// Remove deletes the record for deviceID, if present.
func (idx *Index) Remove(deviceID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	i, ok := idx.byID[deviceID]
	if !ok {
		return
	}
	last := len(idx.records) - 1
	idx.records[i] = idx.records[last]
	idx.byID[idx.records[i].deviceID] = i
	idx.records = idx.records[:last]
	delete(idx.byID, deviceID)
}

// Count returns the number of records currently held.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// Match is one ranked search hit.
type Match struct {
	DeviceID   string
	Similarity float64
}

// SearchText embeds query and returns the top-k matches by cosine
// similarity, highest first.
func (idx *Index) SearchText(query string, k int) []Match {
	return idx.Search(Embed(query), k)
}

// Search returns the top-k matches for an already-embedded query vector.
func (idx *Index) Search(queryVec []float64, k int) []Match {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matches := make([]Match, 0, len(idx.records))
	for _, r := range idx.records {
		matches = append(matches, Match{DeviceID: r.deviceID, Similarity: CosineSimilarity(queryVec, r.vector)})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches
}

// Save writes the index to path using the fixed binary layout: a
// {version, dimension, count} header, then count records of
// {device_id_length, device_id_bytes, vector_bytes}, all little-endian.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return common.NewTransportError("could not create vector index file", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, fileVersion); err != nil {
		return common.NewDecodeError("could not write vector index header", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(idx.dimension)); err != nil {
		return common.NewDecodeError("could not write vector index header", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(idx.records))); err != nil {
		return common.NewDecodeError("could not write vector index header", err)
	}

	for _, r := range idx.records {
		idBytes := []byte(r.deviceID)
		if err := binary.Write(f, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return common.NewDecodeError("could not write vector index record", err)
		}
		if _, err := f.Write(idBytes); err != nil {
			return common.NewDecodeError("could not write vector index record", err)
		}
		for _, v := range r.vector {
			if err := binary.Write(f, binary.LittleEndian, v); err != nil {
				return common.NewDecodeError("could not write vector index record", err)
			}
		}
	}

	if err := f.Close(); err != nil {
		return common.NewTransportError("could not finalize vector index file", err)
	}
	return os.Rename(tmp, path)
}

// Load reads an index file written by Save. A missing file yields an
// empty index at dimension d rather than an error.
func Load(path string, d int) (*Index, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return New(d), nil
	}
	if err != nil {
		return nil, common.NewTransportError("could not open vector index file", err)
	}
	defer f.Close()

	var version, dimension, count uint32
	if err := binary.Read(f, binary.LittleEndian, &version); err != nil {
		return nil, common.NewDecodeError("could not read vector index header", err)
	}
	if version != fileVersion {
		return nil, common.NewDecodeError(fmt.Sprintf("unsupported vector index version %d", version), nil)
	}
	if err := binary.Read(f, binary.LittleEndian, &dimension); err != nil {
		return nil, common.NewDecodeError("could not read vector index header", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return nil, common.NewDecodeError("could not read vector index header", err)
	}

	idx := New(int(dimension))
	for i := uint32(0); i < count; i++ {
		var idLen uint32
		if err := binary.Read(f, binary.LittleEndian, &idLen); err != nil {
			return nil, common.NewDecodeError("could not read vector index record", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(f, idBytes); err != nil {
			return nil, common.NewDecodeError("could not read vector index record", err)
		}
		vec := make([]float64, dimension)
		if err := binary.Read(f, binary.LittleEndian, vec); err != nil {
			return nil, common.NewDecodeError("could not read vector index record", err)
		}
		deviceID := string(idBytes)
		idx.byID[deviceID] = len(idx.records)
		idx.records = append(idx.records, record{deviceID: deviceID, vector: vec})
	}
	return idx, nil
}
