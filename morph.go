// Copyright (c) 2025 namachan10777
// SPDX-License-Identifier: MIT

package namaco

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Morph owns a built Trie and Matrix and exposes the package's public
// surface: Build, Encode/Decode, and Parse. Once built it never mutates;
// Parse may be called concurrently from any number of goroutines.
type Morph[T any] struct {
	trie   *Trie[T]
	matrix *Matrix
	logger zerolog.Logger
}

// Build reads a dictionary stream and a matrix stream and constructs a
// Morph via bulk trie construction, using the Config that LoadConfig reads
// from the process environment (or log level "info" if that fails).
func Build[T any](matrixReader, dictReader io.Reader, classify Classifier[T]) (*Morph[T], error) {
	cfg, err := LoadConfig()
	if err != nil {
		cfg = Config{LogLevel: "info"}
	}
	return BuildWithConfig(cfg, matrixReader, dictReader, classify)
}

// BuildWithConfig is Build with an explicit Config, letting a caller pin
// log level or tree capacity without touching the process environment.
func BuildWithConfig[T any](cfg Config, matrixReader, dictReader io.Reader, classify Classifier[T]) (*Morph[T], error) {
	logger := newLogger(cfg)

	entries, err := ReadDictionary(dictReader, classify)
	if err != nil {
		return nil, fmt.Errorf("namaco: build dictionary: %w", err)
	}

	blocks := (cfg.InitialTreeCapacity + rowLen - 1) / rowLen
	trie := BuildTrieWithBlocks(entries, blocks)
	trie.SetLogger(logger)

	matrix, err := ReadMatrix(matrixReader)
	if err != nil {
		return nil, fmt.Errorf("namaco: build matrix: %w", err)
	}

	logger.Info().
		Int("entries", len(entries)).
		Int("tree_len", trie.Len()).
		Int("matrix_rsize", matrix.rsize).
		Msg("morph built")

	return &Morph[T]{trie: trie, matrix: matrix, logger: logger}, nil
}

// Parse segments input into the minimum-cost sequence of dictionary
// payloads, or reports NoSegmentation via ok=false.
func (m *Morph[T]) Parse(input []byte) (out []T, ok bool) {
	return viterbiDecode(m.trie, m.matrix, input)
}

// morphWire is the self-describing blob format for §6.3: gob already
// records type information, so no separate version tag is needed.
type morphWire[T any] struct {
	Trie   *Trie[T]
	Matrix *Matrix
}

// Encode writes a self-describing blob carrying the full trie and matrix.
func (m *Morph[T]) Encode(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(morphWire[T]{Trie: m.trie, Matrix: m.matrix}); err != nil {
		return fmt.Errorf("namaco: encode morph: %w", err)
	}
	return nil
}

// DecodeMorph reads back a blob written by Morph.Encode.
func DecodeMorph[T any](r io.Reader) (*Morph[T], error) {
	var wire morphWire[T]
	if err := gob.NewDecoder(r).Decode(&wire); err != nil {
		return nil, fmt.Errorf("namaco: decode morph: %w", err)
	}
	return &Morph[T]{
		trie:   wire.Trie,
		matrix: wire.Matrix,
		logger: newLogger(Config{LogLevel: "info"}),
	}, nil
}

// wireCell is cell's exported mirror, used only so gob can see its fields.
type wireCell struct {
	Base, Check, Id int
}

// GobEncode implements gob.GobEncoder for Trie, since tree/storage/
// capacities/cache are unexported and gob otherwise can't see them.
func (t *Trie[T]) GobEncode() ([]byte, error) {
	wire := struct {
		Tree       []wireCell
		Storage    [][]Word[T]
		Capacities []uint16
		Cache      []int
	}{
		Tree:       make([]wireCell, len(t.tree)),
		Storage:    t.storage,
		Capacities: t.capIdx.capacities,
		Cache:      t.capIdx.cache,
	}
	for i, c := range t.tree {
		wire.Tree[i] = wireCell{Base: c.base, Check: c.check, Id: c.id}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wire); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder for Trie.
func (t *Trie[T]) GobDecode(data []byte) error {
	var wire struct {
		Tree       []wireCell
		Storage    [][]Word[T]
		Capacities []uint16
		Cache      []int
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wire); err != nil {
		return err
	}
	t.tree = make([]cell, len(wire.Tree))
	for i, c := range wire.Tree {
		t.tree[i] = cell{base: c.Base, check: c.Check, id: c.Id}
	}
	t.storage = wire.Storage
	t.capIdx = capacityIndex{capacities: wire.Capacities, cache: wire.Cache}
	return nil
}

// GobEncode implements gob.GobEncoder for Matrix.
func (m *Matrix) GobEncode() ([]byte, error) {
	wire := struct {
		Data  []int32
		RSize int
	}{Data: m.data, RSize: m.rsize}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wire); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder for Matrix.
func (m *Matrix) GobDecode(data []byte) error {
	var wire struct {
		Data  []int32
		RSize int
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wire); err != nil {
		return err
	}
	m.data = wire.Data
	m.rsize = wire.RSize
	return nil
}
