// Copyright (c) 2025 namachan10777
// SPDX-License-Identifier: MIT

// Package namaco implements the core of a morphological analyzer: a
// XOR-indexed double-array trie mapping byte-string surface forms to word
// entries, and a Viterbi lattice decoder that segments an input byte string
// into the minimum-cost sequence of dictionary entries using a left×right
// connection-cost matrix.
//
// Building a Morph is a one-shot operation driven by a dictionary reader and
// a matrix reader; once built, a Morph is safe for concurrent read-only use
// by any number of goroutines calling Parse.
package namaco
