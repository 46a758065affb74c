// Copyright (c) 2025 namachan10777
// SPDX-License-Identifier: MIT

package namaco

import (
	"errors"
	"testing"
)

func word(label string) Word[string] {
	return Word[string]{Info: label}
}

func findLabels(t *testing.T, tr *Trie[string], key []byte) []string {
	t.Helper()
	words, err := tr.Find(key)
	if err != nil {
		t.Fatalf("Find(%v) error = %v", key, err)
	}
	labels := make([]string, len(words))
	for i, w := range words {
		labels[i] = w.Info
	}
	return labels
}

func assertLabels(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("labels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("labels = %v, want %v", got, want)
		}
	}
}

// TestTrieMinimal is scenario T1: a handful of short keys sharing
// prefixes, checked both via incremental Add and bulk BuildTrie.
func TestTrieMinimal(t *testing.T) {
	t.Parallel()

	type kv struct {
		key []byte
		w   string
	}
	data := []kv{
		{[]byte{0}, "w1"},
		{[]byte{0, 1}, "w2"},
		{[]byte{0, 0}, "w3"},
		{[]byte{0, 1, 2}, "w4"},
		{[]byte{0, 1, 0}, "w5"},
		{[]byte{2}, "w6"},
	}

	check := func(t *testing.T, tr *Trie[string]) {
		t.Helper()
		assertLabels(t, findLabels(t, tr, []byte{0, 1, 2}), []string{"w4"})
		if _, err := tr.Find([]byte{1}); !errors.Is(err, ErrKeyNotFound) {
			t.Fatalf("Find([1]) error = %v, want ErrKeyNotFound", err)
		}
		assertLabels(t, findLabels(t, tr, []byte{2}), []string{"w6"})
	}

	t.Run("incremental", func(t *testing.T) {
		t.Parallel()
		tr := NewTrie[string]()
		for _, d := range data {
			tr.Add(d.key, word(d.w))
		}
		check(t, tr)
	})

	t.Run("bulk", func(t *testing.T) {
		t.Parallel()
		entries := make([]DictEntry[string], len(data))
		for i, d := range data {
			entries[i] = DictEntry[string]{Key: d.key, Word: word(d.w)}
		}
		tr := BuildTrie(entries)
		check(t, tr)
	})
}

// TestTrieHomonyms is scenario T2: repeated keys accumulate into one
// bucket, in insertion order.
func TestTrieHomonyms(t *testing.T) {
	t.Parallel()

	t.Run("incremental", func(t *testing.T) {
		t.Parallel()
		tr := NewTrie[string]()
		tr.Add([]byte{0}, word("w1"))
		tr.Add([]byte{0}, word("w1-prime"))
		assertLabels(t, findLabels(t, tr, []byte{0}), []string{"w1", "w1-prime"})
	})

	t.Run("bulk", func(t *testing.T) {
		t.Parallel()
		tr := BuildTrie([]DictEntry[string]{
			{Key: []byte{0}, Word: word("w1")},
			{Key: []byte{0}, Word: word("w1-prime")},
		})
		assertLabels(t, findLabels(t, tr, []byte{0}), []string{"w1", "w1-prime"})
	})
}

// TestTrieBulkIncrementalEquivalence is invariant 5: the same multiset of
// (key, payload) produces identical bucket contents whether inserted
// incrementally in any order or sorted-then-bulk. Collisions are forced by
// reusing a handful of bytes across many keys so Add must exercise both
// Sibling-slide and Push-out.
func TestTrieBulkIncrementalEquivalence(t *testing.T) {
	t.Parallel()

	keys := [][]byte{
		{1}, {2}, {3},
		{1, 1}, {1, 2}, {1, 3},
		{2, 1}, {2, 2},
		{1, 1, 1}, {1, 1, 2}, {1, 2, 1},
		{3, 1, 1}, {3, 1, 2}, {3, 2},
		{2, 1, 1}, {2, 1, 2},
	}

	entries := make([]DictEntry[string], len(keys))
	for i, k := range keys {
		entries[i] = DictEntry[string]{Key: k, Word: word(string(rune('a' + i)))}
	}

	bulk := BuildTrie(entries)

	incr := NewTrie[string]()
	// Insert in reverse order to make sure Add doesn't implicitly depend
	// on sorted arrival.
	for i := len(entries) - 1; i >= 0; i-- {
		incr.Add(entries[i].Key, entries[i].Word)
	}

	for _, k := range keys {
		bulkWords, err := bulk.Find(k)
		if err != nil {
			t.Fatalf("bulk.Find(%v) error = %v", k, err)
		}
		incrWords, err := incr.Find(k)
		if err != nil {
			t.Fatalf("incr.Find(%v) error = %v", k, err)
		}
		if len(bulkWords) != len(incrWords) {
			t.Fatalf("key %v: bulk=%v incr=%v", k, bulkWords, incrWords)
		}
		for i := range bulkWords {
			if bulkWords[i] != incrWords[i] {
				t.Fatalf("key %v: bulk=%v incr=%v", k, bulkWords, incrWords)
			}
		}
	}
}

// TestTrieCapacityAccounting is invariant 3: capacities[k] always equals
// the number of Blank cells in block k.
func TestTrieCapacityAccounting(t *testing.T) {
	t.Parallel()

	tr := NewTrie[string]()
	keys := [][]byte{
		{10}, {20}, {30}, {10, 1}, {10, 2}, {10, 3},
		{20, 5}, {20, 5, 9}, {30, 1}, {30, 2}, {1, 2, 3, 4, 5},
	}
	for i, k := range keys {
		tr.Add(k, word(string(rune('a'+i))))
	}

	for block := 0; block < tr.capIdx.blocks(); block++ {
		blanks := 0
		for i := block * rowLen; i < (block+1)*rowLen; i++ {
			if tr.tree[i].isBlank() {
				blanks++
			}
		}
		if got, want := int(tr.capIdx.capacities[block]), blanks; got != want {
			t.Fatalf("block %d: capacities = %d, want %d (actual blank count)", block, got, want)
		}
	}
}

// TestTrieAddressingInvariant is invariant 2: every non-Blank, non-Root
// cell's index is reachable from its parent's base via XOR with some byte
// in [0,256).
func TestTrieAddressingInvariant(t *testing.T) {
	t.Parallel()

	tr := BuildTrie([]DictEntry[string]{
		{Key: []byte("a"), Word: word("a")},
		{Key: []byte("ab"), Word: word("ab")},
		{Key: []byte("abc"), Word: word("abc")},
		{Key: []byte("b"), Word: word("b")},
	})

	for idx, c := range tr.tree {
		if idx == 0 || c.isBlank() {
			continue
		}
		parent := c.check
		b := idx ^ tr.tree[parent].base
		if b < 0 || b >= rowLen {
			t.Fatalf("cell %d: derived byte label %d out of [0,256)", idx, b)
		}
		if tr.tree[parent].base^b != idx {
			t.Fatalf("cell %d: parent base XOR label != idx", idx)
		}
	}
}

// TestTrieBlankCellContent is invariant 4.
func TestTrieBlankCellContent(t *testing.T) {
	t.Parallel()
	tr := NewTrie[string]()
	for i := 1; i < len(tr.tree); i++ {
		c := tr.tree[i]
		if c.check == noParent && c.base == noChild && c.id != noItem {
			t.Fatalf("cell %d: blank cell carries id %d", i, c.id)
		}
	}
}
