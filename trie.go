// Copyright (c) 2025 namachan10777
// SPDX-License-Identifier: MIT

package namaco

import (
	"bytes"
	"sort"

	"github.com/namachan10777/namaco/internal/bitset"
	"github.com/rs/zerolog"
)

// Word is one dictionary entry: a connection class pair, a generation
// cost, and an opaque caller-supplied payload.
type Word[T any] struct {
	LID  int
	RID  int
	Cost int64
	Info T
}

// Trie is a XOR-indexed double-array trie mapping byte-string keys to
// buckets of Word[T] (homonyms share a bucket). The zero value is not
// usable; construct one with NewTrie or BuildTrie.
type Trie[T any] struct {
	tree    []cell
	storage [][]Word[T]
	capIdx  capacityIndex
	logger  *zerolog.Logger
}

// NewTrie returns an empty trie containing only the Root, sized to one
// 256-cell block.
func NewTrie[T any]() *Trie[T] {
	return NewTrieWithBlocks[T](1)
}

// NewTrieWithBlocks returns an empty trie pre-sized to blocks*rowLen
// cells, letting a caller who knows roughly how large the dictionary is
// skip the first few tree doublings. blocks is clamped to at least 1.
func NewTrieWithBlocks[T any](blocks int) *Trie[T] {
	if blocks < 1 {
		blocks = 1
	}
	tree := make([]cell, blocks*rowLen)
	for i := range tree {
		tree[i] = blankCell()
	}
	// Root starts with no row of its own; one is allocated lazily on the
	// first insertion. Initializing base to noChild (rather than 0, a
	// valid-looking but misleading offset) keeps Add's "does this cell
	// already have a row" test correct for a fresh trie.
	tree[0] = cell{base: noChild, check: noParent, id: 0}
	return &Trie[T]{
		tree:   tree,
		capIdx: newCapacityIndex(blocks),
	}
}

// SetLogger attaches a logger used to report tree growth events. A nil
// logger (the default) disables this logging.
func (t *Trie[T]) SetLogger(l zerolog.Logger) {
	t.logger = &l
}

// Len returns the number of cells currently allocated.
func (t *Trie[T]) Len() int {
	return len(t.tree)
}

// setCell writes c at idx, keeping the capacity index in lockstep.
func (t *Trie[T]) setCell(idx int, c cell) {
	wasBlank := t.tree[idx].isBlank()
	isBlank := c.isBlank()
	t.tree[idx] = c
	switch {
	case wasBlank && !isBlank:
		t.capIdx.markOccupied(idx / rowLen)
	case !wasBlank && isBlank:
		t.capIdx.markFreed(idx / rowLen)
	}
}

// explore walks key from the Root, returning the index reached. ok is
// false if the walk could not consume the whole key; idx is then the last
// matched cell and consumed the number of bytes successfully walked,
// exactly as needed to resume an incremental Add from that point.
func (t *Trie[T]) explore(key []byte) (idx int, consumed int, ok bool) {
	cur := 0
	for i, b := range key {
		if t.tree[cur].base == noChild {
			return cur, i, false
		}
		next := t.tree[cur].base ^ int(b)
		if next >= len(t.tree) || t.tree[next].check != cur {
			return cur, i, false
		}
		cur = next
	}
	return cur, len(key), true
}

// Find returns the bucket of words stored under key, or ErrKeyNotFound.
func (t *Trie[T]) Find(key []byte) ([]Word[T], error) {
	idx, _, ok := t.explore(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	id, has := t.tree[idx].payload()
	if !has {
		return nil, ErrKeyNotFound
	}
	return t.storage[id], nil
}

// reallocateBase finds a base such that, for every offset i with mask set,
// tree[base^i] is either Blank or already owned by ignore (pass noParent
// to disable that exception, as plain bulk/fresh-row placement does).
// popcount is the number of set bits in mask.
func (t *Trie[T]) reallocateBase(mask *bitset.Set256, popcount int, ignore int) int {
	for block := t.capIdx.cache[popcount]; block < t.capIdx.blocks(); block++ {
		if int(t.capIdx.capacities[block]) < popcount {
			continue
		}
		for offset := 0; offset < rowLen; offset++ {
			base := block<<8 | offset
			if t.placementSafe(mask, base, ignore) {
				t.capIdx.recordPlacement(popcount, block)
				return base
			}
		}
	}
	return t.growTree()
}

func (t *Trie[T]) placementSafe(mask *bitset.Set256, base, ignore int) bool {
	for i := 0; i < rowLen; i++ {
		if !mask.Test(uint(i)) {
			continue
		}
		c := t.tree[base^i]
		if !c.isBlank() && (ignore == noParent || c.check != ignore) {
			return false
		}
	}
	return true
}

// growTree doubles the tree, extends the capacity index with fully-free
// blocks, and returns the start of the new half (a block-aligned base
// guaranteed to satisfy any mask once-free blocks are available there).
func (t *Trie[T]) growTree() int {
	oldLen := len(t.tree)
	addedBlocks := t.capIdx.blocks()
	grown := make([]cell, oldLen)
	for i := range grown {
		grown[i] = blankCell()
	}
	t.tree = append(t.tree, grown...)
	t.capIdx.grow(addedBlocks)
	if t.logger != nil {
		t.logger.Debug().Int("old_len", oldLen).Int("new_len", len(t.tree)).Msg("trie tree doubled")
	}
	return oldLen
}

// entry pairs one dictionary key with its word record, for sorting and
// bulk construction.
type entry[T any] struct {
	key  []byte
	word Word[T]
}

// DictEntry is the caller-facing form of entry, produced by a classifier
// (see Build) or assembled directly by a caller driving BuildTrie.
type DictEntry[T any] struct {
	Key  []byte
	Word Word[T]
}

// BuildTrie performs bulk (sorted, static) construction: the fastest and
// most space-efficient way to build a trie from a complete, known-in-
// advance set of entries. Entries sharing a key become one bucket, in the
// order they appear in entries after the stable sort.
func BuildTrie[T any](entries []DictEntry[T]) *Trie[T] {
	return BuildTrieWithBlocks(entries, 1)
}

// BuildTrieWithBlocks is BuildTrie pre-sizing the tree to initialBlocks
// blocks before construction.
func BuildTrieWithBlocks[T any](entries []DictEntry[T], initialBlocks int) *Trie[T] {
	items := make([]entry[T], len(entries))
	for i, e := range entries {
		items[i] = entry[T]{key: e.Key, word: e.Word}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return bytes.Compare(items[i].key, items[j].key) < 0
	})

	t := NewTrieWithBlocks[T](initialBlocks)
	if len(items) == 0 {
		return t
	}
	t.tree[0].base = t.addStatic(items, 0, 0)
	return t
}

// continuingDomain returns the contiguous run of entries (entries is
// assumed sorted by key) whose key byte at depth equals b AND which have
// further bytes past depth. Entries that end exactly at depth+1 are
// excluded: they contribute a payload at this row but never recurse.
func continuingDomain[T any](entries []entry[T], depth int, b byte) []entry[T] {
	begin, end := -1, -1
	for i, e := range entries {
		matches := len(e.key) > depth && e.key[depth] == b
		continues := matches && len(e.key) > depth+1
		if continues && begin == -1 {
			begin = i
		}
		if begin != -1 && end == -1 && !matches {
			end = i
		}
	}
	if begin == -1 {
		return nil
	}
	if end == -1 {
		return entries[begin:]
	}
	return entries[begin:end]
}

// addStatic builds one row (up to 256 children) for parentIdx out of the
// entries sharing a common prefix up to depth, recursing for any child
// that has further bytes. It returns the base the caller must install into
// tree[parentIdx].base.
func (t *Trie[T]) addStatic(entries []entry[T], depth, parentIdx int) int {
	var mask bitset.Set256
	var row [rowLen]cell
	var recurse [rowLen]bool
	var seen [rowLen]bool

	for _, e := range entries {
		b := e.key[depth]
		if !seen[b] {
			seen[b] = true
			mask.MustSet(uint(b))
			row[b] = terminalCell(parentIdx, noItem)
		}
		if len(e.key) == depth+1 {
			if row[b].id != noItem {
				t.storage[row[b].id] = append(t.storage[row[b].id], e.word)
			} else {
				t.storage = append(t.storage, []Word[T]{e.word})
				row[b].id = len(t.storage) - 1
			}
		} else {
			recurse[b] = true
		}
	}

	base := t.reallocateBase(&mask, mask.Size(), noParent)
	for b := 0; b < rowLen; b++ {
		if mask.Test(uint(b)) {
			t.setCell(base^b, row[b])
		}
	}
	for b := 0; b < rowLen; b++ {
		if !recurse[b] {
			continue
		}
		idx := base ^ b
		childBase := t.addStatic(continuingDomain(entries, depth, byte(b)), depth+1, idx)
		c := t.tree[idx]
		c.base = childBase
		t.setCell(idx, c)
	}
	return base
}

// attachPayload appends payload to idx's bucket, creating one if idx has
// none yet.
func (t *Trie[T]) attachPayload(idx int, payload Word[T]) {
	c := t.tree[idx]
	if c.id != noItem {
		t.storage[c.id] = append(t.storage[c.id], payload)
		return
	}
	t.storage = append(t.storage, []Word[T]{payload})
	c.id = len(t.storage) - 1
	t.setCell(idx, c)
}

// extractRow returns the children of the row based at base that are owned
// by parent, keyed by byte label; unowned offsets come back Blank.
func (t *Trie[T]) extractRow(base, parent int) [rowLen]cell {
	var row [rowLen]cell
	for b := 0; b < rowLen; b++ {
		row[b] = blankCell()
	}
	if base == noChild {
		return row
	}
	for b := 0; b < rowLen; b++ {
		idx := base ^ b
		if t.tree[idx].check == parent {
			row[b] = t.tree[idx]
		}
	}
	return row
}

func (t *Trie[T]) countOwnedChildren(base, owner int) int {
	if base == noChild {
		return 0
	}
	n := 0
	for b := 0; b < rowLen; b++ {
		if t.tree[base^b].check == owner {
			n++
		}
	}
	return n
}

// updateChildrenCheck rewrites the check of every child owned by the cell
// at from so it points at to instead, because the cell itself is about to
// move from index from to index to.
func (t *Trie[T]) updateChildrenCheck(from, to int) {
	base := t.tree[from].base
	if base == noChild {
		return
	}
	for b := 0; b < rowLen; b++ {
		idx := base ^ b
		if t.tree[idx].check == from {
			c := t.tree[idx]
			c.check = to
			t.setCell(idx, c)
		}
	}
}

// movRow relocates the entire row owned by owner from its current base to
// newBase, fixing up grandchildren's check pointers along the way. It does
// not write tree[owner].base; the caller does that once the move succeeds.
func (t *Trie[T]) movRow(owner, newBase int) {
	oldBase := t.tree[owner].base
	var buf [rowLen]cell
	for b := 0; b < rowLen; b++ {
		idx := oldBase ^ b
		if t.tree[idx].check == owner {
			// Grandchildren get a negative placeholder check first, so a
			// sibling whose old index is this child's new index cannot
			// mistake them for its own children.
			t.updateChildrenCheck(idx, -1-(newBase^b))
			buf[b] = t.tree[idx]
			t.setCell(idx, blankCell())
		} else {
			buf[b] = blankCell()
		}
	}
	for b := 0; b < rowLen; b++ {
		if !buf[b].isBlank() {
			t.setCell(newBase^b, buf[b])
			for g := 0; buf[b].base != noChild && g < rowLen; g++ {
				if gi := buf[b].base ^ g; t.tree[gi].check == -1-(newBase^b) {
					t.tree[gi].check = newBase ^ b
				}
			}
		}
	}
}

// pushOut relocates the row owned by the parent of occupyIdx to a fresh
// base, leaving occupyIdx Blank. It returns that parent's new base.
func (t *Trie[T]) pushOut(occupyIdx int) (int, error) {
	if occupyIdx == 0 {
		return 0, errIsRoot
	}
	if t.tree[occupyIdx].isBlank() {
		return 0, errNop
	}
	owner := t.tree[occupyIdx].check

	var mask bitset.Set256
	base := t.tree[owner].base
	for b := 0; b < rowLen; b++ {
		if t.tree[base^b].check == owner {
			mask.MustSet(uint(b))
		}
	}

	newBase := t.reallocateBase(&mask, mask.Size(), noParent)
	t.movRow(owner, newBase)
	ownerCell := t.tree[owner]
	ownerCell.base = newBase
	t.setCell(owner, ownerCell)
	return newBase, nil
}

// slideSiblings relocates common's entire children row to a fresh base
// that also has room for byte b, installs a fresh Terminal placeholder at
// the new b slot, and returns that placeholder's index.
func (t *Trie[T]) slideSiblings(common, b int) int {
	oldBase := t.tree[common].base
	row := t.extractRow(oldBase, common)

	var mask bitset.Set256
	for i, c := range row {
		if c.check == common || i == b {
			mask.MustSet(uint(i))
		}
	}

	newBase := t.reallocateBase(&mask, mask.Size(), common)
	if oldBase != noChild {
		t.movRow(common, newBase)
	}
	parentCell := t.tree[common]
	parentCell.base = newBase
	t.setCell(common, parentCell)

	childIdx := newBase ^ b
	t.setCell(childIdx, terminalCell(common, noItem))
	return childIdx
}

// resolveCollision handles the case where the slot for byte b under common
// is already occupied by an unrelated cell, picking whichever of
// Sibling-slide or Push-out moves fewer cells. It returns the index of the
// (now Terminal placeholder) cell for byte b.
func (t *Trie[T]) resolveCollision(common, b int) int {
	current := t.tree[common].base ^ b
	if current == 0 {
		return t.slideSiblings(common, b)
	}
	occupantParent := t.tree[current].check

	pushOutCost := t.countOwnedChildren(t.tree[occupantParent].base, occupantParent)
	slideCost := t.countOwnedChildren(t.tree[common].base, common)

	if slideCost <= pushOutCost {
		return t.slideSiblings(common, b)
	}

	sameRow := t.tree[common].check == occupantParent
	oldBase := t.tree[occupantParent].base
	newBase, err := t.pushOut(current)
	if err != nil {
		// Occupant's row cannot be relocated (Root or already Blank, an
		// impossible combination in practice since current is occupied);
		// Sibling-slide always succeeds.
		return t.slideSiblings(common, b)
	}

	newCommon := common
	if sameRow {
		newCommon = newBase ^ oldBase ^ common
	}
	t.setCell(current, terminalCell(newCommon, noItem))
	return current
}

// Add inserts payload under key incrementally. If key already resolves to
// an existing cell, payload is appended to that cell's bucket; otherwise
// trie structure is created one byte at a time, resolving any collision
// via resolveCollision.
func (t *Trie[T]) Add(key []byte, payload Word[T]) {
	idx, consumed, ok := t.explore(key)
	if ok {
		t.attachPayload(idx, payload)
		return
	}

	common := idx
	pursued := consumed
	parent := common

	if t.tree[common].base != noChild {
		b := int(key[pursued])
		current := t.tree[common].base ^ b
		if t.tree[current].isBlank() {
			t.setCell(current, terminalCell(common, noItem))
			parent = current
		} else {
			parent = t.resolveCollision(common, b)
		}
		pursued++
	}

	for i := pursued; i < len(key); i++ {
		parent = t.slideSiblings(parent, int(key[i]))
	}

	t.attachPayload(parent, payload)
}
