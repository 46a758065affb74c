// Copyright (c) 2025 namachan10777
// SPDX-License-Identifier: MIT

package namaco

// candidate is one DP cell's entry: a total cost and the word sequence
// that achieves it, ending at some byte position. cost includes entry
// into path's last word (BOS if path has one element) but not the exit
// transition to whatever follows.
type candidate[T any] struct {
	cost int64
	path []*Word[T]
}

// viterbiDecode computes the minimum-cost segmentation of input, using
// trie to enumerate candidate words by prefix and matrix for transition
// costs. ok is false if no segmentation reaches the end of input.
func viterbiDecode[T any](trie *Trie[T], matrix *Matrix, input []byte) (out []T, ok bool) {
	n := len(input)
	if n == 0 {
		return nil, false
	}

	// dp[p] holds every surviving candidate ending at byte position p+1.
	dp := make([][]candidate[T], n)

	for end := 1; end <= n; end++ {
		words, err := trie.Find(input[:end])
		if err != nil {
			continue
		}
		for i := range words {
			w := &words[i]
			dp[end-1] = append(dp[end-1], candidate[T]{
				cost: int64(matrix.At(0, w.RID)) + w.Cost,
				path: []*Word[T]{w},
			})
		}
	}

	for end := 2; end <= n; end++ {
		for begin := 1; begin < end; begin++ {
			words, err := trie.Find(input[begin:end])
			if err != nil {
				continue
			}
			for i := range words {
				w := &words[i]
				best := bestExtension(dp[begin-1], w, matrix)
				if best != nil {
					dp[end-1] = append(dp[end-1], *best)
				}
			}
		}
	}

	best := bestTermination(dp[n-1], matrix)
	if best == nil {
		return nil, false
	}

	out = make([]T, len(best.path))
	for i, w := range best.path {
		out[i] = w.Info
	}
	return out, true
}

// bestExtension scans prior's candidates for the single cheapest one that
// extends to word, per the "only the best predecessor can matter" argument
// for a first-order Markov cost model. Strict < ties first wins.
func bestExtension[T any](prior []candidate[T], word *Word[T], matrix *Matrix) *candidate[T] {
	var best *candidate[T]
	for i := range prior {
		prev := &prior[i]
		last := prev.path[len(prev.path)-1]
		joinCost := int64(matrix.At(last.LID, word.RID))
		total := prev.cost + word.Cost + joinCost
		if best != nil && total >= best.cost {
			continue
		}
		path := make([]*Word[T], len(prev.path)+1)
		copy(path, prev.path)
		path[len(path)-1] = word
		best = &candidate[T]{cost: total, path: path}
	}
	return best
}

// bestTermination picks the candidate minimizing cost + EOS transition
// cost, strict < so the first-seen candidate wins ties.
func bestTermination[T any](finalists []candidate[T], matrix *Matrix) *candidate[T] {
	var best *candidate[T]
	for i := range finalists {
		c := &finalists[i]
		last := c.path[len(c.path)-1]
		total := c.cost + int64(matrix.At(last.LID, 0))
		if best == nil || total < best.cost {
			best = &candidate[T]{cost: total, path: c.path}
		}
	}
	return best
}
