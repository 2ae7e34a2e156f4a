// Package ignore tracks requests whose asynchronous errors are expected.
//
// The compositor issues requests against windows that may disappear before
// the server processes them. Their sequence numbers are recorded here so the
// error handler can drop the matching errors instead of reporting them.
package ignore

import "sort"

// Tracker holds an ascending list of request sequence numbers.
// It is not safe for concurrent use.
type Tracker struct {
	seqs []uint64
}

// Add records seq as a request whose error should be suppressed.
// Sequence numbers normally arrive in increasing order and are appended;
// an out-of-order value is inserted at its sorted position.
func (t *Tracker) Add(seq uint64) {
	n := len(t.seqs)
	if n == 0 || t.seqs[n-1] < seq {
		t.seqs = append(t.seqs, seq)
		return
	}
	i := sort.Search(n, func(i int) bool { return t.seqs[i] >= seq })
	if t.seqs[i] == seq {
		return
	}
	t.seqs = append(t.seqs, 0)
	copy(t.seqs[i+1:], t.seqs[i:])
	t.seqs[i] = seq
}

// Discard drops every entry older than seq. The server reports errors in
// request order, so once anything carrying seq has been seen no error for
// an earlier request can follow.
func (t *Tracker) Discard(seq uint64) {
	i := 0
	for i < len(t.seqs) && t.seqs[i] < seq {
		i++
	}
	if i == 0 {
		return
	}
	t.seqs = append(t.seqs[:0], t.seqs[i:]...)
}

// Match reports whether an error carrying seq was expected. Older entries
// are discarded first and a matching entry is consumed, so a second check of
// the same sequence reports false.
func (t *Tracker) Match(seq uint64) bool {
	t.Discard(seq)
	if len(t.seqs) == 0 || t.seqs[0] != seq {
		return false
	}
	t.seqs = append(t.seqs[:0], t.seqs[1:]...)
	return true
}

// Len returns the number of pending entries.
func (t *Tracker) Len() int {
	return len(t.seqs)
}
