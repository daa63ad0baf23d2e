package frame

// lruList is a doubly-linked list over the frame indices [0, n), kept
// as an intrusive node array rather than a pointer-chased list: next
// and prev are frame-indexed integer slices, with sentinel -1 marking
// "no node" at either end. This gives the move-to-back operation
// (touch) O(1) cost without allocator pressure or pointer aliasing,
// per the linked-list redesign note for the LRU manager: "an idiomatic re-implementation prefers an intrusive node
// array indexed by frame number, with next/prev as integer indices and
// sentinel values for head/tail."
//
// Back of the list is most-recently-used; front is the next eviction
// victim.
type lruList struct {
	next, prev []int
	head, tail int
}

const sentinel = -1

func newLRUList(n int) *lruList {
	l := &lruList{
		next: make([]int, n),
		prev: make([]int, n),
	}
	for i := 0; i < n; i++ {
		l.next[i] = i + 1
		l.prev[i] = i - 1
	}
	l.next[n-1] = sentinel
	l.prev[0] = sentinel
	l.head = 0
	l.tail = n - 1
	return l
}

// front returns the current front-of-list (eviction candidate) frame
// index.
func (l *lruList) front() int {
	return l.head
}

// touch moves idx to the back of the list (most recently used).
func (l *lruList) touch(idx int) {
	if l.tail == idx {
		return // already at back
	}
	if l.head == idx {
		l.head = l.next[idx]
	} else {
		l.next[l.prev[idx]] = l.next[idx]
	}
	l.prev[l.next[idx]] = l.prev[idx]

	l.next[idx] = sentinel
	l.prev[idx] = l.tail
	l.next[l.tail] = idx
	l.tail = idx
}

// wellFormed walks the list forward and backward and confirms every
// index in [0, n) appears exactly once in both directions. Exposed for
// property tests (spec §8 property 2).
func (l *lruList) wellFormed() bool {
	n := len(l.next)
	seen := make([]bool, n)
	count := 0
	for i := l.head; i != sentinel; i = l.next[i] {
		if seen[i] {
			return false
		}
		seen[i] = true
		count++
		if count > n {
			return false
		}
	}
	if count != n {
		return false
	}
	// backward traversal must retrace the same path in reverse
	back := make([]int, 0, n)
	for i := l.tail; i != sentinel; i = l.prev[i] {
		back = append(back, i)
	}
	if len(back) != n {
		return false
	}
	fwd := make([]int, 0, n)
	for i := l.head; i != sentinel; i = l.next[i] {
		fwd = append(fwd, i)
	}
	for i, v := range fwd {
		if back[len(back)-1-i] != v {
			return false
		}
	}
	return true
}
