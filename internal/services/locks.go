package services

import (
	"hash/fnv"
	"sort"
	"sync"
)

const defaultLockStripes = 256

// KeyedLocker serializes work per key over a fixed table of mutexes. Distinct
// keys may share a stripe, which only costs some parallelism.
type KeyedLocker struct {
	stripes []sync.Mutex
}

func NewKeyedLocker(stripes int) *KeyedLocker {
	if stripes <= 0 {
		stripes = defaultLockStripes
	}
	return &KeyedLocker{stripes: make([]sync.Mutex, stripes)}
}

func (l *KeyedLocker) stripe(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(l.stripes)))
}

// Lock acquires the stripes for all keys and returns the matching unlock func.
// Stripes are taken in ascending order and each at most once, so two callers
// locking overlapping key sets cannot deadlock.
func (l *KeyedLocker) Lock(keys ...string) func() {
	idx := make([]int, 0, len(keys))
	seen := make(map[int]bool, len(keys))
	for _, k := range keys {
		s := l.stripe(k)
		if !seen[s] {
			seen[s] = true
			idx = append(idx, s)
		}
	}
	sort.Ints(idx)

	for _, i := range idx {
		l.stripes[i].Lock()
	}
	return func() {
		for j := len(idx) - 1; j >= 0; j-- {
			l.stripes[idx[j]].Unlock()
		}
	}
}
