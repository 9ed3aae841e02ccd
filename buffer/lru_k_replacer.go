package buffer

import (
	"fmt"
	"sync"

	"github.com/tidwall/btree"
)

// candidate is an evictable frame in eviction order. ts is the timestamp the ordering of the
// owning tree is keyed on, frameId breaks ties.
type candidate struct {
	ts      uint64
	frameId int
}

func candidateLess(a, b candidate) bool {
	if a.ts != b.ts {
		return a.ts < b.ts
	}
	return a.frameId < b.frameId
}

type lruKNode struct {
	// up to k most recent access timestamps, oldest first
	history   []uint64
	evictable bool
}

func (n *lruKNode) key(frameId int) candidate {
	return candidate{ts: n.history[0], frameId: frameId}
}

var _ Replacer = &LRUKReplacer{}

// LRUKReplacer chooses victims by largest backward k-distance: the gap between now and a frame's
// k-th most recent access. Frames with fewer than k recorded accesses count as infinitely distant
// and among those the one with the earliest recorded access goes first, which degenerates to
// classical LRU when every frame is cold.
type LRUKReplacer struct {
	k        int
	capacity int

	lock     sync.Mutex
	nodes    map[int]*lruKNode
	currTS   uint64
	currSize int

	// Evictable frames indexed in eviction order. cold keeps frames with fewer than k recorded
	// accesses keyed by their earliest access, warm keeps the rest keyed by their k-th most recent
	// access. Both orderings only change when a frame is accessed, so the victim is cold's
	// minimum, or warm's minimum when cold is empty.
	cold *btree.BTreeG[candidate]
	warm *btree.BTreeG[candidate]
}

func NewLRUKReplacer(capacity, k int) *LRUKReplacer {
	if k < 1 {
		panic(fmt.Sprintf("invalid k for lru-k replacer: %v", k))
	}

	return &LRUKReplacer{
		k:        k,
		capacity: capacity,
		nodes:    map[int]*lruKNode{},
		cold:     btree.NewBTreeG(candidateLess),
		warm:     btree.NewBTreeG(candidateLess),
	}
}

func (r *LRUKReplacer) RecordAccess(frameId int) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if frameId < 0 || frameId >= r.capacity {
		panic(fmt.Sprintf("invalid frame id: %v", frameId))
	}

	node, ok := r.nodes[frameId]
	if !ok {
		node = &lruKNode{}
		r.nodes[frameId] = node
	}

	if node.evictable {
		r.tree(node).Delete(node.key(frameId))
	}

	node.history = append(node.history, r.currTS)
	if len(node.history) > r.k {
		node.history = node.history[1:]
	}
	r.currTS++

	if node.evictable {
		r.tree(node).Set(node.key(frameId))
	}
}

func (r *LRUKReplacer) SetEvictable(frameId int, evictable bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	node, ok := r.nodes[frameId]
	if !ok || node.evictable == evictable {
		return
	}

	node.evictable = evictable
	if evictable {
		r.currSize++
		r.tree(node).Set(node.key(frameId))
	} else {
		r.currSize--
		r.tree(node).Delete(node.key(frameId))
	}
}

func (r *LRUKReplacer) Remove(frameId int) {
	r.lock.Lock()
	defer r.lock.Unlock()

	node, ok := r.nodes[frameId]
	if !ok {
		return
	}
	if !node.evictable {
		panic(fmt.Sprintf("removing a frame which is not evictable: %v", frameId))
	}

	r.tree(node).Delete(node.key(frameId))
	delete(r.nodes, frameId)
	r.currSize--
}

func (r *LRUKReplacer) Evict() (frameId int, ok bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.currSize == 0 {
		return 0, false
	}

	victim, found := r.cold.Min()
	if found {
		r.cold.Delete(victim)
	} else {
		victim, found = r.warm.Min()
		if !found {
			panic("replacer size is not zero but there is no candidate")
		}
		r.warm.Delete(victim)
	}

	delete(r.nodes, victim.frameId)
	r.currSize--
	return victim.frameId, true
}

func (r *LRUKReplacer) Size() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.currSize
}

func (r *LRUKReplacer) tree(node *lruKNode) *btree.BTreeG[candidate] {
	if len(node.history) < r.k {
		return r.cold
	}
	return r.warm
}
