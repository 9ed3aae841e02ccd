package buffer

// Replacer decides which frame to reuse when the pool is full. Only frames that were marked
// evictable may be chosen. Frame ids are indexes into the pool, in [0, capacity).
type Replacer interface {
	// RecordAccess notes that the frame was accessed now. A frame seen for the first time starts
	// out non evictable. Panics if frameId is out of range.
	RecordAccess(frameId int)

	// SetEvictable marks whether the frame may be chosen as a victim. Unknown frames are ignored.
	SetEvictable(frameId int, evictable bool)

	// Remove drops all state kept for the frame. Unknown frames are ignored. Panics if the frame
	// is tracked but not evictable, since that means it is still pinned.
	Remove(frameId int)

	// Evict chooses a victim among evictable frames, forgets it and returns its id. ok is false
	// when there is no evictable frame.
	Evict() (frameId int, ok bool)

	// Size returns the number of evictable frames.
	Size() int
}
