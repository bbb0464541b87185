// Package blocklist reads and writes the intrusive next-pointer that
// idle free blocks store in their first machine word. It is the one
// place in the allocator that reaches into raw block memory with
// unsafe.
package blocklist

import "unsafe"

// Next returns the next-block link stored at the head of the block at
// addr. addr must point to live, currently-idle block memory.
func Next(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

// SetNext writes the next-block link at the head of the block at addr.
func SetNext(addr uintptr, next uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = next
}

// Len walks the chain starting at head until a nil link, returning the
// number of blocks visited.
func Len(head uintptr) int {
	n := 0
	for cur := head; cur != 0; cur = Next(cur) {
		n++
	}
	return n
}

// Tail walks up to max blocks starting at head (or until a nil link,
// whichever comes first) and returns the last block visited and how
// many blocks were walked.
func Tail(head uintptr, max int) (tail uintptr, count int) {
	cur := head
	count = 0
	for cur != 0 && count < max {
		tail = cur
		next := Next(cur)
		count++
		if next == 0 {
			break
		}
		cur = next
	}
	return tail, count
}
