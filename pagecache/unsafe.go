package pagecache

import "unsafe"

// spanAddr returns the address of the first byte of a non-empty slice.
func spanAddr(data []byte) uintptr {
	return uintptr(unsafe.Pointer(&data[0]))
}
