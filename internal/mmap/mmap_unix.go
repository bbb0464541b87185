//go:build unix

// Package mmap wraps the anonymous-mapping calls the page layer needs
// to obtain and release raw spans from the OS.
package mmap

import (
	"golang.org/x/sys/unix"
)

// MapAnon reserves size bytes of anonymous, private, read-write memory
// not backed by any file. This is the page layer's span source.
func MapAnon(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

// Unmap releases a region previously returned by MapAnon.
func Unmap(data []byte) error {
	return unix.Munmap(data)
}
