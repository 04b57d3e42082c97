// Package mmap provides read-only memory-mapped file access.
//
// Archive resources are immutable once written, which makes them ideal
// mmap candidates: the directory-backed storage maps each resource file
// and hands out views directly into the mapping, so reading a
// multi-gigabyte vector costs no copies.
//
// The package presents a unified API across platforms:
//
//   - Unix (Linux, macOS, BSD): mmap(2) via golang.org/x/sys/unix
//   - Windows: CreateFileMapping/MapViewOfFile
//
// A Mapping is safe for concurrent reads. Close is idempotent; callers
// must ensure no views into Bytes() are used after Close returns.
package mmap
