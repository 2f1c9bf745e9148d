package model

import (
	"encoding/binary"
	"path/filepath"
	"time"

	farm "github.com/dgryski/go-farm"
)

// Fingerprint is a 64-bit summary of everything that determines whether a
// cached dataset is still valid: the input PBF's canonical path, size and
// modification time, and the ordered filter key lists that shaped the last
// preprocessing run.
type Fingerprint uint64

// ComputeFingerprint folds every input, in order, into one buffer and
// hashes it in a single pass. The path is canonicalized here (made absolute,
// symlinks resolved); if that fails, for example because the file does not
// exist, the raw path is used instead.
func ComputeFingerprint(path string, size int64, modTime time.Time, primaryKeys, attributeKeys []string) Fingerprint {
	abs, err := filepath.Abs(path)
	if err == nil {
		abs, err = filepath.EvalSymlinks(abs)
	}
	if err != nil {
		abs = path
	}

	var buf []byte
	buf = appendString(buf, abs)
	buf = appendUint64(buf, uint64(size))
	buf = appendUint64(buf, uint64(modTime.UnixNano()))
	buf = appendStrings(buf, primaryKeys)
	buf = appendStrings(buf, attributeKeys)

	return Fingerprint(farm.Hash64(buf))
}

func appendString(buf []byte, s string) []byte {
	buf = appendUint64(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendStrings(buf []byte, ss []string) []byte {
	buf = appendUint64(buf, uint64(len(ss)))
	for _, s := range ss {
		buf = appendString(buf, s)
	}
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}
