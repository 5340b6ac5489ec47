// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package uploads

import (
	"encoding/hex"
	"hash"
	"hash/fnv"
	"io"
)

// HashingReader folds every byte read through it into an FNV-64a sum.
// The upload handler wraps request bodies with it, so the content hash
// costs nothing beyond the copy that is happening anyway.
type HashingReader struct {
	r io.Reader
	h hash.Hash64
}

func NewHashingReader(r io.Reader) *HashingReader {
	return &HashingReader{r: r, h: fnv.New64a()}
}

func (hr *HashingReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	if n > 0 {
		// FNV's Write never fails.
		hr.h.Write(p[:n])
	}
	return n, err
}

// Sum returns the hash of everything read so far as 16 hex characters.
func (hr *HashingReader) Sum() string {
	var buf [8]byte
	return hex.EncodeToString(hr.h.Sum(buf[:0]))
}
