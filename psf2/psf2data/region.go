// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package psf2data

import (
	"encoding/binary"
	"math"

	"go.chromium.org/luci/common/errors"
)

// Region is the growable buffer a serialized region is built in.
//
// Bytes are only ever appended at the end, except for slots handed out by
// Reserve, which are filled later with Patch. Offsets are plain indexes so
// they stay valid while the buffer grows.
type Region struct {
	buf []byte
}

// Len returns the current length, i.e. the offset the next appended byte gets.
func (r *Region) Len() int { return len(r.buf) }

// Bytes returns the built region. The Region must not be used afterwards.
func (r *Region) Bytes() []byte { return r.buf }

// Append appends raw bytes.
func (r *Region) Append(b []byte) { r.buf = append(r.buf, b...) }

// AppendUint32 appends v in little endian.
func (r *Region) AppendUint32(v uint32) {
	r.buf = binary.LittleEndian.AppendUint32(r.buf, v)
}

// Reserve appends n zero bytes and returns the offset of the first one.
func (r *Region) Reserve(n int) int {
	base := len(r.buf)
	r.buf = append(r.buf, make([]byte, n)...)
	return base
}

// Patch overwrites previously reserved bytes at off with b.
func (r *Region) Patch(off int, b []byte) {
	if off < 0 || off+len(b) > len(r.buf) {
		panic(errors.Reason("patch [%d, %d) outside of region of %d bytes", off, off+len(b), len(r.buf)).Err())
	}
	copy(r.buf[off:], b)
}

// Offset returns the current length as a 32-bit region offset, or an error
// once the region has grown past what an entry can address.
func (r *Region) Offset() (uint32, error) {
	if uint64(len(r.buf)) > math.MaxUint32 {
		return 0, errors.Reason("region grew to %d bytes, past the 32-bit offset range", len(r.buf)).
			Tag(FormatError).Err()
	}
	return uint32(len(r.buf)), nil
}
