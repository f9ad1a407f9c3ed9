// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package isolate

import (
	"bytes"
	"encoding/binary"
	"sort"

	"go.chromium.org/luci/common/errors"

	"github.com/Nisto/psf2isolate/psf2/psf2data"
)

// HDMagic starts every ".HD" sound bank header.
const HDMagic = "IECSsreV"

// IsHD reports whether data looks like a ".HD" header.
func IsHD(data []byte) bool {
	return bytes.HasPrefix(data, []byte(HDMagic))
}

func u32(buf []byte, off uint64) (uint32, error) {
	if off+4 > uint64(len(buf)) {
		return 0, errors.Reason("read at 0x%x past end of %d byte header", off, len(buf)).
			Tag(psf2data.FormatError).Err()
	}
	return binary.LittleEndian.Uint32(buf[off:]), nil
}

// SampleOffsets returns the ".BD" offset of every sample listed in the Vagi
// chunk of the ".HD" header hd, sorted and without duplicates.
func SampleOffsets(hd []byte) ([]uint32, error) {
	if !IsHD(hd) {
		return nil, errors.Reason("not an HD header").Tag(psf2data.FormatError).Err()
	}
	head, err := u32(hd, 0x08)
	if err != nil {
		return nil, errors.Annotate(err, "Head chunk offset").Err()
	}
	vagi, err := u32(hd, uint64(head)+0x20)
	if err != nil {
		return nil, errors.Annotate(err, "Vagi chunk offset").Err()
	}
	maxIndex, err := u32(hd, uint64(vagi)+0x0C)
	if err != nil {
		return nil, errors.Annotate(err, "Vagi max index").Err()
	}

	seen := map[uint32]bool{}
	var offsets []uint32
	for n := uint64(0); n <= uint64(maxIndex); n++ {
		param, err := u32(hd, uint64(vagi)+0x10+n*4)
		if err != nil {
			return nil, errors.Annotate(err, "Vagi entry %d", n).Err()
		}
		off, err := u32(hd, uint64(vagi)+uint64(param))
		if err != nil {
			return nil, errors.Annotate(err, "Vagi param %d", n).Err()
		}
		if !seen[off] {
			seen[off] = true
			offsets = append(offsets, off)
		}
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets, nil
}

// Sample is one span of ".BD" data.
type Sample struct {
	Offset int
	Size   int
}

// Samples turns sorted sample offsets into spans. Each sample runs up to the
// next one; the last runs to the end of a ".BD" of bdSize bytes.
func Samples(offsets []uint32, bdSize int) ([]Sample, error) {
	ret := make([]Sample, len(offsets))
	for i, off := range offsets {
		end := uint64(bdSize)
		if i+1 < len(offsets) {
			end = uint64(offsets[i+1])
		}
		if uint64(off) >= end {
			return nil, errors.Reason("sample %d at 0x%x is past the end of the %d byte BD", i, off, bdSize).
				Tag(psf2data.FormatError).Err()
		}
		ret[i] = Sample{Offset: int(off), Size: int(end - uint64(off))}
	}
	return ret, nil
}
