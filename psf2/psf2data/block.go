// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package psf2data

import (
	"bytes"
	"encoding/binary"
	"math"

	"go.chromium.org/luci/common/errors"
)

// BlockSize is the default number of uncompressed bytes per block.
const BlockSize = 32768

// BlockCount returns ceil(size/blockSize), the number of blocks a file of size
// bytes is split into. blockSize must be non-zero.
func BlockCount(size, blockSize uint32) uint32 {
	return uint32((uint64(size) + uint64(blockSize) - 1) / uint64(blockSize))
}

// EncodeBlocks splits data into chunks of at most blockSize bytes and
// compresses each one independently at the given zlib level.
//
// It returns one compressed length per chunk and the concatenation of the
// compressed chunks. Empty data yields no blocks.
func EncodeBlocks(data []byte, blockSize, level int) (sizes []uint32, blocks []byte, err error) {
	if blockSize <= 0 || uint64(blockSize) > math.MaxUint32 {
		return nil, nil, errors.Reason("invalid block size %d", blockSize).Tag(CompressionError).Err()
	}
	if err = ValidLevel(level); err != nil {
		return nil, nil, err
	}

	buf := &bytes.Buffer{}
	sizes = make([]uint32, 0, (len(data)+blockSize-1)/blockSize)
	for off := 0; off < len(data); off += blockSize {
		end := off + blockSize
		if end > len(data) {
			end = len(data)
		}
		before := buf.Len()
		if err = compress(buf, data[off:end], level); err != nil {
			return nil, nil, errors.Annotate(err, "block at offset %d", off).Err()
		}
		sizes = append(sizes, uint32(buf.Len()-before))
	}
	return sizes, buf.Bytes(), nil
}

// DecodeBlocks inflates blockCount consecutive zlib spans from data, whose
// lengths are given by sizes, and returns their concatenation.
//
// Inflating stops with a FormatError as soon as the output would exceed limit
// bytes.
func DecodeBlocks(sizes []uint32, data []byte, blockCount int, limit uint64) ([]byte, error) {
	if blockCount > len(sizes) {
		return nil, errors.Reason("size table has %d entries, need %d", len(sizes), blockCount).
			Tag(FormatError).Err()
	}

	var out []byte
	off := uint64(0)
	for i, size := range sizes[:blockCount] {
		end := off + uint64(size)
		if end > uint64(len(data)) {
			return nil, errors.Reason("block %d (%d bytes at %d) runs past %d available bytes",
				i, size, off, len(data)).Tag(FormatError).Err()
		}
		chunk, err := decompress(data[off:end], limit-uint64(len(out)))
		if err != nil {
			return nil, errors.Annotate(err, "block %d", i).Tag(FormatError).Err()
		}
		out = append(out, chunk...)
		off = end
	}
	return out, nil
}

// AppendPayload appends the payload of a regular file (the size table followed
// by the compressed blocks) to r.
func AppendPayload(r *Region, sizes []uint32, blocks []byte) {
	for _, s := range sizes {
		r.AppendUint32(s)
	}
	r.Append(blocks)
}

// ReadPayload decodes the regular file payload stored at offset in region,
// given the uncompressed size and block size from its entry.
func ReadPayload(region []byte, offset, size, blockSize uint32) ([]byte, error) {
	if blockSize == 0 {
		return nil, errors.Reason("file of %d bytes has zero block size", size).Tag(FormatError).Err()
	}
	count := uint64(BlockCount(size, blockSize))
	tableEnd := uint64(offset) + 4*count
	if tableEnd > uint64(len(region)) {
		return nil, errors.Reason("size table of %d blocks at 0x%x runs past region end 0x%x",
			count, offset, len(region)).Tag(FormatError).Err()
	}

	sizes := make([]uint32, count)
	for i := range sizes {
		sizes[i] = binary.LittleEndian.Uint32(region[uint64(offset)+4*uint64(i):])
	}

	data, err := DecodeBlocks(sizes, region[tableEnd:], int(count), uint64(size))
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) != uint64(size) {
		return nil, errors.Reason("inflated %d bytes, entry declares %d", len(data), size).
			Tag(FormatError).Err()
	}
	return data, nil
}
