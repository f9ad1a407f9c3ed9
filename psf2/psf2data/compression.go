// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package psf2data

import (
	"bytes"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
	"go.chromium.org/luci/common/errors"
)

// DefaultCompressionLevel is the zlib level used when none is given.
const DefaultCompressionLevel = zlib.BestCompression

// ValidLevel returns a nil err iff level is accepted by the zlib encoder.
func ValidLevel(level int) error {
	if level < zlib.DefaultCompression || level > zlib.BestCompression {
		return errors.Reason("invalid compression level %d", level).Tag(CompressionError).Err()
	}
	return nil
}

// compress deflates chunk as one complete zlib stream and appends it to dst.
func compress(dst *bytes.Buffer, chunk []byte, level int) error {
	zw, err := zlib.NewWriterLevel(dst, level)
	if err != nil {
		return errors.Annotate(err, "creating zlib writer").Tag(CompressionError).Err()
	}
	if _, err := zw.Write(chunk); err != nil {
		return errors.Annotate(err, "deflating").Tag(CompressionError).Err()
	}
	if err := zw.Close(); err != nil {
		return errors.Annotate(err, "flushing zlib stream").Tag(CompressionError).Err()
	}
	return nil
}

// decompress inflates a single zlib stream, which must not produce more than
// limit bytes.
func decompress(span []byte, limit uint64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(span))
	if err != nil {
		return nil, errors.Annotate(err, "opening zlib stream").Tag(CompressionError).Err()
	}
	defer zr.Close()

	n := int64(math.MaxInt64)
	if limit < math.MaxInt64 {
		n = int64(limit) + 1
	}
	out, err := io.ReadAll(io.LimitReader(zr, n))
	if err != nil {
		return nil, errors.Annotate(err, "inflating").Tag(CompressionError).Err()
	}
	if uint64(len(out)) > limit {
		return nil, errors.Reason("inflates past the limit of %d bytes", limit).Tag(FormatError).Err()
	}
	return out, nil
}
