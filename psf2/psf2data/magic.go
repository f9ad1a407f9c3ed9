// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package psf2data

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"go.chromium.org/luci/common/errors"
)

// Magic is the magic bytes which appear at the beginning of a PSF2 container.
const Magic = "PSF\x02"

// HeaderSize is the size of the fixed container header. The serialized region
// starts right after it.
const HeaderSize = 0x10

// Header is the fixed prefix of a container.
type Header struct {
	// RegionSize is the length in bytes of the serialized region.
	RegionSize uint32
}

// Write writes the magic, the region size and the 8 reserved zero bytes.
func (h Header) Write(w io.Writer) error {
	buf := make([]byte, HeaderSize)
	copy(buf, Magic)
	binary.LittleEndian.PutUint32(buf[4:], h.RegionSize)
	_, err := w.Write(buf)
	return err
}

// HeaderFor returns the Header describing a region of the given length.
func HeaderFor(region []byte) (Header, error) {
	if uint64(len(region)) > math.MaxUint32 {
		return Header{}, errors.Reason("region of %d bytes exceeds the 32-bit offset range", len(region)).
			Tag(FormatError).Err()
	}
	return Header{RegionSize: uint32(len(region))}, nil
}

// HasMagic reports whether buf starts with Magic.
func HasMagic(buf []byte) bool {
	return bytes.HasPrefix(buf, []byte(Magic))
}

// ReadMagic reads 4 bytes from r and checks that they are Magic.
func ReadMagic(r io.Reader) error {
	buf := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, buf); err != nil {
		return errors.Annotate(err, "reading magic").Tag(FormatError).Err()
	}
	if !HasMagic(buf) {
		return errors.Reason("bad magic: %q", buf).Tag(FormatError).Err()
	}
	return nil
}

// SplitContainer validates the header of a whole container held in memory and
// returns its serialized region and whatever follows it (the trailer, possibly
// empty). Both results alias data.
func SplitContainer(data []byte) (region, trailer []byte, err error) {
	if len(data) < HeaderSize {
		return nil, nil, errors.Reason("container is %d bytes, shorter than its header", len(data)).
			Tag(FormatError).Err()
	}
	if !HasMagic(data) {
		return nil, nil, errors.Reason("bad magic: %q", data[:len(Magic)]).Tag(FormatError).Err()
	}
	size := uint64(binary.LittleEndian.Uint32(data[4:]))
	if size > uint64(len(data)-HeaderSize) {
		return nil, nil, errors.Reason("region size %d overruns container of %d bytes", size, len(data)).
			Tag(FormatError).Err()
	}
	end := HeaderSize + int(size)
	return data[HeaderSize:end], data[end:], nil
}
