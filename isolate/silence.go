// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package isolate

import (
	"go.chromium.org/luci/common/errors"

	"github.com/Nisto/psf2isolate/psf2/psf2data"
)

// ADPCMBlockSize is the size of one PS2 ADPCM block.
const ADPCMBlockSize = 16

var (
	silentMidBlock = []byte{0x0C, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	silentEndBlock = []byte{0x00, 0x07, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
)

// Silence overwrites the sample s in bd with silence.
//
// The first block is left alone (it is all zero in well formed banks), every
// whole block in between becomes a silent block, and the last block becomes a
// silent end block.
func Silence(bd []byte, s Sample) error {
	if s.Size < ADPCMBlockSize || s.Offset < 0 || s.Offset+s.Size > len(bd) {
		return errors.Reason("sample [0x%x, 0x%x) is not a valid span of the %d byte BD",
			s.Offset, s.Offset+s.Size, len(bd)).Tag(psf2data.FormatError).Err()
	}
	start := s.Offset + ADPCMBlockSize
	end := s.Offset + s.Size - ADPCMBlockSize
	for off := start; off+ADPCMBlockSize <= end; off += ADPCMBlockSize {
		copy(bd[off:], silentMidBlock)
	}
	copy(bd[end:], silentEndBlock)
	return nil
}
