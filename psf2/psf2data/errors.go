// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package psf2data

import (
	"go.chromium.org/luci/common/errors"
)

// These tags classify every error produced while building or loading a PSF2
// container. Use e.g. FormatError.In(err) to test for them; the tags survive
// errors.Annotate.
var (
	// FormatError marks malformed input: bad magic, counts or offsets out of
	// range, corrupt entries or tags.
	FormatError = errors.BoolTag{Key: errors.NewTagKey("psf2: malformed data")}

	// ConflictError marks a refusal to overwrite a file which is not a PSF2.
	ConflictError = errors.BoolTag{Key: errors.NewTagKey("psf2: destination conflict")}

	// NameError marks a filename which can't be stored in an entry.
	NameError = errors.BoolTag{Key: errors.NewTagKey("psf2: bad entry name")}

	// CompressionError marks a zlib failure in either direction.
	CompressionError = errors.BoolTag{Key: errors.NewTagKey("psf2: compression failure")}

	// IOError marks a failure of the underlying filesystem.
	IOError = errors.BoolTag{Key: errors.NewTagKey("psf2: io failure")}

	// CycleError marks a library chain which refers back to itself.
	CycleError = errors.BoolTag{Key: errors.NewTagKey("psf2: library cycle")}
)
