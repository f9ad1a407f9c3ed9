// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package psf2isolate works with PSF2 containers, the format used to rip
// PlayStation 2 music: a directory tree packed into one file, each file
// compressed in independent zlib blocks, plus optional "key=value" metadata.
//
// It has a fairly basic format:
//   - magic "PSF\x02", then the little endian length of the serialized region,
//     then 8 reserved zero bytes.
//   - the serialized region.
//   - optionally "[TAG]" followed by newline separated key=value lines.
//
// The serialized region is a directory: a u32 entry count followed by that
// many 48 byte entries (36 byte zero padded name, then offset, uncompressed
// size and block size as u32). Offsets are relative to the start of the
// region. An entry with size, block size and offset all zero is an empty
// file; size and block size zero with a non-zero offset is a subdirectory
// whose own entry count lives at the offset; anything else is a file whose
// payload is a table of ceil(size/blocksize) compressed block lengths
// followed by the blocks.
//
// The tags _lib, _lib2, _lib3, ... name other containers ("libraries")
// relative to the one carrying the tag. Loading a container first loads its
// libraries, recursively, and then overlays its own files and tags on top.
//
// Package psf2 reads and writes containers, package isolate builds per-sample
// minipsf2 sets from a sound bank, and cmd/psf2isolate is the command line.
package psf2isolate
