// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package vfs describes the directory entries of a PSF2 serialized region and
// walks the tree they form.
package vfs

import (
	"bytes"
	"encoding/binary"
	"regexp"

	"go.chromium.org/luci/common/errors"

	"github.com/Nisto/psf2isolate/psf2/psf2data"
)

// These are the sizes of an entry record and of its name field.
const (
	EntrySize  = 48
	MaxNameLen = 36
)

// Kind is the kind of object an Entry describes.
type Kind int

// These are the three kinds of entries.
const (
	KindEmpty Kind = iota + 1
	KindDir
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindDir:
		return "dir"
	case KindFile:
		return "file"
	}
	return "invalid"
}

// Entry is one decoded directory entry.
type Entry struct {
	Name string

	// Offset is the absolute region offset of the subdirectory table or of the
	// file payload.
	Offset uint32
	// Size is the uncompressed file size.
	Size uint32
	// BlockSize is the number of uncompressed bytes per compressed block.
	BlockSize uint32
}

// Kind classifies e from its (Size, BlockSize, Offset) triple.
func (e Entry) Kind() (Kind, error) {
	switch {
	case e.Size == 0 && e.BlockSize == 0 && e.Offset == 0:
		return KindEmpty, nil
	case e.Size == 0 && e.BlockSize == 0:
		return KindDir, nil
	case e.BlockSize != 0:
		return KindFile, nil
	}
	return 0, errors.Reason("entry %q: %d bytes with zero block size", e.Name, e.Size).
		Tag(psf2data.FormatError).Err()
}

// Marshal encodes e into a 48 byte record. The name must already be valid.
func (e Entry) Marshal() []byte {
	buf := make([]byte, EntrySize)
	copy(buf[:MaxNameLen], e.Name)
	binary.LittleEndian.PutUint32(buf[36:], e.Offset)
	binary.LittleEndian.PutUint32(buf[40:], e.Size)
	binary.LittleEndian.PutUint32(buf[44:], e.BlockSize)
	return buf
}

// ParseEntry decodes a record; buf must hold at least EntrySize bytes.
func ParseEntry(buf []byte) (Entry, error) {
	if len(buf) < EntrySize {
		return Entry{}, errors.Reason("short entry: %d bytes", len(buf)).Tag(psf2data.FormatError).Err()
	}
	name := bytes.TrimRight(buf[:MaxNameLen], "\x00")
	e := Entry{
		Name:      string(name),
		Offset:    binary.LittleEndian.Uint32(buf[36:]),
		Size:      binary.LittleEndian.Uint32(buf[40:]),
		BlockSize: binary.LittleEndian.Uint32(buf[44:]),
	}
	if err := CheckName(e.Name); err != nil {
		return Entry{}, errors.Annotate(err, "entry name %q", e.Name).Tag(psf2data.FormatError).Err()
	}
	return e, nil
}

var badChars = regexp.MustCompile("[/\\\\\x00-\x1f\x7f]")

// CheckName returns a nil err iff name can be stored in an entry and safely
// materialized as a single path component.
func CheckName(name string) error {
	if name == "" {
		return errors.New("empty name", psf2data.NameError)
	}
	if len(name) > MaxNameLen {
		return errors.Reason("name %q is %d bytes, longer than %d", name, len(name), MaxNameLen).
			Tag(psf2data.NameError).Err()
	}
	if name == "." || name == ".." {
		return errors.Reason("%q is not a valid name", name).Tag(psf2data.NameError).Err()
	}
	for i := 0; i < len(name); i++ {
		if name[i] > 0x7f {
			return errors.Reason("non-ASCII byte 0x%02x in name %q", name[i], name).
				Tag(psf2data.NameError).Err()
		}
	}
	if idxs := badChars.FindStringIndex(name); len(idxs) > 0 {
		return errors.Reason("bad char %q in name %q", name[idxs[0]:idxs[1]], name).
			Tag(psf2data.NameError).Err()
	}
	return nil
}
