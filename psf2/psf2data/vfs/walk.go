// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package vfs

import (
	"encoding/binary"
	"path"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"

	"github.com/Nisto/psf2isolate/psf2/psf2data"
)

// table is a directory table being iterated.
type table struct {
	entries uint64 // offset of the first entry
	count   uint32
	next    uint32
	names   stringset.Set
}

func openTable(region []byte, off uint32) (*table, error) {
	if uint64(off)+4 > uint64(len(region)) {
		return nil, errors.Reason("directory table at 0x%x past region end 0x%x", off, len(region)).
			Tag(psf2data.FormatError).Err()
	}
	count := binary.LittleEndian.Uint32(region[off:])
	entries := uint64(off) + 4
	if entries+uint64(count)*EntrySize > uint64(len(region)) {
		return nil, errors.Reason("directory table at 0x%x: %d entries run past region end 0x%x",
			off, count, len(region)).Tag(psf2data.FormatError).Err()
	}
	return &table{entries: entries, count: count, names: stringset.New(int(count))}, nil
}

// Walk does a depth-first traversal of the tree stored in region, invoking cb
// for every entry. Directories are reported before their contents.
//
// This uses a stack-based (non-recursive) implementation, and refuses trees
// where one directory table is reachable more than once.
//
// Walk forwards the error returned by cb (if any), which immediately stops the
// walk. If cb needs to retain the path slice, it should make a copy.
func Walk(region []byte, cb func(path []string, ent Entry, kind Kind) error) error {
	root, err := openTable(region, 0)
	if err != nil {
		return err
	}

	seen := map[uint32]struct{}{0: {}}
	stack := []*table{root}
	segs := []string{}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		if cur.next == cur.count {
			stack = stack[:len(stack)-1]
			continue
		}
		i := cur.next
		cur.next++

		recOff := cur.entries + uint64(i)*EntrySize
		ent, err := ParseEntry(region[recOff : recOff+EntrySize])
		if err != nil {
			return errors.Annotate(err, "in %q", path.Join(segs[:len(stack)-1]...)).Err()
		}
		segs = append(segs[:len(stack)-1], ent.Name)

		if !cur.names.Add(ent.Name) {
			return errors.Reason("duplicate entry %q", path.Join(segs...)).Tag(psf2data.FormatError).Err()
		}
		kind, err := ent.Kind()
		if err != nil {
			return err
		}
		if err := cb(segs, ent, kind); err != nil {
			return err
		}

		if kind == KindDir {
			if _, dup := seen[ent.Offset]; dup {
				return errors.Reason("directory %q: table at 0x%x is referenced twice",
					path.Join(segs...), ent.Offset).Tag(psf2data.FormatError).Err()
			}
			seen[ent.Offset] = struct{}{}
			sub, err := openTable(region, ent.Offset)
			if err != nil {
				return errors.Annotate(err, "directory %q", path.Join(segs...)).Err()
			}
			stack = append(stack, sub)
		}
	}
	return nil
}

// List returns the slash separated path of every non-directory entry in
// region, in walk order.
func List(region []byte) ([]string, error) {
	var ret []string
	err := Walk(region, func(segs []string, _ Entry, kind Kind) error {
		if kind != KindDir {
			ret = append(ret, path.Join(segs...))
		}
		return nil
	})
	return ret, err
}
