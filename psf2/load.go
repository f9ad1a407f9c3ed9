// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package psf2

import (
	"context"
	"path/filepath"
	"strings"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/Nisto/psf2isolate/psf2/psf2data"
)

// maxChainDepth bounds library nesting. Paths are compared textually, so a
// cycle through differently spelled paths (e.g. via symlinks) is only caught
// here.
const maxChainDepth = 64

// loader carries the state shared by all containers of one Load call.
type loader struct {
	ctx  context.Context
	src  billy.Filesystem
	out  billy.Filesystem
	root string

	tags   psf2data.Tags
	active stringset.Set
}

// Load loads the container at path in src into root in out, together with all
// libraries it references, and returns the resolved tags.
//
// Libraries are extracted before the container referencing them, and the
// container passed to Load is extracted last, so its files win over any
// library's. Its tags likewise always win; a library's tags only fill keys
// nobody set before. Library reference tags (_lib, _lib2, ...) are consumed
// and never returned.
//
// On error the contents of root are unspecified.
func Load(ctx context.Context, src billy.Filesystem, path string, out billy.Filesystem, root string) (psf2data.Tags, error) {
	l := &loader{
		ctx:    ctx,
		src:    src,
		out:    out,
		root:   root,
		tags:   psf2data.Tags{},
		active: stringset.New(4),
	}
	if err := l.load(path, false); err != nil {
		return nil, err
	}
	return l.tags, nil
}

// LoadPath is Load for the host filesystem: it loads the PSF2 file at path into
// the directory outDir.
func LoadPath(ctx context.Context, path, outDir string) (psf2data.Tags, error) {
	fs, path, err := hostPath(path)
	if err != nil {
		return nil, err
	}
	if outDir, err = absPath(outDir); err != nil {
		return nil, err
	}
	return Load(ctx, fs, path, fs, outDir)
}

// libraryPath resolves the value of a _lib tag found in the container at
// from.
func libraryPath(from, lib string) string {
	lib = filepath.FromSlash(strings.ReplaceAll(lib, "\\", "/"))
	if filepath.IsAbs(lib) {
		return filepath.Clean(lib)
	}
	return filepath.Join(filepath.Dir(from), lib)
}

func (l *loader) load(path string, isLibrary bool) error {
	key := filepath.Clean(path)
	if l.active.Has(key) {
		return errors.Reason("%q is its own library", path).Tag(psf2data.CycleError).Err()
	}
	if l.active.Len() >= maxChainDepth {
		return errors.Reason("library chain deeper than %d at %q", maxChainDepth, path).
			Tag(psf2data.CycleError).Err()
	}
	l.active.Add(key)
	defer l.active.Del(key)

	logging.Debugf(l.ctx, "loading %q (library: %t)", path, isLibrary)

	c, err := Open(l.src, path)
	if err != nil {
		return err
	}

	// Library files go to disk first, so anything loaded later (in the end,
	// the leaf) overwrites them.
	if isLibrary {
		if err := c.UnpackTo(l.ctx, l.out, l.root); err != nil {
			return errors.Annotate(err, "extracting library %q", path).Err()
		}
	}

	if lines, ok := c.Tags(); ok {
		for _, t := range lines {
			if isLibrary {
				if _, has := l.tags[t.Key]; has {
					continue
				}
			}
			l.tags[t.Key] = t.Value
		}
	}

	libs, ignored := l.tags.PopLibraries()
	for _, k := range ignored {
		logging.Warningf(l.ctx, "%q: ignoring library tag %q, it does not follow _lib, _lib2, ... without gaps", path, k)
	}
	for _, lib := range libs {
		libPath := libraryPath(path, lib)
		logging.Infof(l.ctx, "loading library %q for %q", libPath, path)
		if err := l.load(libPath, true); err != nil {
			return errors.Annotate(err, "library %q of %q", lib, path).Err()
		}
	}

	if !isLibrary {
		if err := c.UnpackTo(l.ctx, l.out, l.root); err != nil {
			return errors.Annotate(err, "extracting %q", path).Err()
		}
	}
	return nil
}
