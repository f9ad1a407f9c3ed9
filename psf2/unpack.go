// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package psf2

import (
	"context"
	"path"
	"path/filepath"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	billy "gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/util"

	"github.com/Nisto/psf2isolate/psf2/psf2data"
	"github.com/Nisto/psf2isolate/psf2/psf2data/vfs"
)

func ensureFile(out billy.Filesystem, abs, rel string, data []byte) error {
	if err := out.MkdirAll(filepath.Dir(abs), 0777); err != nil {
		return errors.Annotate(err, "making parent of %q", rel).Tag(psf2data.IOError).Err()
	}
	if err := util.WriteFile(out, abs, data, 0666); err != nil {
		return errors.Annotate(err, "writing file %q", rel).Tag(psf2data.IOError).Err()
	}
	return nil
}

// Extract materializes the tree serialized in region under root in out.
//
// Missing directories are created and existing files are overwritten, so
// several regions can be layered on top of each other.
func Extract(ctx context.Context, out billy.Filesystem, root string, region []byte) error {
	if err := out.MkdirAll(root, 0777); err != nil {
		return errors.Annotate(err, "making root %q", root).Tag(psf2data.IOError).Err()
	}

	files := 0
	err := vfs.Walk(region, func(segs []string, ent vfs.Entry, kind vfs.Kind) error {
		rel := path.Join(segs...)
		abs := out.Join(append([]string{root}, segs...)...)

		switch kind {
		case vfs.KindDir:
			if err := out.MkdirAll(abs, 0777); err != nil {
				return errors.Annotate(err, "making dir %q", rel).Tag(psf2data.IOError).Err()
			}
			return nil

		case vfs.KindEmpty:
			files++
			return ensureFile(out, abs, rel, nil)

		case vfs.KindFile:
			data, err := psf2data.ReadPayload(region, ent.Offset, ent.Size, ent.BlockSize)
			if err != nil {
				return errors.Annotate(err, "decoding file %q", rel).Err()
			}
			files++
			return ensureFile(out, abs, rel, data)
		}
		panic("impossible!")
	})
	if err != nil {
		return err
	}
	logging.Debugf(ctx, "extracted %d files to %q", files, root)
	return nil
}

// UnpackTo extracts c's region under root in out, see Extract.
func (c *Container) UnpackTo(ctx context.Context, out billy.Filesystem, root string) error {
	return Extract(ctx, out, root, c.Region)
}
