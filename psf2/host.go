// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package psf2

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/system/filesystem"
	billy "gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/osfs"

	"github.com/Nisto/psf2isolate/psf2/psf2data"
)

// hostFS is the whole host filesystem; it is addressed with absolute paths.
var hostFS billy.Filesystem = osfs.New(string(filepath.Separator))

func absPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.Annotate(err, "making abspath of %q", p).Tag(psf2data.IOError).Err()
	}
	return abs, nil
}

func hostPath(p string) (billy.Filesystem, string, error) {
	abs, err := absPath(p)
	return hostFS, abs, err
}

// WithTempDir creates a temporary directory, calls cb with its path and
// removes the directory again, whether or not cb succeeded.
func WithTempDir(ctx context.Context, pattern string, cb func(dir string) error) (err error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return errors.Annotate(err, "creating temp dir").Tag(psf2data.IOError).Err()
	}
	defer func() {
		if rmErr := filesystem.RemoveAll(dir); rmErr != nil {
			logging.Warningf(ctx, "failed to remove temp dir %q: %s", dir, rmErr)
			if err == nil {
				err = errors.Annotate(rmErr, "removing temp dir %q", dir).Tag(psf2data.IOError).Err()
			}
		}
	}()
	return cb(dir)
}

// ListFiles returns every non-directory below the host directory root as
// slash separated relative paths, sorted case-insensitively.
func ListFiles(root string) ([]string, error) {
	var ret []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err == nil {
			ret = append(ret, filepath.ToSlash(rel))
		}
		return err
	})
	if err != nil {
		return nil, errors.Annotate(err, "listing %q", root).Tag(psf2data.IOError).Err()
	}
	sort.Slice(ret, func(i, j int) bool {
		a, b := strings.ToLower(ret[i]), strings.ToLower(ret[j])
		if a != b {
			return a < b
		}
		return ret[i] < ret[j]
	})
	return ret, nil
}
