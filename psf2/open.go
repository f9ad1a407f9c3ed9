// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package psf2

import (
	"io"

	"go.chromium.org/luci/common/errors"
	billy "gopkg.in/src-d/go-billy.v4"

	"github.com/Nisto/psf2isolate/psf2/psf2data"
	"github.com/Nisto/psf2isolate/psf2/psf2data/vfs"
)

// Container is a PSF2 file held in memory.
type Container struct {
	// Region is the serialized directory tree.
	Region []byte
	// Trailer is everything after the region; usually empty or a "[TAG]" block.
	Trailer []byte
}

// Parse validates the header of data and splits it. The returned Container
// aliases data.
func Parse(data []byte) (*Container, error) {
	region, trailer, err := psf2data.SplitContainer(data)
	if err != nil {
		return nil, err
	}
	return &Container{Region: region, Trailer: trailer}, nil
}

// Open reads and parses the container at path in fs.
func Open(fs billy.Filesystem, path string) (*Container, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Annotate(err, "opening %q", path).Tag(psf2data.IOError).Err()
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Annotate(err, "reading %q", path).Tag(psf2data.IOError).Err()
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Annotate(err, "parsing %q", path).Err()
	}
	return c, nil
}

// Tags returns the raw key=value lines of the trailer in file order. ok is
// false if the container has no "[TAG]" trailer.
func (c *Container) Tags() (lines []psf2data.Tag, ok bool) {
	return psf2data.ParseTrailer(c.Trailer)
}

// Files returns the slash separated paths of all files in the container.
func (c *Container) Files() ([]string, error) {
	return vfs.List(c.Region)
}

// OpenPath is Open for a path on the host filesystem.
func OpenPath(path string) (*Container, error) {
	fs, path, err := hostPath(path)
	if err != nil {
		return nil, err
	}
	return Open(fs, path)
}
