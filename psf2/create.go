// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package psf2

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/iotools"
	"go.chromium.org/luci/common/logging"
	billy "gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/util"

	"github.com/Nisto/psf2isolate/psf2/psf2data"
	"github.com/Nisto/psf2isolate/psf2/psf2data/vfs"
)

type createOptionData struct {
	compressLevel int
	blockSize     int
	tags          psf2data.Tags
}

// CreateOption functions can be supplied to Build and CreateFromPath.
type CreateOption func(*createOptionData)

// WithCompressionLevel sets the zlib level used for every block. Defaults to
// psf2data.DefaultCompressionLevel.
func WithCompressionLevel(level int) CreateOption {
	return func(o *createOptionData) {
		o.compressLevel = level
	}
}

// WithBlockSize sets the number of uncompressed bytes per block. Defaults to
// psf2data.BlockSize.
func WithBlockSize(size int) CreateOption {
	return func(o *createOptionData) {
		o.blockSize = size
	}
}

// WithTags sets the metadata written to the container's trailer. No trailer is
// written for an empty set.
func WithTags(tags psf2data.Tags) CreateOption {
	return func(o *createOptionData) {
		o.tags = tags
	}
}

func makeCreateOptions(options []CreateOption) (createOptionData, error) {
	opts := createOptionData{
		compressLevel: psf2data.DefaultCompressionLevel,
		blockSize:     psf2data.BlockSize,
	}
	for _, o := range options {
		o(&opts)
	}
	if err := psf2data.ValidLevel(opts.compressLevel); err != nil {
		return opts, err
	}
	if opts.blockSize <= 0 || uint64(opts.blockSize) > math.MaxUint32 {
		return opts, errors.Reason("invalid block size %d", opts.blockSize).
			Tag(psf2data.CompressionError).Err()
	}
	return opts, nil
}

type builder struct {
	ctx    context.Context
	fs     billy.Filesystem
	region psf2data.Region
	opts   createOptionData
}

// Build serializes the directory tree at root (a path inside fs) into a PSF2
// serialized region.
//
// Entries of each directory are ordered case-insensitively by name, with byte
// order breaking ties, so the output depends only on the tree's contents.
func Build(ctx context.Context, fs billy.Filesystem, root string, options ...CreateOption) ([]byte, error) {
	opts, err := makeCreateOptions(options)
	if err != nil {
		return nil, err
	}
	b := &builder{ctx: ctx, fs: fs, opts: opts}
	if err := b.buildDir(root); err != nil {
		return nil, err
	}
	logging.Debugf(ctx, "built region of %d bytes from %q", b.region.Len(), root)
	return b.region.Bytes(), nil
}

func sortEntries(infos []os.FileInfo) {
	sort.Slice(infos, func(i, j int) bool {
		a, b := strings.ToLower(infos[i].Name()), strings.ToLower(infos[j].Name())
		if a != b {
			return a < b
		}
		return infos[i].Name() < infos[j].Name()
	})
}

func (b *builder) buildDir(dir string) error {
	logging.Debugf(b.ctx, "[%d] entering %q", b.region.Len(), dir)

	infos, err := b.fs.ReadDir(dir)
	if err != nil {
		return errors.Annotate(err, "listing %q", dir).Tag(psf2data.IOError).Err()
	}
	sortEntries(infos)

	b.region.AppendUint32(uint32(len(infos)))
	// All slots of this directory are reserved before any payload is
	// appended, so the entry table stays contiguous.
	slotBase := b.region.Reserve(len(infos) * vfs.EntrySize)

	for i, fi := range infos {
		name := fi.Name()
		if err := vfs.CheckName(name); err != nil {
			return errors.Annotate(err, "in %q", dir).Err()
		}
		p := b.fs.Join(dir, name)

		if fi.Mode()&os.ModeSymlink != 0 {
			if fi, err = b.fs.Stat(p); err != nil {
				return errors.Annotate(err, "following %q", p).Tag(psf2data.IOError).Err()
			}
		}

		ent := vfs.Entry{Name: name}
		var data []byte
		switch {
		case fi.IsDir():
			if ent.Offset, err = b.region.Offset(); err != nil {
				return err
			}

		case fi.Mode().IsRegular():
			if data, err = b.readFile(p); err != nil {
				return err
			}
			if len(data) > 0 {
				if uint64(len(data)) > math.MaxUint32 {
					return errors.Reason("file %q is too large (%d bytes)", p, len(data)).
						Tag(psf2data.FormatError).Err()
				}
				if ent.Offset, err = b.region.Offset(); err != nil {
					return err
				}
				ent.Size = uint32(len(data))
				ent.BlockSize = uint32(b.opts.blockSize)
			}

		default:
			return errors.Reason("%q is neither a regular file nor a directory (%s)", p, fi.Mode()).
				Tag(psf2data.IOError).Err()
		}

		b.region.Patch(slotBase+i*vfs.EntrySize, ent.Marshal())

		switch {
		case fi.IsDir():
			if err := b.buildDir(p); err != nil {
				return err
			}
		case len(data) > 0:
			if err := b.buildFile(p, data); err != nil {
				return err
			}
		}
	}

	logging.Debugf(b.ctx, "[%d] exiting %q (%d entries)", b.region.Len(), dir, len(infos))
	return nil
}

func (b *builder) readFile(p string) ([]byte, error) {
	f, err := b.fs.Open(p)
	if err != nil {
		return nil, errors.Annotate(err, "opening %q", p).Tag(psf2data.IOError).Err()
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Annotate(err, "reading %q", p).Tag(psf2data.IOError).Err()
	}
	return data, nil
}

// buildFile appends the block size table and the compressed blocks of data.
func (b *builder) buildFile(p string, data []byte) error {
	sizes, blocks, err := psf2data.EncodeBlocks(data, b.opts.blockSize, b.opts.compressLevel)
	if err != nil {
		return errors.Annotate(err, "compressing %q", p).Err()
	}
	psf2data.AppendPayload(&b.region, sizes, blocks)
	return nil
}

// Write writes a complete container (header, region and, if tags is not
// empty, the trailer) to out. It returns the number of bytes written.
func Write(out io.Writer, region []byte, tags psf2data.Tags) (int64, error) {
	h, err := psf2data.HeaderFor(region)
	if err != nil {
		return 0, err
	}
	cw := &iotools.CountingWriter{Writer: out}
	if err := h.Write(cw); err != nil {
		return cw.Count, errors.Annotate(err, "writing header").Tag(psf2data.IOError).Err()
	}
	if _, err := cw.Write(region); err != nil {
		return cw.Count, errors.Annotate(err, "writing region").Tag(psf2data.IOError).Err()
	}
	if err := psf2data.WriteTags(cw, tags); err != nil {
		return cw.Count, errors.Annotate(err, "writing tags").Err()
	}
	return cw.Count, nil
}

// checkOverwritable returns nil if path does not exist or holds a PSF2.
func checkOverwritable(fs billy.Filesystem, path string) error {
	fi, err := fs.Stat(path)
	switch {
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return errors.Annotate(err, "can't verify whether %q is overwritable", path).
			Tag(psf2data.ConflictError).Err()
	case fi.IsDir():
		return errors.Reason("%q is a directory", path).Tag(psf2data.ConflictError).Err()
	}

	f, err := fs.Open(path)
	if err != nil {
		return errors.Annotate(err, "can't verify whether %q is overwritable", path).
			Tag(psf2data.ConflictError).Err()
	}
	defer f.Close()
	if err := psf2data.ReadMagic(f); err != nil {
		return errors.Annotate(err, "%q exists and is not a PSF2; will not overwrite", path).
			Tag(psf2data.ConflictError).Err()
	}
	return nil
}

// WriteFile writes a container to path in fs. An existing file is only
// replaced if it is itself a PSF2.
func WriteFile(ctx context.Context, fs billy.Filesystem, path string, region []byte, tags psf2data.Tags) error {
	if err := checkOverwritable(fs, path); err != nil {
		return err
	}

	buf := &bytes.Buffer{}
	n, err := Write(buf, region, tags)
	if err != nil {
		return err
	}
	if err := util.WriteFile(fs, path, buf.Bytes(), 0666); err != nil {
		return errors.Annotate(err, "writing %q", path).Tag(psf2data.IOError).Err()
	}
	logging.Infof(ctx, "wrote %q (%d bytes, %d tags)", path, n, len(tags))
	return nil
}

// CreateFromPath builds the directory at path on the host filesystem and
// writes the resulting container to out.
func CreateFromPath(ctx context.Context, out io.Writer, path string, options ...CreateOption) error {
	fs, path, err := hostPath(path)
	if err != nil {
		return err
	}
	opts, err := makeCreateOptions(options)
	if err != nil {
		return err
	}
	region, err := Build(ctx, fs, path, options...)
	if err != nil {
		return err
	}
	_, err = Write(out, region, opts.tags)
	return err
}

// CreateFile builds the directory dir on the host filesystem and writes the
// container to the host file path, see WriteFile.
func CreateFile(ctx context.Context, path, dir string, options ...CreateOption) error {
	fs, dir, err := hostPath(dir)
	if err != nil {
		return err
	}
	if path, err = absPath(path); err != nil {
		return err
	}
	opts, err := makeCreateOptions(options)
	if err != nil {
		return err
	}
	// Fail before compressing anything if the destination is taken.
	if err := checkOverwritable(fs, path); err != nil {
		return err
	}
	region, err := Build(ctx, fs, dir, options...)
	if err != nil {
		return err
	}
	return WriteFile(ctx, fs, path, region, opts.tags)
}
