// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package isolate

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/Nisto/psf2isolate/psf2"
	"github.com/Nisto/psf2isolate/psf2/psf2data"
)

// Options configures Run.
type Options struct {
	// Input is the PSF2 to split.
	Input string
	// OutDir receives the psf2lib and the minipsf2 files. Defaults to the
	// directory of Input.
	OutDir string

	// HD and BD name the sound bank files, relative to the root of Input's
	// virtual filesystem. When empty, the single ".HD" (by magic) or ".BD" (by
	// extension) file is used, and finding zero or several is an error.
	HD string
	BD string

	// CompressionLevel is the zlib level of the written containers, as for
	// psf2.WithCompressionLevel. Zero stores the blocks uncompressed.
	CompressionLevel int
}

// Result describes what Run wrote.
type Result struct {
	// Files lists the virtual filesystem of the input.
	Files []string
	// Tags are the input's resolved tags.
	Tags psf2data.Tags
	// Library is the path of the psf2lib.
	Library string
	// Minis are the paths of the minipsf2 files, one per sample.
	Minis []string
}

// RootName returns the name of a PSF2 without directory and extension.
func RootName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// findBank returns the paths of the ".HD" and ".BD" files below root, as
// slash separated paths relative to root.
func findBank(root, hd, bd string) (string, string, error) {
	if hd != "" && bd != "" {
		return filepath.ToSlash(hd), filepath.ToSlash(bd), nil
	}

	var hds, bds []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.EqualFold(filepath.Ext(p), ".bd") {
			bds = append(bds, rel)
			return nil
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		magic := make([]byte, len(HDMagic))
		if _, err := io.ReadFull(f, magic); err == nil && IsHD(magic) {
			hds = append(hds, rel)
		}
		return nil
	})
	if err != nil {
		return "", "", errors.Annotate(err, "scanning for a sound bank").Tag(psf2data.IOError).Err()
	}

	pick := func(given, kind string, found []string) (string, error) {
		if given != "" {
			return filepath.ToSlash(given), nil
		}
		if len(found) == 1 {
			return found[0], nil
		}
		sort.Strings(found)
		return "", errors.Reason("found %d %s files %q; name one explicitly", len(found), kind, found).Err()
	}
	if hd, err = pick(hd, ".HD", hds); err != nil {
		return "", "", err
	}
	if bd, err = pick(bd, ".BD", bds); err != nil {
		return "", "", err
	}
	return hd, bd, nil
}

// bank is the sound bank of the loaded input.
type bank struct {
	bdPath  string // slash separated, relative to the VFS root
	bd      []byte
	samples []Sample
	silent  []byte
}

func loadBank(root, hdPath, bdPath string) (*bank, error) {
	hd, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(hdPath)))
	if err != nil {
		return nil, errors.Annotate(err, "reading HD %q", hdPath).Tag(psf2data.IOError).Err()
	}
	bd, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(bdPath)))
	if err != nil {
		return nil, errors.Annotate(err, "reading BD %q", bdPath).Tag(psf2data.IOError).Err()
	}

	offsets, err := SampleOffsets(hd)
	if err != nil {
		return nil, errors.Annotate(err, "parsing HD %q", hdPath).Err()
	}
	samples, err := Samples(offsets, len(bd))
	if err != nil {
		return nil, errors.Annotate(err, "BD %q", bdPath).Err()
	}

	silent := make([]byte, len(bd))
	copy(silent, bd)
	for i, s := range samples {
		if err := Silence(silent, s); err != nil {
			return nil, errors.Annotate(err, "silencing sample %d", i).Err()
		}
	}
	return &bank{bdPath: bdPath, bd: bd, samples: samples, silent: silent}, nil
}

// isolated returns the silent BD with sample i restored.
func (b *bank) isolated(i int) []byte {
	ret := make([]byte, len(b.silent))
	copy(ret, b.silent)
	s := b.samples[i]
	copy(ret[s.Offset:s.Offset+s.Size], b.bd[s.Offset:])
	return ret
}

// Run splits the sound bank of opts.Input, see the package documentation.
func Run(ctx context.Context, opts Options) (*Result, error) {
	input, err := filepath.Abs(opts.Input)
	if err != nil {
		return nil, errors.Annotate(err, "making abspath").Tag(psf2data.IOError).Err()
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	name := RootName(input)
	createOpts := []psf2.CreateOption{psf2.WithCompressionLevel(opts.CompressionLevel)}

	res := &Result{}
	var b *bank

	err = psf2.WithTempDir(ctx, "psf2isolate", func(dir string) error {
		var err error
		logging.Infof(ctx, "loading %q", input)
		if res.Tags, err = psf2.LoadPath(ctx, input, dir); err != nil {
			return errors.Annotate(err, "loading PSF2").Err()
		}

		hdPath, bdPath, err := findBank(dir, opts.HD, opts.BD)
		if err != nil {
			return err
		}
		logging.Infof(ctx, "sound bank: HD %q, BD %q", hdPath, bdPath)
		if b, err = loadBank(dir, hdPath, bdPath); err != nil {
			return err
		}
		logging.Infof(ctx, "%d samples", len(b.samples))

		if res.Files, err = psf2.ListFiles(dir); err != nil {
			return err
		}

		// Every minipsf2 ships its own BD, so the library goes without.
		if err := os.Remove(filepath.Join(dir, filepath.FromSlash(bdPath))); err != nil {
			return errors.Annotate(err, "removing BD from library tree").Tag(psf2data.IOError).Err()
		}
		res.Library = filepath.Join(outDir, name+"_silent.psf2lib")
		logging.Infof(ctx, "writing psf2lib to %q", res.Library)
		return psf2.CreateFile(ctx, res.Library, dir, createOpts...)
	})
	if err != nil {
		return nil, err
	}

	tags := res.Tags.Clone()
	tags[psf2data.LibraryKey(1)] = filepath.Base(res.Library)
	miniOpts := append(createOpts, psf2.WithTags(tags))

	err = psf2.WithTempDir(ctx, "psf2isolate", func(dir string) error {
		bdFile := filepath.Join(dir, filepath.FromSlash(b.bdPath))
		if err := os.MkdirAll(filepath.Dir(bdFile), 0777); err != nil {
			return errors.Annotate(err, "making BD dir").Tag(psf2data.IOError).Err()
		}
		for i := range b.samples {
			if err := os.WriteFile(bdFile, b.isolated(i), 0666); err != nil {
				return errors.Annotate(err, "writing BD for sample %d", i).Tag(psf2data.IOError).Err()
			}
			mini := filepath.Join(outDir, fmt.Sprintf("%s_sample_%d.minipsf2", name, i))
			logging.Infof(ctx, "writing minipsf2 for isolated sample %d to %q", i, mini)
			if err := psf2.CreateFile(ctx, mini, dir, miniOpts...); err != nil {
				return errors.Annotate(err, "sample %d", i).Err()
			}
			res.Minis = append(res.Minis, mini)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
