// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package psf2

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	. "github.com/smartystreets/goconvey/convey"
	billy "gopkg.in/src-d/go-billy.v4"
	"gopkg.in/src-d/go-billy.v4/memfs"
	"gopkg.in/src-d/go-billy.v4/util"

	"github.com/Nisto/psf2isolate/psf2/psf2data"
)

// tree maps slash separated paths to file contents. A path ending in "/" is
// an (empty) directory.
type tree map[string]string

func writeTree(fs billy.Filesystem, root string, t tree) {
	So(fs.MkdirAll(root, 0777), ShouldBeNil)
	for p, data := range t {
		full := fs.Join(root, p)
		if strings.HasSuffix(p, "/") {
			So(fs.MkdirAll(full, 0777), ShouldBeNil)
			continue
		}
		So(fs.MkdirAll(path.Dir(full), 0777), ShouldBeNil)
		So(util.WriteFile(fs, full, []byte(data), 0666), ShouldBeNil)
	}
}

// readTree is the inverse of writeTree; empty directories are reported with a
// trailing "/".
func readTree(fs billy.Filesystem, root string) tree {
	ret := tree{}
	var walk func(dir, rel string)
	walk = func(dir, rel string) {
		infos, err := fs.ReadDir(dir)
		So(err, ShouldBeNil)
		if len(infos) == 0 && rel != "" {
			ret[rel+"/"] = ""
		}
		for _, fi := range infos {
			p := path.Join(rel, fi.Name())
			if fi.IsDir() {
				walk(fs.Join(dir, fi.Name()), p)
				continue
			}
			f, err := fs.Open(fs.Join(dir, fi.Name()))
			So(err, ShouldBeNil)
			data, err := io.ReadAll(f)
			So(err, ShouldBeNil)
			So(f.Close(), ShouldBeNil)
			ret[p] = string(data)
		}
	}
	walk(root, "")
	return ret
}

// mkContainer packs t into a container at p in fs.
func mkContainer(fs billy.Filesystem, p string, t tree, tags psf2data.Tags) {
	src := memfs.New()
	writeTree(src, "/src", t)
	region, err := Build(context.Background(), src, "/src")
	So(err, ShouldBeNil)
	So(WriteFile(context.Background(), fs, p, region, tags), ShouldBeNil)
}

// mkRawContainer packs t into a container at p in fs, followed by trailer
// verbatim.
func mkRawContainer(fs billy.Filesystem, p string, t tree, trailer string) {
	src := memfs.New()
	writeTree(src, "/src", t)
	region, err := Build(context.Background(), src, "/src")
	So(err, ShouldBeNil)
	buf := &bytes.Buffer{}
	_, err = Write(buf, region, nil)
	So(err, ShouldBeNil)
	buf.WriteString(trailer)
	So(util.WriteFile(fs, p, buf.Bytes(), 0666), ShouldBeNil)
}
