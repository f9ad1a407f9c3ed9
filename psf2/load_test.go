// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package psf2

import (
	"context"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/memlogger"
	. "go.chromium.org/luci/common/testing/assertions"
	"gopkg.in/src-d/go-billy.v4/memfs"
	"gopkg.in/src-d/go-billy.v4/util"

	"github.com/Nisto/psf2isolate/psf2/psf2data"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	Convey("Load", t, func() {
		ctx := memlogger.Use(context.Background())
		src := memfs.New()
		out := memfs.New()

		load := func(p string) (psf2data.Tags, error) {
			return Load(ctx, src, p, out, "/out")
		}

		Convey("single container", func() {
			mkContainer(src, "/g/song.psf2", tree{"a.bin": "A", "sub/b.bin": "B"}, psf2data.Tags{"title": "Song"})
			tags, err := load("/g/song.psf2")
			So(err, ShouldBeNil)
			So(tags, ShouldResemble, psf2data.Tags{"title": "Song", "utf8": "1"})
			So(readTree(out, "/out"), ShouldResemble, tree{"a.bin": "A", "sub/b.bin": "B"})
		})

		Convey("no trailer", func() {
			mkContainer(src, "/song.psf2", tree{"a": "x"}, nil)
			tags, err := load("/song.psf2")
			So(err, ShouldBeNil)
			So(tags, ShouldBeEmpty)
		})

		Convey("leaf wins over library", func() {
			mkContainer(src, "/g/base.psf2lib", tree{
				"shared.bin": "from lib",
				"lib.bin":    "lib only",
			}, psf2data.Tags{"game": "G", "title": "Library"})
			mkContainer(src, "/g/song.minipsf2", tree{
				"shared.bin": "from leaf",
				"leaf.bin":   "leaf only",
			}, psf2data.Tags{"_lib": "base.psf2lib", "title": "Song"})

			tags, err := load("/g/song.minipsf2")
			So(err, ShouldBeNil)
			So(tags, ShouldResemble, psf2data.Tags{"game": "G", "title": "Song", "utf8": "1"})
			So(readTree(out, "/out"), ShouldResemble, tree{
				"shared.bin": "from leaf",
				"lib.bin":    "lib only",
				"leaf.bin":   "leaf only",
			})
		})

		Convey("repeated keys within one trailer", func() {
			mkRawContainer(src, "/lib.psf2lib", tree{}, "[TAG]k=lib1\nk=lib2\nonlylib=a\nonlylib=b")
			mkRawContainer(src, "/song.minipsf2", tree{}, "[TAG]k=leaf1\r\nk=leaf2\n_lib=lib.psf2lib\n")

			tags, err := load("/song.minipsf2")
			So(err, ShouldBeNil)
			So(tags, ShouldResemble, psf2data.Tags{"k": "leaf2", "onlylib": "a"})
		})

		Convey("numbered libraries load in order", func() {
			mkContainer(src, "/g/one.psf2lib", tree{"f": "one", "one": "1"}, psf2data.Tags{"x": "one"})
			mkContainer(src, "/g/two.psf2lib", tree{"f": "two", "two": "2"}, psf2data.Tags{"x": "two", "y": "two"})
			mkContainer(src, "/g/song.minipsf2", tree{"leaf": "l"}, psf2data.Tags{
				"_lib":  "one.psf2lib",
				"_lib2": "two.psf2lib",
			})

			tags, err := load("/g/song.minipsf2")
			So(err, ShouldBeNil)
			So(tags, ShouldResemble, psf2data.Tags{"x": "one", "y": "two", "utf8": "1"})
			So(readTree(out, "/out"), ShouldResemble, tree{"f": "two", "one": "1", "two": "2", "leaf": "l"})
		})

		Convey("nested libraries resolve relative to their referrer", func() {
			mkContainer(src, "/g/libs/inner/deep.psf2lib", tree{"deep": "d"}, psf2data.Tags{"depth": "2"})
			mkContainer(src, "/g/libs/mid.psf2lib", tree{"mid": "m"}, psf2data.Tags{"_lib": "inner\\deep.psf2lib"})
			mkContainer(src, "/g/song.minipsf2", tree{"leaf": "l"}, psf2data.Tags{"_lib": "libs\\mid.psf2lib"})

			tags, err := load("/g/song.minipsf2")
			So(err, ShouldBeNil)
			So(tags, ShouldResemble, psf2data.Tags{"depth": "2", "utf8": "1"})
			So(readTree(out, "/out"), ShouldResemble, tree{"deep": "d", "mid": "m", "leaf": "l"})
		})

		Convey("diamonds are fine", func() {
			mkContainer(src, "/base.psf2lib", tree{"base": "b"}, nil)
			mkContainer(src, "/a.psf2lib", tree{"a": "a"}, psf2data.Tags{"_lib": "base.psf2lib"})
			mkContainer(src, "/song.minipsf2", tree{}, psf2data.Tags{
				"_lib":  "a.psf2lib",
				"_lib2": "base.psf2lib",
			})
			_, err := load("/song.minipsf2")
			So(err, ShouldBeNil)
			So(readTree(out, "/out"), ShouldResemble, tree{"base": "b", "a": "a"})
		})

		Convey("cycles", func() {
			Convey("self", func() {
				mkContainer(src, "/song.minipsf2", tree{}, psf2data.Tags{"_lib": "song.minipsf2"})
				_, err := load("/song.minipsf2")
				So(err, ShouldErrLike, "is its own library")
				So(psf2data.CycleError.In(err), ShouldBeTrue)
			})

			Convey("mutual", func() {
				mkContainer(src, "/a.psf2lib", tree{}, psf2data.Tags{"_lib": "b.psf2lib"})
				mkContainer(src, "/b.psf2lib", tree{}, psf2data.Tags{"_lib": "./a.psf2lib"})
				mkContainer(src, "/song.minipsf2", tree{}, psf2data.Tags{"_lib": "a.psf2lib"})
				_, err := load("/song.minipsf2")
				So(psf2data.CycleError.In(err), ShouldBeTrue)
			})
		})

		Convey("gaps in the library run", func() {
			mkContainer(src, "/one.psf2lib", tree{"one": "1"}, nil)
			mkContainer(src, "/three.psf2lib", tree{"three": "3"}, nil)
			mkContainer(src, "/song.minipsf2", tree{}, psf2data.Tags{
				"_lib":  "one.psf2lib",
				"_lib3": "three.psf2lib",
				"title": "t",
			})

			tags, err := load("/song.minipsf2")
			So(err, ShouldBeNil)
			So(tags, ShouldResemble, psf2data.Tags{"title": "t", "utf8": "1"})
			So(readTree(out, "/out"), ShouldResemble, tree{"one": "1"})

			ml := logging.Get(ctx).(*memlogger.MemLogger)
			warned := false
			for _, m := range ml.Messages() {
				if m.Level == logging.Warning && strings.Contains(m.Msg, `ignoring library tag "_lib3"`) {
					warned = true
				}
			}
			So(warned, ShouldBeTrue)
		})

		Convey("missing library", func() {
			mkContainer(src, "/song.minipsf2", tree{}, psf2data.Tags{"_lib": "gone.psf2lib"})
			_, err := load("/song.minipsf2")
			So(err, ShouldErrLike, `library "gone.psf2lib"`)
			So(psf2data.IOError.In(err), ShouldBeTrue)
		})

		Convey("bad magic", func() {
			So(util.WriteFile(src, "/junk.psf2", []byte("PSF\x01 and then some"), 0666), ShouldBeNil)
			_, err := load("/junk.psf2")
			So(err, ShouldErrLike, "bad magic")
			So(psf2data.FormatError.In(err), ShouldBeTrue)
		})
	})
}
