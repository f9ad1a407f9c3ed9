// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package psf2data

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	. "go.chromium.org/luci/common/testing/assertions"
)

func TestTags(t *testing.T) {
	t.Parallel()

	Convey("Tags", t, func() {
		Convey("write", func() {
			Convey("adds utf8 and sorts", func() {
				buf := &bytes.Buffer{}
				tags := Tags{"title": "Song", "_lib": "x.psf2lib", "artist": "Someone"}
				So(WriteTags(buf, tags), ShouldBeNil)
				So(buf.String(), ShouldEqual, "[TAG]_lib=x.psf2lib\nartist=Someone\ntitle=Song\nutf8=1")
				So(tags, ShouldNotContainKey, "utf8")
			})

			Convey("nothing for empty tags", func() {
				buf := &bytes.Buffer{}
				So(WriteTags(buf, nil), ShouldBeNil)
				So(buf.Len(), ShouldEqual, 0)
			})

			Convey("bad tags", func() {
				buf := &bytes.Buffer{}
				err := WriteTags(buf, Tags{"a=b": "c"})
				So(err, ShouldErrLike, `tag name "a=b" contains '='`)
				So(FormatError.In(err), ShouldBeTrue)
				So(buf.Len(), ShouldEqual, 0)

				So(WriteTags(buf, Tags{"a": "multi\nline"}), ShouldErrLike, "contains a newline")
				So(WriteTags(buf, Tags{"": "v"}), ShouldErrLike, "empty tag name")
				So(WriteTags(buf, Tags{" a": "v"}), ShouldErrLike, "surrounding whitespace")
				So(WriteTags(buf, Tags{"a": " v "}), ShouldErrLike, `value of tag "a" has surrounding whitespace`)
				So(WriteTags(buf, Tags{"a": "v\t"}), ShouldErrLike, `value of tag "a" has surrounding whitespace`)
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("parse", func() {
			Convey("no marker", func() {
				lines, ok := ParseTrailer([]byte("garbage"))
				So(ok, ShouldBeFalse)
				So(lines, ShouldBeNil)

				_, ok = ParseTrailer(nil)
				So(ok, ShouldBeFalse)
			})

			Convey("lines in order", func() {
				lines, ok := ParseTrailer([]byte("[TAG]\n a = b \r\nempty=\nnoequals\nc=d=e\n=orphan\na=again\n\n"))
				So(ok, ShouldBeTrue)
				So(lines, ShouldResemble, []Tag{
					{"a", "b"},
					{"empty", ""},
					{"c", "d=e"},
					{"a", "again"},
				})
			})

			Convey("round trip", func() {
				buf := &bytes.Buffer{}
				So(ValidateTag("game", "Some Game"), ShouldBeNil)
				So(WriteTags(buf, Tags{"game": "Some Game", "volume": "1.5"}), ShouldBeNil)
				lines, ok := ParseTrailer(buf.Bytes())
				So(ok, ShouldBeTrue)
				So(lines, ShouldResemble, []Tag{{"game", "Some Game"}, {"utf8", "1"}, {"volume", "1.5"}})
			})
		})

		Convey("library keys", func() {
			So(LibraryKey(1), ShouldEqual, "_lib")
			So(LibraryKey(2), ShouldEqual, "_lib2")
			So(LibraryKey(10), ShouldEqual, "_lib10")

			for key, n := range map[string]int{"_lib": 1, "_lib2": 2, "_lib13": 13} {
				got, ok := LibraryIndex(key)
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, n)
			}
			for _, key := range []string{"_lib1", "_lib0", "_lib02", "_libx", "lib", "_LIB", "_lib2x"} {
				_, ok := LibraryIndex(key)
				So(ok, ShouldBeFalse)
			}
		})

		Convey("PopLibraries", func() {
			tags := Tags{
				"_lib":  "a",
				"_lib2": "b",
				"_lib4": "d",
				"_lib1": "not reserved",
				"title": "t",
			}
			paths, ignored := tags.PopLibraries()
			So(paths, ShouldResemble, []string{"a", "b"})
			So(ignored, ShouldResemble, []string{"_lib4"})
			So(tags, ShouldResemble, Tags{"_lib1": "not reserved", "title": "t"})
		})
	})
}
