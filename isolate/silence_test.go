// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package isolate

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	. "go.chromium.org/luci/common/testing/assertions"
)

func filled(n int, b byte) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func TestSilence(t *testing.T) {
	t.Parallel()

	Convey("Silence", t, func() {
		bd := filled(80, 0xAA)

		Convey("multi block sample", func() {
			So(Silence(bd, Sample{Offset: 16, Size: 64}), ShouldBeNil)
			So(bd[:32], ShouldResemble, filled(32, 0xAA))
			So(bd[32:48], ShouldResemble, silentMidBlock)
			So(bd[48:64], ShouldResemble, silentMidBlock)
			So(bd[64:], ShouldResemble, silentEndBlock)
		})

		Convey("single block sample", func() {
			So(Silence(bd, Sample{Offset: 0, Size: 16}), ShouldBeNil)
			So(bd[:16], ShouldResemble, silentEndBlock)
			So(bd[16:], ShouldResemble, filled(64, 0xAA))
		})

		Convey("two blocks", func() {
			So(Silence(bd, Sample{Offset: 0, Size: 32}), ShouldBeNil)
			So(bd[:16], ShouldResemble, filled(16, 0xAA))
			So(bd[16:32], ShouldResemble, silentEndBlock)
		})

		Convey("bad spans", func() {
			So(Silence(bd, Sample{Offset: 0, Size: 15}), ShouldErrLike, "is not a valid span")
			So(Silence(bd, Sample{Offset: 70, Size: 16}), ShouldErrLike, "is not a valid span")
			So(Silence(bd, Sample{Offset: -1, Size: 16}), ShouldErrLike, "is not a valid span")
			So(bd, ShouldResemble, filled(80, 0xAA))
		})
	})
}
