// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package psf2data

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"go.chromium.org/luci/common/errors"
)

// TagMarker starts the metadata trailer.
const TagMarker = "[TAG]"

// UTF8Tag is added to every trailer this package writes, declaring the text
// encoding.
const UTF8Tag = "utf8"

// Tag is one key=value line of a trailer.
type Tag struct {
	Key   string
	Value string
}

// Tags is a set of metadata tags keyed by name.
type Tags map[string]string

// Clone returns a shallow copy of t which is never nil.
func (t Tags) Clone() Tags {
	ret := make(Tags, len(t))
	for k, v := range t {
		ret[k] = v
	}
	return ret
}

// SortedKeys returns the keys of t in byte order.
func (t Tags) SortedKeys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LibraryKey returns the name of the n'th library reference tag: "_lib" for
// n == 1, "_lib<n>" above.
func LibraryKey(n int) string {
	if n == 1 {
		return "_lib"
	}
	return fmt.Sprintf("_lib%d", n)
}

// LibraryIndex reports whether key is a reserved library reference tag and if
// so which one.
func LibraryIndex(key string) (n int, ok bool) {
	rest, found := strings.CutPrefix(key, "_lib")
	if !found {
		return 0, false
	}
	if rest == "" {
		return 1, true
	}
	if rest[0] < '1' || rest[0] > '9' {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 2 {
		return 0, false
	}
	return n, true
}

// PopLibraries removes every library reference tag from t.
//
// It returns the values of the consecutive run _lib, _lib2, _lib3, ... in
// that order. Reserved keys which are not part of that run (e.g. a _lib3 with
// no _lib2) are removed as well and returned in ignored.
func (t Tags) PopLibraries() (paths []string, ignored []string) {
	for n := 1; ; n++ {
		key := LibraryKey(n)
		v, ok := t[key]
		if !ok {
			break
		}
		paths = append(paths, v)
		delete(t, key)
	}
	for _, k := range t.SortedKeys() {
		if _, ok := LibraryIndex(k); ok {
			ignored = append(ignored, k)
			delete(t, k)
		}
	}
	return
}

// ValidateTag returns a nil err iff key=value can be written as one trailer
// line and read back unchanged.
func ValidateTag(key, value string) error {
	switch {
	case key == "":
		return errors.New("empty tag name", FormatError)
	case strings.TrimSpace(key) != key:
		return errors.Reason("tag name %q has surrounding whitespace", key).Tag(FormatError).Err()
	case strings.ContainsAny(key, "=\r\n"):
		return errors.Reason("tag name %q contains '=' or a newline", key).Tag(FormatError).Err()
	case strings.ContainsAny(value, "\r\n"):
		return errors.Reason("value of tag %q contains a newline", key).Tag(FormatError).Err()
	case strings.TrimSpace(value) != value:
		return errors.Reason("value of tag %q has surrounding whitespace", key).Tag(FormatError).Err()
	}
	return nil
}

// WriteTags writes the trailer for tags to w. Nothing is written for an empty
// set; otherwise utf8=1 is added and the lines are emitted in key order.
func WriteTags(w io.Writer, tags Tags) error {
	if len(tags) == 0 {
		return nil
	}
	tags = tags.Clone()
	tags[UTF8Tag] = "1"

	buf := &bytes.Buffer{}
	buf.WriteString(TagMarker)
	for i, k := range tags.SortedKeys() {
		v := tags[k]
		if err := ValidateTag(k, v); err != nil {
			return err
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(v)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ParseTrailer parses the bytes following the serialized region.
//
// ok is false if the trailer does not start with TagMarker. Otherwise lines
// holds every key=value line in file order; duplicates are preserved so the
// caller can apply its own precedence.
func ParseTrailer(trailer []byte) (lines []Tag, ok bool) {
	if !bytes.HasPrefix(trailer, []byte(TagMarker)) {
		return nil, false
	}
	text := strings.TrimSpace(string(trailer[len(TagMarker):]))
	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(strings.TrimSuffix(line, "\r"), "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		lines = append(lines, Tag{Key: key, Value: strings.TrimSpace(value)})
	}
	return lines, true
}
