// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package psf2data implements the low level pieces of the PSF2 format: the
// container header, the "[TAG]" metadata trailer, the per-file block codec and
// the growable buffer the serialized region is built in.
package psf2data
