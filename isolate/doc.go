// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package isolate splits the sound bank of a PSF2 rip into one minipsf2 per
// sample.
//
// The input PSF2 is loaded, the PS2 sound bank inside it (an ".HD" header and
// its ".BD" body of ADPCM samples) is located, and two kinds of containers are
// written next to the input:
//
//   - <name>_silent.psf2lib holds the whole virtual filesystem, minus the
//     ".BD".
//   - <name>_sample_<i>.minipsf2 holds only the ".BD", with every sample
//     silenced except sample i, and references the psf2lib through _lib.
//
// Playing the minipsf2 files one by one thus plays each sample in isolation.
package isolate
