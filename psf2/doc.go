// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package psf2 creates PSF2 containers from directory trees and loads them
// back, resolving their library chains.
package psf2
