// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command psf2isolate splits the sound bank of a PSF2 into per-sample
// minipsf2 files, and packs or unpacks PSF2 containers.
//
// Usage:
//
//	psf2isolate [--hd path] [--bd path] [--out-dir dir] <psf2>
//	psf2isolate pack [--tag key=value]... <dir> <out.psf2>
//	psf2isolate unpack <psf2> <dir>
//	psf2isolate list <psf2>
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/gologger"

	"github.com/Nisto/psf2isolate/isolate"
	"github.com/Nisto/psf2isolate/psf2"
	"github.com/Nisto/psf2isolate/psf2/psf2data"
)

type globalFlags struct {
	verbose bool
	level   int
}

func (g *globalFlags) context(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if g.verbose {
		ctx = logging.SetLevel(ctx, logging.Debug)
	}
	return ctx
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	opts := isolate.Options{}

	root := &cobra.Command{
		Use:           "psf2isolate <psf2>",
		Short:         "Write one minipsf2 per sound bank sample of a PSF2",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			opts.Input = args[0]
			opts.CompressionLevel = g.level
			res, err := isolate.Run(g.context(cmd), opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Loaded PSF2 virtual filesystem:")
			printFiles(out, res.Files)
			fmt.Fprintf(out, "Wrote %s and %d minipsf2 files.\n", res.Library, len(res.Minis))
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log debug messages")
	root.PersistentFlags().IntVar(&g.level, "level", psf2data.DefaultCompressionLevel, "zlib compression level of written containers")
	root.Flags().StringVar(&opts.HD, "hd", "", "path of the .HD file inside the PSF2 (default: detect)")
	root.Flags().StringVar(&opts.BD, "bd", "", "path of the .BD file inside the PSF2 (default: detect)")
	root.Flags().StringVar(&opts.OutDir, "out-dir", "", "output directory (default: next to the input)")

	root.AddCommand(newPackCmd(g), newUnpackCmd(g), newListCmd())
	return root
}

func newPackCmd(g *globalFlags) *cobra.Command {
	var tagArgs []string
	var blockSize int

	cmd := &cobra.Command{
		Use:   "pack <dir> <out.psf2>",
		Short: "Pack a directory into a PSF2 container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := parseTags(tagArgs)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			return psf2.CreateFile(g.context(cmd), args[1], args[0],
				psf2.WithCompressionLevel(g.level),
				psf2.WithBlockSize(blockSize),
				psf2.WithTags(tags))
		},
	}
	cmd.Flags().StringArrayVar(&tagArgs, "tag", nil, "metadata tag key=value (repeatable)")
	cmd.Flags().IntVar(&blockSize, "block-size", psf2data.BlockSize, "uncompressed bytes per block")
	return cmd
}

// parseTags turns "key=value" arguments into tags. Values may contain commas
// and further '=' signs; a repeated key keeps its last value.
func parseTags(args []string) (psf2data.Tags, error) {
	tags := make(psf2data.Tags, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return nil, errors.Reason("tag %q is not key=value", a).Err()
		}
		if err := psf2data.ValidateTag(k, v); err != nil {
			return nil, err
		}
		tags[k] = v
	}
	return tags, nil
}

func newUnpackCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unpack <psf2> <dir>",
		Short: "Load a PSF2 and its libraries into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := g.context(cmd)
			tags, err := psf2.LoadPath(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, k := range tags.SortedKeys() {
				fmt.Fprintf(out, "%s=%s\n", k, tags[k])
			}
			files, err := psf2.ListFiles(args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Loaded PSF2 virtual filesystem:")
			printFiles(out, files)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <psf2>",
		Short: "Print the raw tags and files of one PSF2, without its libraries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			c, err := psf2.OpenPath(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if lines, ok := c.Tags(); ok {
				for _, t := range lines {
					fmt.Fprintf(out, "%s=%s\n", t.Key, t.Value)
				}
			}
			files, err := c.Files()
			if err != nil {
				return err
			}
			printFiles(out, files)
			return nil
		},
	}
}

// printFiles prints paths sorted case-insensitively, eliding the middle of
// long listings.
func printFiles(w io.Writer, paths []string) {
	const edge = 7
	paths = append([]string(nil), paths...)
	sort.Slice(paths, func(i, j int) bool {
		return strings.ToLower(paths[i]) < strings.ToLower(paths[j])
	})
	if len(paths) <= 2*edge {
		for _, p := range paths {
			fmt.Fprintf(w, "  %s\n", p)
		}
		return
	}
	for _, p := range paths[:edge] {
		fmt.Fprintf(w, "  %s\n", p)
	}
	fmt.Fprintf(w, "  < +%d more files >\n", len(paths)-2*edge)
	for _, p := range paths[len(paths)-edge:] {
		fmt.Fprintf(w, "  %s\n", p)
	}
}

func main() {
	ctx := gologger.StdConfig.Use(context.Background())
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.Errorf(ctx, "%s", err)
		os.Exit(1)
	}
}
