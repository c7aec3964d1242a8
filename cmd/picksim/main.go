// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Command picksim drives the universal-style compaction picker over a
// synthetic level layout described on the command line, and prints the
// resulting descriptor (or the ratio grouping of a raw run-size list) as a
// table. It exists to let a human watch one pick's reasoning without
// standing up a database.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	terarkdb "github.com/70data/terarkdb"
	"github.com/70data/terarkdb/internal/base"
	"github.com/70data/terarkdb/internal/manifest"
)

var rootCmd = &cobra.Command{
	Use:   "picksim [command] (flags)",
	Short: "universal compaction picker simulator",
}

func main() {
	log.SetFlags(0)
	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(pickCmd, groupCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	sizesFlag     string
	levelTrigger  int
	sizeRatio     int
	sizeAmpPct    int
	lazy          bool
	groupTarget   int
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "run PickCompaction over a synthetic L0 run-size list",
	RunE:  runPick,
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "run RatioGrouper over a raw run-size list",
	RunE:  runGroup,
}

func init() {
	for _, cmd := range []*cobra.Command{pickCmd, groupCmd} {
		cmd.Flags().StringVar(&sizesFlag, "sizes", "", "comma-separated L0 file sizes (bytes)")
	}
	pickCmd.Flags().IntVar(&levelTrigger, "l0-trigger", 4, "level0_file_num_compaction_trigger")
	pickCmd.Flags().IntVar(&sizeRatio, "size-ratio", 1, "size_ratio percent")
	pickCmd.Flags().IntVar(&sizeAmpPct, "size-amp", 200, "max_size_amplification_percent")
	pickCmd.Flags().BoolVar(&lazy, "lazy", false, "enable_lazy_compaction")
	groupCmd.Flags().IntVar(&groupTarget, "target", 3, "desired group count")
}

func parseSizes(flag string) ([]uint64, error) {
	if flag == "" {
		return nil, errors.New("--sizes is required")
	}
	parts := strings.Split(flag, ",")
	sizes := make([]uint64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing size %q", p)
		}
		sizes[i] = n
	}
	return sizes, nil
}

func runPick(cmd *cobra.Command, args []string) error {
	sizes, err := parseSizes(sizesFlag)
	if err != nil {
		return err
	}

	v := &manifest.Version{Comparer: base.DefaultCompare, Dependents: manifest.DependentFiles{}}
	var files []*manifest.FileMetadata
	for i, sz := range sizes {
		f := &manifest.FileMetadata{
			FileNum:         uint64(len(sizes) - i),
			Size:            sz,
			CompensatedSize: sz,
			Purpose:         manifest.PurposeEssence,
			Smallest:        base.MakeInternalKey([]byte(fmt.Sprintf("k%06d", i)), base.SeqNum(i), base.InternalKeyKindSet),
			Largest:         base.MakeInternalKey([]byte(fmt.Sprintf("k%06d", i)), base.SeqNum(i), base.InternalKeyKindSet),
		}
		files = append(files, f)
		v.Dependents[f.FileNum] = f
	}
	v.Levels = make([]manifest.LevelMetadata, 7)
	v.Levels[0].Files = files

	o := (&terarkdb.Options{
		Level0FileNumCompactionTrigger: levelTrigger,
		SizeRatio:                      sizeRatio,
		MaxSizeAmplificationPercent:    uint64(sizeAmpPct),
		EnableLazyCompaction:           lazy,
	}).EnsureDefaults()
	inProgress := terarkdb.NewInProgressCompactions(o.Comparer)
	log := &terarkdb.LogBuffer{}

	d, err := terarkdb.PickCompaction(v, o, inProgress, log)
	if err != nil {
		return err
	}
	for _, line := range log.Lines() {
		fmt.Println(line)
	}
	if d == nil {
		fmt.Println("no compaction picked")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"field", "value"})
	table.Append([]string{"output_level", strconv.Itoa(d.OutputLevel)})
	table.Append([]string{"purpose", d.Purpose.String()})
	table.Append([]string{"reason", d.Reason.String()})
	table.Append([]string{"num_input_files", strconv.Itoa(len(d.AllFiles()))})
	table.Render()
	return nil
}

func runGroup(cmd *cobra.Command, args []string) error {
	sizes, err := parseSizes(sizesFlag)
	if err != nil {
		return err
	}
	ratios := make([]float64, len(sizes))
	for i, sz := range sizes {
		ratios[i] = float64(sz) / float64(1<<20)
	}
	groups, q := terarkdb.RatioGroup(ratios, groupTarget)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"start", "count", "ratio"})
	for _, g := range groups {
		table.Append([]string{strconv.Itoa(g.Start), strconv.Itoa(g.Count), fmt.Sprintf("%.3f", g.Ratio)})
	}
	table.Render()
	fmt.Printf("common ratio q = %.4f\n", q)
	return nil
}
