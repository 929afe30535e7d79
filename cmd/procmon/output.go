package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/breeze-rmm/procmon/internal/process"
)

const maxCmdWidth = 60

func writeSnapshot(w io.Writer, snap process.Snapshot, format string, limit int) error {
	switch strings.ToLower(format) {
	case "", "table":
		return writeTable(w, snap, limit)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(limitRecords(snap, limit))
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(limitRecords(snap, limit)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

func limitRecords(snap process.Snapshot, limit int) []process.Record {
	records := snap.Records()
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

func writeTable(w io.Writer, snap process.Snapshot, limit int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tNAME\tSTATUS\tCPU%\tRSS(KB)\tUSER\tCMD")

	n := snap.Len()
	if limit > 0 && n > limit {
		n = limit
	}
	for i := range n {
		rec, _ := snap.At(i)
		uid := ""
		if rec.OwnerID != nil {
			uid = strconv.FormatUint(uint64(*rec.OwnerID), 10)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%d\t%s\t%s\n",
			rec.PID,
			rec.Name,
			rec.Status,
			rec.CPUPercent,
			rec.ResidentMem/1024,
			uid,
			truncate(strings.Join(rec.CommandLine, " "), maxCmdWidth),
		)
	}
	return tw.Flush()
}

func writeFields(w io.Writer, rec process.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range rec.Fields() {
		fmt.Fprintf(tw, "%s:\t%s\n", f.Label, f.Value)
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
