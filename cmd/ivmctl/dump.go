// Copyright (C) 2024 The ivm-engine Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/where-app-hq/ivm-engine/qir"
)

// graphviz renders q's relational shape as dot(1)-compatible text: one
// cluster per nested query (the top-level query plus each with-entry
// and sub-query From/Join source), edges for joins and nesting.
func graphviz(q *qir.Query, dst io.Writer) error {
	if _, err := io.WriteString(dst, "digraph query {\n"); err != nil {
		return err
	}
	id := 0
	if _, err := gvQuery(q, dst, "root", &id); err != nil {
		return err
	}
	_, err := io.WriteString(dst, "}\n")
	return err
}

func gvQuery(q *qir.Query, dst io.Writer, label string, id *int) (int, error) {
	self := *id
	*id++
	fmt.Fprintf(dst, "subgraph cluster_%d {\nlabel=%q;\ncolor=lightgrey;\n", self, label)
	fmt.Fprintf(dst, "n%d [label=%q];\n", self, q.String())
	fmt.Fprintln(dst, "}")

	fromID, err := gvSource(q.From, dst, id)
	if err != nil {
		return self, err
	}
	fmt.Fprintf(dst, "n%d -> n%d [label=\"from\"];\n", fromID, self)

	for i, j := range q.Join {
		joinID, err := gvSource(j.From, dst, id)
		if err != nil {
			return self, err
		}
		fmt.Fprintf(dst, "n%d -> n%d [label=%q];\n", joinID, self, fmt.Sprintf("%s join %d", j.Type, i))
	}
	for _, w := range q.With {
		withID, err := gvQuery(w.Query, dst, fmt.Sprintf("with %s", w.As), id)
		if err != nil {
			return self, err
		}
		fmt.Fprintf(dst, "n%d -> n%d [style=dashed,label=\"with\"];\n", withID, self)
	}
	return self, nil
}

func gvSource(src qir.Source, dst io.Writer, id *int) (int, error) {
	switch s := src.(type) {
	case qir.QueryRef:
		return gvQuery(s.Sub, dst, s.String(), id)
	default:
		self := *id
		*id++
		fmt.Fprintf(dst, "n%d [label=%q,shape=box];\n", self, src.String())
		return self, nil
	}
}

// zstdLevel maps the small integer scale a config file names
// (1 = fastest .. 4 = best) onto the library's own
// zstd.EncoderLevel constants.
func zstdLevel(n int) zstd.EncoderLevel {
	switch {
	case n <= 1:
		return zstd.SpeedFastest
	case n == 2:
		return zstd.SpeedDefault
	case n == 3:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func newDumpCmd() *cobra.Command {
	var queryPath, outPath string
	var compress bool
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "render a query's relational (QIR) shape as graphviz",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			return runDump(cfg, queryPath, outPath, compress)
		},
	}
	cmd.Flags().StringVar(&queryPath, "query", "", "path to a query file (yaml or json)")
	cmd.Flags().StringVar(&outPath, "out", "-", "output path (\"-\" for stdout)")
	cmd.Flags().BoolVar(&compress, "compress", false, "zstd-compress the dot output")
	cmd.MarkFlagRequired("query")
	return cmd
}

func runDump(cfg Config, queryPath, outPath string, compress bool) error {
	q, err := loadQuerySpec(queryPath)
	if err != nil {
		return fmt.Errorf("loading query: %w", err)
	}

	var buf bytes.Buffer
	if err := graphviz(q, &buf); err != nil {
		return err
	}

	payload := buf.Bytes()
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel(cfg.DumpCompression)))
		if err != nil {
			return fmt.Errorf("zstd writer: %w", err)
		}
		payload = enc.EncodeAll(payload, nil)
		if err := enc.Close(); err != nil {
			return err
		}
	}

	if outPath == "-" {
		_, err := os.Stdout.Write(payload)
		return err
	}
	return os.WriteFile(outPath, payload, 0o644)
}
