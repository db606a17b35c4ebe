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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/where-app-hq/ivm-engine/compiler"
	"github.com/where-app-hq/ivm-engine/dataflow"
	"github.com/where-app-hq/ivm-engine/mset"
)

// datasetRow is one row of a fixture file: an explicit key plus
// whatever fields the row carries. A fixture is a plain map of
// collection name to a list of these, since ivmctl runs a query
// against one fixed batch rather than a live feed.
type datasetRow struct {
	Key   string         `json:"key"`
	Value map[string]any `json:"value"`
}

func loadDataset(path string) (map[string][]datasetRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out map[string][]datasetRow
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return out, nil
}

func newRunCmd() *cobra.Command {
	var queryPath, dataPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "compile a query and materialize it against a fixed input batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			return runQuery(cfg, queryPath, dataPath)
		},
	}
	cmd.Flags().StringVar(&queryPath, "query", "", "path to a query file (yaml or json)")
	cmd.Flags().StringVar(&dataPath, "data", "", "path to a fixture file naming each input collection's rows")
	cmd.MarkFlagRequired("query")
	cmd.MarkFlagRequired("data")
	return cmd
}

func runQuery(cfg Config, queryPath, dataPath string) error {
	q, err := loadQuerySpec(queryPath)
	if err != nil {
		return fmt.Errorf("loading query: %w", err)
	}
	dataset, err := loadDataset(dataPath)
	if err != nil {
		return fmt.Errorf("loading data: %w", err)
	}

	g := dataflow.NewGraph()
	roots := make(map[string]*dataflow.Root[string, any], len(dataset))
	inputs := make(map[string]compiler.RawStream, len(dataset))
	for name := range dataset {
		root := dataflow.NewRoot[string, any](g)
		roots[name] = root
		inputs[name] = root.Output()
	}

	c := compiler.New(g, inputs)
	result, err := c.Compile(q)
	if err != nil {
		return fmt.Errorf("compiling query: %w", err)
	}

	var rows []map[string]any
	_, err = dataflow.NewOutput(g, result.Output, func(ms *mset.Multiset[dataflow.Pair[string, compiler.Row]]) {
		for _, p := range ms.Inner() {
			if p.Mult > 0 {
				rows = append(rows, map[string]any(p.Value.Row))
			}
		}
	})
	if err != nil {
		return fmt.Errorf("wiring output: %w", err)
	}
	g.Finalize()

	for name, root := range roots {
		ms := mset.New[dataflow.Pair[string, any]]()
		for _, r := range dataset[name] {
			ms.Add(dataflow.Pair[string, any]{Key: r.Key, Row: r.Value}, 1)
		}
		root.SendData(ms)
	}

	if err := g.Run(); err != nil {
		return fmt.Errorf("running graph: %w", err)
	}
	if err := result.Err(); err != nil {
		return fmt.Errorf("evaluating query: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	if cfg.Verbose {
		fmt.Fprintf(os.Stderr, "%d rows, round %d\n", len(rows), g.Round())
	}
	return nil
}
