package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/recera/graphchart/cmd/graphchart/internal/ui"
	"github.com/recera/graphchart/pkg/highlight"
	"github.com/recera/graphchart/pkg/render"
	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	var selectNode string

	cmd := &cobra.Command{
		Use:   "inspect <graph.json>",
		Short: "Browse two-hop highlights of a graph in the terminal",
		Long: `Loads a backend graph response ({nodes, edges, groups}) and opens an
interactive node list. With --select, prints the color each node would get
when that node is double-clicked and exits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readGraph(args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("select") {
				return printHighlight(cmd, data, render.NodeID(selectNode))
			}
			return ui.Run(filepath.Base(args[0]), data)
		},
	}

	cmd.Flags().StringVar(&selectNode, "select", "", "Print the highlight for this node id instead of opening the inspector")

	return cmd
}

func readGraph(path string) (*render.GraphData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var data render.GraphData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &data, nil
}

func printHighlight(cmd *cobra.Command, data *render.GraphData, id render.NodeID) error {
	engine := highlight.NewEngine(highlight.NewGraph(data))
	colors := engine.DoubleClick(id)
	if _, ok := engine.Selected(); !ok && id != "" {
		return fmt.Errorf("node %q is not in the graph", id)
	}

	out := cmd.OutOrStdout()
	for _, nodeID := range data.NodeIDs() {
		color := colors[nodeID]
		if color == highlight.Unset {
			color = "-"
		}
		fmt.Fprintf(out, "%s\t%s\n", nodeID, color)
	}
	return nil
}
