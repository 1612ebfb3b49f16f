package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the conversation graph for consistency",
	Long: `Loads and validates the graph document, then reports nodes that are
unreachable through transitions. Unreachable nodes are not an error: urgent
nodes are entered through escalation overrides, not transitions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := buildEngine(cmd, nil)
		if err != nil {
			return err
		}
		g := engine.Graph()

		reachable := map[string]bool{}
		frontier := []string{g.InitialState}
		for len(frontier) > 0 {
			id := frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]
			if reachable[id] {
				continue
			}
			reachable[id] = true
			node, err := g.Node(id)
			if err != nil {
				continue
			}
			for _, t := range node.Transitions {
				frontier = append(frontier, t.To)
			}
		}

		var unreachable []string
		for _, n := range g.Nodes() {
			if !reachable[n.ID] {
				unreachable = append(unreachable, n.ID)
			}
		}
		sort.Strings(unreachable)

		fmt.Printf("Graph %q is valid: %d nodes, entry node %q\n", g.ID, g.Len(), g.InitialState)
		for _, id := range unreachable {
			fmt.Printf("  note: node %q is only reachable through escalation overrides\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
