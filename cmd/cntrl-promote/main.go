// Command cntrl-promote merges the observed edge set into the frozen
// edge set (spec.md §4.9), the operator action that ends a BOOTSTRAP
// observation window and commits to the edges APPLY will enforce. It
// touches only the bundle directory on disk; it never talks to the
// cluster.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wejdeneh/cntrl/internal/edgestore"
)

func main() {
	var bundleDir string

	root := &cobra.Command{
		Use:   "cntrl-promote",
		Short: "Promote the observed edge set into the frozen edge set",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := edgestore.New(bundleDir)
			promoted, err := store.Promote()
			if err != nil {
				return fmt.Errorf("promote edges: %w", err)
			}

			if len(promoted) == 0 {
				fmt.Println("no new edges to promote")
				return nil
			}

			fmt.Printf("promoted %d edge(s):\n", len(promoted))
			for _, e := range promoted.Slice() {
				fmt.Printf("  %s -> %s %s/%d\n", e.Src, e.Dst, e.Proto, e.Port)
			}
			return nil
		},
	}

	root.Flags().StringVar(&bundleDir, "bundle-dir", "policyBundle", "edge store bundle directory")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
