package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/mediaflow/workflow"
)

func newGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect workflow definitions",
	}
	cmd.AddCommand(newGraphValidateCommand(), newGraphShowCommand())
	return cmd
}

func newGraphValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check that workflow definitions build into a valid graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				g, err := loadGraph(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s, %d nodes, %d levels)\n",
					path, g.Name(), len(g.NodeIDs()), len(g.Levels()))
			}
			return nil
		},
	}
}

func newGraphShowCommand() *cobra.Command {
	var (
		file   string
		asYAML bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a workflow's levels, nodes and branch groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def := workflow.SentimentAnalysis()
			if file != "" {
				var err error
				if def, err = workflow.LoadDefinition(file); err != nil {
					return err
				}
			}
			if asYAML {
				data, err := workflow.MarshalDefinition(def)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			g, err := def.Build()
			if err != nil {
				return err
			}
			return printGraph(cmd.OutOrStdout(), g)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "workflow definition (default: built-in sentiment analysis)")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the definition as YAML")
	return cmd
}

func printGraph(w io.Writer, g *workflow.Graph) error {
	fmt.Fprintf(w, "workflow %s\n", g.Name())
	fmt.Fprintf(w, "start %s, aggregation %s\n\n", g.Start(), g.Aggregation())

	fmt.Fprintln(w, "levels:")
	for i, level := range g.Levels() {
		fmt.Fprintf(w, "  %d  %s\n", i, strings.Join(level, ", "))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tKIND\tSERVICE\tATTEMPTS\tTIMEOUT\tON FAILURE\tNEXT")
	for _, id := range g.NodeIDs() {
		n, _ := g.Node(id)
		timeout := "-"
		if n.Timeout > 0 {
			timeout = n.Timeout.Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			n.ID, dash(string(n.Kind)), dash(n.Service), max(n.Retry.MaxAttempts, 1), timeout,
			dash(string(n.OnFailure)), dash(strings.Join(n.OnSuccess, ",")))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, grp := range g.Groups() {
		fmt.Fprintf(w, "\ngroup %s (join %s)\n", grp.Name, grp.Join)
		for _, b := range grp.Branches {
			mark := ""
			if b.Mandatory {
				mark = " [mandatory]"
			}
			fmt.Fprintf(w, "  %s%s: %s\n", b.Name, mark, strings.Join(b.Nodes, " -> "))
		}
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
