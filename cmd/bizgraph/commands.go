package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ooyales/it-biz-dev-lite-sub000/internal/config"
	"github.com/ooyales/it-biz-dev-lite-sub000/internal/logger"
	"github.com/ooyales/it-biz-dev-lite-sub000/internal/server/graph"
)

// opener returns the repository a command runs against
type opener func(ctx context.Context) (graph.Repository, error)

func openFromConfig(ctx context.Context) (graph.Repository, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.SetLogger(logger.NewConsoleLogger(os.Stderr, cfg.LogLevel))
	return graph.Open(ctx, cfg.Graph(), graph.Options{SearchLimit: cfg.SearchLimit})
}

type cli struct {
	open opener
	repo graph.Repository
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "bizgraph",
		Short:         "Operate the business relationship graph",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			repo, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			c.repo = repo
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.repo == nil {
				return nil
			}
			return c.repo.Close(cmd.Context())
		},
	}

	root.AddCommand(
		c.statsCmd(),
		c.egoCmd(),
		c.pathCmd(),
		c.incumbentsCmd(),
		c.importCmd(),
		c.clearCmd(),
	)
	return root
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print network statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := c.repo.NetworkStatistics(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func (c *cli) egoCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "ego <entity-id>",
		Short: "Print the neighborhood of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := c.repo.EgoNetwork(cmd.Context(), args[0], depth)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sub)
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 2, "maximum hops from the entity")
	return cmd
}

func (c *cli) pathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <from-id> <to-id>",
		Short: "Print the shortest path between two entities",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.repo.ShortestPath(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if path == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no path")
				return nil
			}
			for i, n := range path.Nodes {
				if i > 0 {
					e := path.Edges[i-1]
					arrow := fmt.Sprintf("-[%s]->", e.Type)
					if path.Reversed(i - 1) {
						arrow = fmt.Sprintf("<-[%s]-", e.Type)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", arrow)
				}
				label := n.Name
				if label == "" {
					label = n.ID
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", label, n.Type)
			}
			return nil
		},
	}
}

func (c *cli) incumbentsCmd() *cobra.Command {
	var naics string
	var limit int
	cmd := &cobra.Command{
		Use:   "incumbents <agency>",
		Short: "Rank contractors holding contracts at an agency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			incumbents, err := c.repo.IncumbentsAtAgency(cmd.Context(), graph.ContractFilter{
				Agency: args[0],
				NAICS:  naics,
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), incumbents)
		},
	}
	cmd.Flags().StringVar(&naics, "naics", "", "restrict to one NAICS code")
	cmd.Flags().IntVar(&limit, "limit", graph.DefaultAggregateLimit, "maximum contractors to list")
	return cmd
}

func (c *cli) clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entity, contract and relationship",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the %s graph without --yes", c.repo.Backend())
			}
			if err := c.repo.ClearDatabase(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "graph cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
