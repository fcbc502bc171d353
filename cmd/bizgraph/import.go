package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ooyales/it-biz-dev-lite-sub000/internal/logger"
	"github.com/ooyales/it-biz-dev-lite-sub000/internal/server/graph"
)

// importFile is the bulk import document. Sections are applied in field
// order so relationships can refer to entities created by the same file.
type importFile struct {
	Organizations []graph.OrganizationInput `json:"organizations"`
	People        []graph.PersonInput       `json:"people"`
	Contracts     []graph.ContractInput     `json:"contracts"`
	Relationships []graph.EdgeInput         `json:"relationships"`
}

type importSummary struct {
	Organizations int               `json:"organizations"`
	People        *graph.BulkResult `json:"people"`
	Contracts     int               `json:"contracts"`
	Relationships int               `json:"relationships"`
	Errors        []string          `json:"errors,omitempty"`
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Load organizations, people, contracts and relationships from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading import file: %w", err)
			}
			var doc importFile
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			ctx := cmd.Context()
			summary := importSummary{}
			for i, o := range doc.Organizations {
				if _, err := c.repo.CreateOrUpdateOrganization(ctx, o); err != nil {
					summary.Errors = append(summary.Errors, fmt.Sprintf("organization %d (%s): %v", i, o.Name, err))
					continue
				}
				summary.Organizations++
			}

			summary.People, err = c.repo.BulkCreatePeople(ctx, doc.People)
			if err != nil {
				return err
			}

			for i, ct := range doc.Contracts {
				if _, err := c.repo.CreateOrUpdateContract(ctx, ct); err != nil {
					summary.Errors = append(summary.Errors, fmt.Sprintf("contract %d (%s): %v", i, ct.Name, err))
					continue
				}
				summary.Contracts++
			}
			for i, e := range doc.Relationships {
				if err := c.repo.CreateRelationship(ctx, e); err != nil {
					summary.Errors = append(summary.Errors, fmt.Sprintf("relationship %d: %v", i, err))
					continue
				}
				summary.Relationships++
			}

			logger.Info("import finished", "file", args[0], "batch", summary.People.BatchID,
				"people", summary.People.Succeeded, "errors", len(summary.Errors)+len(summary.People.Failed))
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
}
