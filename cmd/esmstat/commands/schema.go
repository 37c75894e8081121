package commands

import (
	"github.com/spf13/cobra"

	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/dataset"
)

// NewSchemaCommand creates the schema command, which prints the JSON schema
// used by --validate-schema.
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the dataset JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(dataset.Schema())

			return err
		},
	}
}
