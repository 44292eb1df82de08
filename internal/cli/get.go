package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-movie-catalog/internal/client"
	"github.com/pribylovaa/go-movie-catalog/internal/http/dto"
)

func newGetCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one catalog item as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := client.New(client.Config{BaseURL: g.apiURL, Logger: g.logger(cmd.ErrOrStderr())})
			if err != nil {
				return err
			}

			item, err := cl.ContentByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.ItemFromModel(*item))
		},
	}
}
