package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-movie-catalog/internal/models"
	"github.com/pribylovaa/go-movie-catalog/internal/source"
)

func newCollectionCmd(g *globalFlags) *cobra.Command {
	var f listFlags

	cmd := &cobra.Command{
		Use:   "collection <id>",
		Short: "Load movies of a collection page by page",
		Long: `Load the movies of one collection through the list controller.

Examples:
  # best rated movies of a collection, two pages
  catalog-browse collection 0b6f1c1e-4a53-5d1b-9a57-90d7a3c1f000 --sort top-rated --pages 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sortBy, err := models.ParseSortBy(f.sort)
			if err != nil {
				return err
			}
			switch sortBy {
			case "", models.SortLatest, models.SortRating, models.SortTitle, models.SortTopRated:
			default:
				return fmt.Errorf("--sort must be latest, rating, title or top-rated")
			}

			id := args[0]
			info := &source.CollectionInfo{}
			f.header = func(w io.Writer) {
				c, ok := info.Get(id)
				if !ok {
					fmt.Fprintf(w, "collection %s\n", id)
					return
				}
				movies := 0
				if c.Collection != nil {
					movies = c.Collection.MovieCount
				}
				fmt.Fprintf(w, "collection %q: %d movies\n", c.Title, movies)
			}

			filter := models.Filter{SortBy: sortBy, CollectionID: id}

			return f.run(cmd, g, models.ListCollection, filter, source.WithCollectionInfo(info))
		},
	}

	f.register(cmd, "sort order: latest, rating, title or top-rated")

	return cmd
}
