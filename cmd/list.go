package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"folio/internal/clix"
	"folio/internal/models"
	"folio/internal/services"
)

var listSortByStars bool

// listCmd shows one category tab from the cache, without touching the network.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached projects in a category tab",
	Long: `Displays the projects of one category tab (Featured by default) from the local
cache merged with the manual catalog. Run "folio refresh" to update the cache.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		category, ok, err := clix.ParseCategory(cmd.Flags(), "category")
		if err != nil {
			return err
		}
		if !ok {
			category = models.CategoryFeatured
		}
		pagination, err := clix.ParsePagination(cmd.Flags())
		if err != nil {
			return err
		}

		cached := appInstance.Cache.Load(cmd.Context())
		if cached == nil {
			log.Info("No valid cache record; showing the manual catalog only")
		}
		collection := listCollection(appInstance.Catalog, cached)
		if listSortByStars {
			collection = services.SortByStars(collection)
		}

		entries := pagination.Page(services.ByCategory(collection, category))
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintf(out, "No projects in %s.\n", category.Label())
			return nil
		}
		fmt.Fprintf(out, "%s:\n", category.Label())
		renderEntries(out, entries)
		return nil
	},
}

// listCollection merges the cached record with manual entries added since it
// was written. Listing never classifies, so nothing is in flight.
func listCollection(manual []models.CatalogEntry, cached *models.CachedCollection) []models.CatalogEntry {
	collection := services.Reconcile(services.Seed(manual, cached), manual, nil).Entries
	for i := range collection {
		collection[i].IsClassifying = false
	}
	return collection
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringP("category", "c", "", "category tab to show (default Featured)")
	listCmd.Flags().BoolVar(&listSortByStars, "stars", false, "sort by popularity (manual entries first)")
	listCmd.Flags().IntP("limit", "l", 0, "maximum number of projects to show (0 for all)")
	listCmd.Flags().IntP("offset", "o", 0, "number of projects to skip")
}
