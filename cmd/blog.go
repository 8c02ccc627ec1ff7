package cmd

import (
	"fmt"
	"net/http"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"folio/internal/blog"
	"folio/internal/models"
)

// blogCmd prints the cover image and publication date of blog posts.
var blogCmd = &cobra.Command{
	Use:         "blog <url>...",
	Short:       "Extract cover image and date from blog post URLs",
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{standaloneAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		scraper := blog.NewScraper(&http.Client{Timeout: cfg.Blog.Timeout}, cfg.Blog.UserAgent, cfg.Blog.CacheTTL)

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"URL", "Image", "Date"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, url := range args {
			meta := scraper.Scrape(cmd.Context(), url)
			table.Append([]string{url, orNA(meta.ImageURL), orNA(meta.Date)})
		}
		table.Render()
		return nil
	},
}

func orNA(s *string) string {
	if s == nil {
		return "N/A"
	}
	return *s
}

// categoriesCmd lists the category tabs in display order.
var categoriesCmd = &cobra.Command{
	Use:         "categories",
	Short:       "List the portfolio category tabs",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{standaloneAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, c := range models.AllCategories() {
			note := ""
			if !c.Classifiable() {
				note = " (manual only)"
			}
			fmt.Fprintf(out, "%-18s %s%s\n", c, c.Label(), note)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blogCmd)
	rootCmd.AddCommand(categoriesCmd)
}
