package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"folio/internal/costtracker"
	"folio/internal/models"
)

func categoryLabels(cats []models.Category) string {
	labels := make([]string, len(cats))
	for i, c := range cats {
		labels[i] = c.Label()
	}
	return strings.Join(labels, ", ")
}

// renderEntries prints projects as a table.
func renderEntries(w io.Writer, entries []models.CatalogEntry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Title", "Categories", "Stars", "Origin", "Link"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, e := range entries {
		cats := categoryLabels(e.DisplayCategories())
		if e.IsClassifying {
			cats = color.YellowString("classifying...")
		}
		link := ""
		if e.Link != nil {
			link = *e.Link
		}
		table.Append([]string{
			e.ID,
			e.Title,
			cats,
			strconv.Itoa(e.Stars),
			string(e.Origin),
			link,
		})
	}
	table.Render()
}

// renderBanners prints the non-fatal error banners of a state.
func renderBanners(w io.Writer, state models.State) {
	for _, b := range state.Banners {
		fmt.Fprintf(w, "%s %s\n", color.RedString("!"), b.Message)
	}
}

func renderCost(w io.Writer, s costtracker.Summary) {
	if s.Calls == 0 {
		return
	}
	fmt.Fprintf(w, "Classification usage: %d calls, %d input / %d output tokens, $%.6f\n",
		s.Calls, s.InputTokens, s.OutputTokens, s.TotalUSD)
}
