package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jason-riddle/dkr-go"
)

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List document categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := a.client.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			if categories == nil {
				categories = []dkr.Category{}
			}
			return a.print(categories, func(w io.Writer) error {
				rows := make([]string, len(categories))
				for i, c := range categories {
					rows[i] = fmt.Sprintf("%s\t%d\t%s", c.Name, c.DocumentCount, c.Description)
				}
				return table(w, "NAME\tDOCUMENTS\tDESCRIPTION", rows)
			})
		},
	}
}

func newLibraryCmd(a *app) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Browse the library as the agent sees it",
	}

	libraryCmd.AddCommand(&cobra.Command{
		Use:   "overview",
		Short: "Show the per-category overview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overview, err := a.client.LibraryOverview(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(overview, func(w io.Writer) error {
				names := make([]string, 0, len(overview.Categories))
				for name := range overview.Categories {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(w, "%s\n  %s\n", name, compact(overview.Categories[name]))
				}
				return nil
			})
		},
	})

	libraryCmd.AddCommand(&cobra.Command{
		Use:   "categories",
		Short: "List categories with document counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := a.client.ListLibraryCategories(cmd.Context())
			if err != nil {
				return err
			}
			if categories == nil {
				categories = []dkr.LibraryCategory{}
			}
			return a.print(categories, func(w io.Writer) error {
				rows := make([]string, len(categories))
				for i, c := range categories {
					rows[i] = fmt.Sprintf("%s\t%d", c.Name, c.DocumentCount)
				}
				return table(w, "NAME\tDOCUMENTS", rows)
			})
		},
	})

	libraryCmd.AddCommand(&cobra.Command{
		Use:   "docs <category>",
		Short: "List the documents in a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := a.client.ListCategoryDocuments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if docs == nil {
				docs = []dkr.Document{}
			}
			return a.print(docs, func(w io.Writer) error {
				return documentTable(w, docs)
			})
		},
	})

	return libraryCmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show library statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(stats, func(w io.Writer) error {
				fmt.Fprintf(w, "Documents:  %s\n", humanize.Comma(int64(stats.TotalDocuments)))
				fmt.Fprintf(w, "Categories: %s\n", humanize.Comma(int64(stats.TotalCategories)))
				names := make([]string, 0, len(stats.Categories))
				for name := range stats.Categories {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(w, "  %s: %s\n", name, compact(stats.Categories[name]))
				}
				return nil
			})
		},
	}
}

// compact strips insignificant whitespace from raw JSON for one-line display.
func compact(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(data)
}
