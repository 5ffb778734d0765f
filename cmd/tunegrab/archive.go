package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/handiism/tunegrab/internal/archive"
	"github.com/handiism/tunegrab/internal/config"
	"github.com/handiism/tunegrab/internal/logging"
	"github.com/handiism/tunegrab/internal/model"
)

func newArchiveCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect the archive of finished items",
	}
	cmd.AddCommand(newArchiveListCommand(root))
	return cmd
}

func newArchiveListCommand(root *rootOptions) *cobra.Command {
	var (
		kind   string
		filter string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(root.debug)

			settings, err := config.LoadWithEnv(root.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			applyFlags(cmd, root, settings)

			kinds, err := archiveKinds(kind)
			if err != nil {
				return err
			}

			paths := settings.ToPathConfig()
			var rows [][]string
			for _, k := range kinds {
				entries, err := archive.ForKind(&paths, k).Entries()
				if err != nil {
					return err
				}
				for _, e := range archive.Search(entries, filter) {
					rows = append(rows, archiveRow(k, e))
				}
			}
			if limit > 0 && len(rows) > limit {
				rows = rows[:limit]
			}

			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No archived items.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Kind", "Recorded", "Author", "Title", "File", "ID"},
				rows,
				nil,
			))
			fmt.Fprintf(cmd.OutOrStdout(), "%d item(s)\n", len(rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "all", "Archive to read: track, episode or all")
	cmd.Flags().StringVar(&filter, "filter", "", "Fuzzy filter on author, title, file name and id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n rows")
	return cmd
}

func archiveKinds(kind string) ([]model.Kind, error) {
	if kind == "" || kind == "all" {
		return []model.Kind{model.KindTrack, model.KindEpisode}, nil
	}
	k, err := model.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return []model.Kind{k}, nil
}

func archiveRow(kind model.Kind, e archive.Entry) []string {
	recorded := ""
	if !e.Timestamp.IsZero() {
		recorded = e.Timestamp.Format(archive.TimestampLayout)
	}
	return []string{kind.String(), recorded, e.Author, e.Title, e.Filename, e.ItemID}
}
