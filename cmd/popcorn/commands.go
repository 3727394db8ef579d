package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/popcorn/internal/app"
	"github.com/Clark-Hu/popcorn/internal/domain"
	"github.com/Clark-Hu/popcorn/internal/search"
	"github.com/Clark-Hu/popcorn/internal/selection"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var minLen int
	cmd := &cobra.Command{
		Use:   "search <title>",
		Short: "Search the catalog by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.ensureClient(cmd)
			if err != nil {
				return err
			}
			ctrl := search.New(client, ctx.log(cmd),
				search.WithMinQueryLength(minLen),
				search.WithTimeout(ctx.timeout))

			query := strings.Join(args, " ")
			if err := wait(cmd.Context(), ctrl.SetQuery(query)); err != nil {
				ctrl.Cancel()
				return err
			}

			state := ctrl.State()
			switch ctrl.Phase() {
			case search.PhaseIdle:
				return fmt.Errorf("query %q is shorter than %d characters", query, minLen)
			case search.PhaseFailed:
				return errors.New(state.Error)
			}
			writeResults(cmd.OutOrStdout(), state.Results)
			return nil
		},
	}
	cmd.Flags().IntVar(&minLen, "min-length", search.DefaultMinQueryLength, "Minimum query length")
	return cmd
}

func newLookupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <id>",
		Short: "Show the full record for a catalog identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.ensureClient(cmd)
			if err != nil {
				return err
			}
			ctrl := selection.New(client, ctx.log(cmd), selection.WithLookupTimeout(ctx.timeout))
			if err := wait(cmd.Context(), ctrl.Select(args[0])); err != nil {
				return err
			}
			state := ctrl.State()
			if state.Detail == nil {
				return fmt.Errorf("movie %s could not be loaded", args[0])
			}
			writeDetail(cmd.OutOrStdout(), *state.Detail)
			return nil
		},
	}
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var rate int
	cmd := &cobra.Command{
		Use:   "watch <id>...",
		Short: "Mark movies as watched and print the list with its summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.ensureClient(cmd)
			if err != nil {
				return err
			}
			sess := app.NewSession("cli", client, app.Options{
				SearchTimeout: ctx.timeout,
				LookupTimeout: ctx.timeout,
				Logger:        ctx.log(cmd),
			})
			defer sess.Shutdown()

			for _, id := range args {
				if err := wait(cmd.Context(), sess.Select(id)); err != nil {
					return err
				}
				if sess.Snapshot().Selection.Detail == nil {
					return fmt.Errorf("movie %s could not be loaded", id)
				}
				if rate > 0 {
					if err := sess.Rate(rate); err != nil {
						return err
					}
				}
				sess.Close(cmd.Context())
			}

			snap := sess.Snapshot()
			out := cmd.OutOrStdout()
			writeWatched(out, snap.Watched)
			if snap.Summary != nil {
				writeSummary(out, *snap.Summary)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&rate, "rate", 0, fmt.Sprintf("Rating to give each movie (1-%d, 0 leaves it unrated)", app.DefaultRatingMax))
	return cmd
}

func wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writeResults(out io.Writer, results []domain.SearchResult) {
	rows := make([][]string, 0, len(results))
	for i, r := range results {
		rows = append(rows, []string{strconv.Itoa(i + 1), r.Title, r.Year, r.ID})
	}
	fmt.Fprintln(out, renderTable(out, []string{"#", "Title", "Year", "ID"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
}

func writeDetail(out io.Writer, d domain.MovieDetail) {
	rows := [][]string{
		{"Title", d.Title},
		{"Year", d.Year},
		{"Released", d.Released},
		{"Runtime", formatRuntime(d.RuntimeMinutes, d.HasRuntime)},
		{"Genre", d.Genre},
		{"Rating", formatRating(d.CatalogRating, d.HasCatalogRating)},
		{"Director", d.Director},
		{"Starring", d.Actors},
		{"Plot", d.Plot},
	}
	fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
}

func writeWatched(out io.Writer, entries []domain.WatchedEntry) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		user := "-"
		if e.UserRating > 0 {
			user = strconv.Itoa(e.UserRating)
		}
		rows = append(rows, []string{
			e.Title,
			formatRating(e.CatalogRating, e.HasCatalogRating),
			user,
			formatRuntime(e.RuntimeMinutes, e.HasRuntime),
		})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Title", "Catalog", "Yours", "Runtime"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight}))
}

func writeSummary(out io.Writer, s domain.Summary) {
	fmt.Fprintf(out, "%d movies  catalog %.2f  yours %.2f  %.0f min\n",
		s.Count, s.AverageCatalogRating, s.AverageUserRating, s.AverageRuntimeMinutes)
}

func formatRuntime(minutes int, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%d min", minutes)
}

func formatRating(v float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
