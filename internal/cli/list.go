package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promdto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-movie-catalog/internal/client"
	"github.com/pribylovaa/go-movie-catalog/internal/metrics"
	"github.com/pribylovaa/go-movie-catalog/internal/models"
	"github.com/pribylovaa/go-movie-catalog/internal/pager"
	"github.com/pribylovaa/go-movie-catalog/internal/source"
	"github.com/pribylovaa/go-movie-catalog/internal/storage/mock"
	"github.com/pribylovaa/go-movie-catalog/pkg/log"
)

type listFlags struct {
	source     string
	seed       uint64
	pageSize   int
	pages      int
	sort       string
	period     string
	category   string
	vipOnly    bool
	thenSort   string
	minLoading time.Duration
	stats      bool

	// header печатается перед первой страницей.
	header func(io.Writer)
}

func newListCmd(g *globalFlags) *cobra.Command {
	var f listFlags

	cmd := &cobra.Command{
		Use:   "list <hot|latest|photos|collections>",
		Short: "Load a list page by page",
		Long: `Load a catalog list through the list controller and print every settled page.

Examples:
  # first two pages of hot content
  catalog-browse list hot --pages 2

  # photos from the built-in mock dataset, then re-sorted by rating
  catalog-browse list photos --source mock --then-sort rating`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := models.ParseList(args[0])
			if err != nil {
				return err
			}

			filter, err := f.filter()
			if err != nil {
				return err
			}

			return f.run(cmd, g, list, filter)
		},
	}

	f.register(cmd, "sort order: latest, popular or rating")

	return cmd
}

// run загружает список list через контроллер и печатает каждую
// устоявшуюся страницу.
func (f *listFlags) run(cmd *cobra.Command, g *globalFlags, list models.List, filter models.Filter, opts ...source.Option) error {
	var (
		thenSort models.SortBy
		err      error
	)
	if f.thenSort != "" {
		if thenSort, err = models.ParseSortBy(f.thenSort); err != nil {
			return err
		}
	}

	if f.pages < 1 {
		return fmt.Errorf("--pages must be >= 1")
	}

	lg := g.logger(cmd.ErrOrStderr())
	ctx := log.Into(cmd.Context(), lg)

	src, err := f.dataSource(g, list, lg, opts...)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	ctrl := source.NewListController(src, list, source.ListConfig{
		PageSize:   f.pageSize,
		Filter:     filter,
		MinLoading: f.minLoading,
		Context:    ctx,
		Logger:     lg,
		OnSettle: func(name string, mode pager.Mode, outcome pager.Outcome, dur time.Duration) {
			m.ObservePager(name, mode, outcome, dur)
			lg.Debug("fetch_settled",
				slog.String("list", name),
				slog.String("mode", mode.String()),
				slog.String("outcome", string(outcome)),
				slog.Duration("dur", dur),
			)
		},
	})
	defer ctrl.Close()

	out := cmd.OutOrStdout()

	ctrl.Refresh(ctx)
	if f.header != nil {
		f.header(out)
	}
	if err := printState(out, ctrl.State()); err != nil {
		return err
	}

	for i := 1; i < f.pages && ctrl.State().HasMore(); i++ {
		ctrl.LoadMore(ctx)
		if err := printState(out, ctrl.State()); err != nil {
			return err
		}
	}

	if thenSort != "" {
		ctrl.UpdateOptions(func(q *pager.Query[models.Filter]) { q.Filter.SortBy = thenSort })
		ctrl.Wait()
		if err := printState(out, ctrl.State()); err != nil {
			return err
		}
	}

	if f.stats {
		return printStats(out, reg)
	}

	return nil
}

func (f *listFlags) register(cmd *cobra.Command, sortUsage string) {
	fl := cmd.Flags()
	fl.StringVar(&f.source, "source", SourceRemote, "data source: remote or mock")
	fl.Uint64Var(&f.seed, "seed", 1, "mock dataset seed")
	fl.IntVar(&f.pageSize, "page-size", pager.DefaultPageSize, "items per page")
	fl.IntVar(&f.pages, "pages", 1, "number of pages to load")
	fl.StringVar(&f.sort, "sort", "", sortUsage)
	fl.StringVar(&f.period, "period", "", "period: 24hours, 7days or 30days")
	fl.StringVar(&f.category, "category", "", "category filter")
	fl.BoolVar(&f.vipOnly, "vip-only", false, "only VIP content")
	fl.StringVar(&f.thenSort, "then-sort", "", "after loading, switch sort order and reload from the first page")
	fl.DurationVar(&f.minLoading, "min-loading", -1, "minimum visible loading time (0 = list default, <0 = none)")
	fl.BoolVar(&f.stats, "stats", false, "print fetch counters by mode and outcome")
}

func (f *listFlags) filter() (models.Filter, error) {
	sortBy, err := models.ParseSortBy(f.sort)
	if err != nil {
		return models.Filter{}, err
	}

	period, err := models.ParsePeriod(f.period)
	if err != nil {
		return models.Filter{}, err
	}

	return models.Filter{
		Period:   period,
		SortBy:   sortBy,
		Category: f.category,
		VIPOnly:  f.vipOnly,
	}, nil
}

func (f *listFlags) dataSource(g *globalFlags, list models.List, lg *slog.Logger, opts ...source.Option) (source.Source, error) {
	switch f.source {
	case SourceMock:
		return source.NewMockSource(mock.New(mock.Options{Seed: f.seed}), list), nil
	case SourceRemote:
		cl, err := client.New(client.Config{BaseURL: g.apiURL, Logger: lg})
		if err != nil {
			return nil, err
		}
		return source.NewRemoteSource(cl, list, opts...), nil
	default:
		return nil, fmt.Errorf("--source must be %q or %q", SourceRemote, SourceMock)
	}
}

// printState печатает итог загрузки. Ошибка загрузки возвращается наружу,
// чтобы команда завершилась с ненулевым кодом.
func printState(w io.Writer, st pager.State[models.Item]) error {
	if msg := st.ErrorMessage(); msg != "" {
		fmt.Fprintf(w, "error: %s\n", msg)
		return st.Err
	}

	fmt.Fprintf(w, "page %d: %d of %d items\n", st.Page, len(st.Items), st.Total)
	for i, it := range st.Items {
		fmt.Fprintf(w, "%4d. %-10s %-40s %.1f\n", i+1, it.Kind, it.Title, it.Rating)
	}
	if st.HasMore() {
		fmt.Fprintln(w, "more available")
	}

	return nil
}

// printStats печатает счётчики загрузок контроллера из реестра метрик.
func printStats(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}

	for _, mf := range families {
		if mf.GetName() != "catalog_pager_fetches_total" {
			continue
		}
		for _, mt := range mf.GetMetric() {
			fmt.Fprintf(w, "fetches %s = %.0f\n", labelString(mt.GetLabel()), mt.GetCounter().GetValue())
		}
	}

	return nil
}

func labelString(labels []*promdto.LabelPair) string {
	var out string
	for i, l := range labels {
		if i > 0 {
			out += ","
		}
		out += l.GetName() + "=" + l.GetValue()
	}
	return out
}
