package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/roach88/facetview/internal/compiler"
	"github.com/roach88/facetview/internal/engine"
	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Source SourceOptions

	Search       string
	SearchFields []string
	Where        []string
	Sort         string
	Group        string
	Aggregates   []string
	Limit        int
	Locale       string
	CacheSize    int

	limitSet bool
}

// QueryOutput is the JSON payload of the query command.
type QueryOutput struct {
	View   string         `json:"view,omitempty"`
	Pushed int            `json:"pushed,omitempty"`
	Result *engine.Result `json:"result"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter, sort, group and aggregate records",
		Long: `Run the faceted view pipeline over a record collection.

Records are read from a JSON/YAML file (--data) or a SQLite table
(--db, --table). A CUE view (--view, --name) supplies the schema and a base
query; the remaining flags override or extend it.

Clause expressions (--where, repeatable, all must hold):
  field == value     field != value     field ~ text
  field > value      field < value
  field between lo..hi                  field in a|b|c

Aggregate expressions (--agg, repeatable):
  total=sum(amount)  avg=average(amount,2)  n=count()  with_owner=count(owner)
  low=min(score)     high=max(score)        conversion=rate(wins,total,1)

Exit codes:
  0 - Query ran
  1 - Query or view rejected by validation
  2 - Command error (bad flags, missing files, unreadable data)

Examples:
  facetview query --data leads.json --where "stage != lost" --sort score:desc
  facetview query --data leads.yaml --group stage --agg "conversion=rate(wins,total)"
  facetview query --db crm.db --table leads --pushdown --where "region in west|north"
  facetview query --data leads.json --view views/ --name pipeline --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.limitSet = cmd.Flags().Changed("limit")
			return runQuery(opts, cmd)
		},
	}

	opts.Source.bind(cmd)
	cmd.Flags().StringVar(&opts.Search, "search", "", "case-insensitive free-text search")
	cmd.Flags().StringSliceVar(&opts.SearchFields, "search-field", nil, "field to search (repeatable, default: all string fields)")
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "filter clause (repeatable)")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort field[:asc|desc]")
	cmd.Flags().StringVar(&opts.Group, "group", "", "group by field")
	cmd.Flags().StringArrayVar(&opts.Aggregates, "agg", nil, "aggregate name=kind(args) (repeatable)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum records to print (0 = all)")
	cmd.Flags().StringVar(&opts.Locale, "locale", "en", "BCP 47 locale for string sorting")
	cmd.Flags().IntVar(&opts.CacheSize, "cache-size", engine.DefaultCacheSize, "memoized results to keep (0 disables)")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	locale, err := language.Parse(opts.Locale)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, fmt.Sprintf("invalid --locale %q", opts.Locale), err, nil)
	}

	data, err := opts.Source.load(cmd.Context(), formatter, opts.build)
	if err != nil {
		return err
	}

	eng := engine.New(
		engine.WithLogger(slog.Default()),
		engine.WithLocale(locale),
		engine.WithCacheSize(opts.CacheSize),
	)
	ds := engine.NewDataset(data.Collection.Schema, data.Collection.Records, engine.UUIDv7Generator{})
	formatter.VerboseLog("Dataset %s: %d records", ds.Version, ds.Len())

	res, err := eng.Run(ds, data.Query)
	if err != nil {
		return queryFailure(formatter, err)
	}

	out := QueryOutput{Result: res, Pushed: len(data.Collection.Pushed)}
	if data.View != nil {
		out.View = data.View.Name
	}
	if formatter.JSON() {
		return formatter.Success(out)
	}
	writeQueryText(formatter.Writer, data.Collection.Schema, data.Query, out)
	return nil
}

// build starts from the view's query, if any, and applies the flags:
// search text, search fields, sort, group and limit replace; clauses and
// aggregates are appended.
func (o *QueryOptions) build(schema *record.Schema, view *compiler.View) (query.Query, error) {
	var q query.Query
	if view != nil {
		q = view.Query
		q.Clauses = slices.Clone(q.Clauses)
		q.Aggregates = slices.Clone(q.Aggregates)
	}

	if o.Search != "" {
		q.Search.Text = o.Search
	}
	if len(o.SearchFields) > 0 {
		q.Search.Fields = o.SearchFields
	}
	if o.limitSet {
		q.Limit = o.Limit
	}

	var errs []error
	for _, expr := range o.Where {
		c, err := query.ParseClause(schema, expr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		q.Clauses = append(q.Clauses, c)
	}
	if o.Sort != "" {
		s, err := query.ParseSort(schema, o.Sort)
		if err != nil {
			errs = append(errs, err)
		}
		q.Sort = s
	}
	if o.Group != "" {
		g, err := query.ParseGroup(schema, o.Group)
		if err != nil {
			errs = append(errs, err)
		}
		q.Group = g
	}
	for _, expr := range o.Aggregates {
		a, err := query.ParseAggregate(schema, expr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		q.Aggregates = append(q.Aggregates, a)
	}
	if err := errors.Join(errs...); err != nil {
		return query.Query{}, err
	}

	if err := query.Validate(schema, q); err != nil {
		return query.Query{}, err
	}
	return q, nil
}

// writeQueryText prints one line per record, then groups and totals.
func writeQueryText(w io.Writer, schema *record.Schema, q query.Query, out QueryOutput) {
	res := out.Result
	if out.View != "" {
		fmt.Fprintf(w, "view %s\n", out.View)
	}
	fmt.Fprintf(w, "%d of %d records matched\n", res.Matched, res.Total)

	names := schema.Names()
	for _, r := range res.Records {
		fmt.Fprintln(w, formatRecord(r, names))
	}
	if len(res.Records) < res.Matched {
		fmt.Fprintf(w, "(showing %d of %d)\n", len(res.Records), res.Matched)
	}

	if res.Groups != nil {
		fmt.Fprintf(w, "\ngroups by %s:\n", q.Group.Field)
		for _, g := range res.Groups {
			line := fmt.Sprintf("  %s (%d)", groupLabel(g.Key, g.Missing), g.Count())
			if m := formatMetrics(g.Metrics, q.Aggregates); m != "" {
				line += "  " + m
			}
			fmt.Fprintln(w, line)
		}
	}
	if len(q.Aggregates) > 0 {
		fmt.Fprintf(w, "\ntotals: %s\n", formatMetrics(res.Totals, q.Aggregates))
	}
}

// formatRecord renders present fields as key=value in schema order,
// falling back to the record's own keys when there is no schema.
func formatRecord(r record.Record, names []string) string {
	if len(names) == 0 {
		names = r.SortedKeys()
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		v, ok := r.Get(name)
		if !ok {
			continue
		}
		if _, isNull := v.(record.Null); isNull {
			continue
		}
		parts = append(parts, name+"="+formatValue(v))
	}
	return strings.Join(parts, "  ")
}

func formatValue(v record.Value) string {
	if record.IsScalar(v) {
		return record.Text(v)
	}
	data, err := record.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// formatMetrics renders metrics in aggregate declaration order.
func formatMetrics(metrics map[string]engine.Metric, aggs []query.Aggregate) string {
	parts := make([]string, 0, len(aggs))
	for _, a := range aggs {
		if m, ok := metrics[a.Name]; ok {
			parts = append(parts, a.Name+"="+m.String())
		}
	}
	return strings.Join(parts, "  ")
}

func groupLabel(key string, missing bool) string {
	switch {
	case missing:
		return "(missing)"
	case key == "":
		return `""`
	default:
		return key
	}
}
