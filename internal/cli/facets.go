package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/facetview/internal/compiler"
	"github.com/roach88/facetview/internal/engine"
	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
)

// FacetsOptions holds flags for the facets command.
type FacetsOptions struct {
	*RootOptions
	Source SourceOptions

	Field  string
	Search string
	Where  []string
}

// FacetsOutput is the JSON payload of the facets command.
type FacetsOutput struct {
	Field   string         `json:"field"`
	Matched int            `json:"matched"`
	Facets  []engine.Facet `json:"facets"`
}

// NewFacetsCommand creates the facets command.
func NewFacetsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FacetsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "facets",
		Short: "Count records per distinct value of a field",
		Long: `Print the distinct values of a field with their record counts, in the
order each value is first seen. Records without the field are counted
as (missing).

A view's search and clauses, --search and --where narrow the records
first, so counts match what the query command would return. Sort, group,
aggregates and limit do not apply.

Examples:
  facetview facets --data leads.json --field stage
  facetview facets --db crm.db --table leads --field region --where "hot == true"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFacets(opts, cmd)
		},
	}

	opts.Source.bind(cmd)
	cmd.Flags().StringVar(&opts.Field, "field", "", "field to count values of (required)")
	cmd.Flags().StringVar(&opts.Search, "search", "", "case-insensitive free-text search")
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "filter clause (repeatable)")

	return cmd
}

func runFacets(opts *FacetsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Field == "" {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "--field is required", nil, nil)
	}

	data, err := opts.Source.load(cmd.Context(), formatter, opts.build)
	if err != nil {
		return err
	}

	matched := engine.Filter(data.Collection.Records, data.Query.Clauses, data.Query.Search)
	out := FacetsOutput{
		Field:   opts.Field,
		Matched: len(matched),
		Facets:  engine.FacetCounts(matched, opts.Field),
	}
	if out.Facets == nil {
		out.Facets = []engine.Facet{}
	}

	if formatter.JSON() {
		return formatter.Success(out)
	}
	writeFacetsText(formatter.Writer, out)
	return nil
}

// build keeps only the filtering part of the view's query and checks that
// the facet field is a scalar field of the schema.
func (o *FacetsOptions) build(schema *record.Schema, view *compiler.View) (query.Query, error) {
	var q query.Query
	if view != nil {
		q.Search = view.Query.Search
		q.Clauses = append(q.Clauses, view.Query.Clauses...)
	}
	if o.Search != "" {
		q.Search.Text = o.Search
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
	// Facet counting buckets values exactly like grouping does.
	if _, err := query.ParseGroup(schema, o.Field); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return query.Query{}, err
	}

	if err := query.Validate(schema, q); err != nil {
		return query.Query{}, err
	}
	return q, nil
}

func writeFacetsText(w io.Writer, out FacetsOutput) {
	fmt.Fprintf(w, "%s (%d records)\n", out.Field, out.Matched)
	for _, f := range out.Facets {
		fmt.Fprintf(w, "  %s: %d\n", groupLabel(f.Key, f.Missing), f.Count)
	}
}
