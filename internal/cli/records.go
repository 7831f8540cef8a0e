package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/facetview/internal/compiler"
	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
	"github.com/roach88/facetview/internal/source"
)

// SourceOptions selects where records come from and which view, if any,
// supplies the schema and base query.
type SourceOptions struct {
	Data     string // JSON or YAML record file
	DB       string // SQLite database file
	Table    string // table to read from DB
	ViewPath string // CUE file or directory
	ViewName string // view to use from ViewPath
	Pushdown bool   // push eligible clauses into SQLite
}

func (o *SourceOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Data, "data", "", "JSON or YAML record file")
	cmd.Flags().StringVar(&o.DB, "db", "", "SQLite database file")
	cmd.Flags().StringVar(&o.Table, "table", "", "table to read with --db")
	cmd.Flags().StringVar(&o.ViewPath, "view", "", "CUE view file or directory")
	cmd.Flags().StringVar(&o.ViewName, "name", "", "view name (optional when the file defines one view)")
	cmd.Flags().BoolVar(&o.Pushdown, "pushdown", false, "let SQLite pre-filter rows with eligible clauses")
}

// buildQuery derives the query to run from the record schema and the
// selected view (nil without --view).
type buildQuery func(schema *record.Schema, view *compiler.View) (query.Query, error)

// loaded is everything a command needs to run the pipeline.
type loaded struct {
	View       *compiler.View
	Collection *source.Collection
	Query      query.Query
}

// checkFlags rejects conflicting source flags before anything is read.
func (o *SourceOptions) checkFlags() error {
	switch {
	case o.Data == "" && o.DB == "":
		return errors.New("one of --data or --db is required")
	case o.Data != "" && o.DB != "":
		return errors.New("--data and --db are mutually exclusive")
	case o.DB != "" && o.Table == "":
		return errors.New("--table is required with --db")
	case o.DB == "" && o.Table != "":
		return errors.New("--table requires --db")
	case o.DB == "" && o.Pushdown:
		return errors.New("--pushdown requires --db")
	case o.ViewName != "" && o.ViewPath == "":
		return errors.New("--name requires --view")
	}
	return nil
}

// load resolves the view, reads the records and builds the query. Errors
// are reported through f and returned as ExitErrors.
func (o *SourceOptions) load(ctx context.Context, f *OutputFormatter, build buildQuery) (*loaded, error) {
	if err := o.checkFlags(); err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeUsage, err.Error(), nil, nil)
	}

	out := &loaded{}
	var schema *record.Schema
	if o.ViewPath != "" {
		view, err := o.resolveView(f)
		if err != nil {
			return nil, err
		}
		out.View = view
		schema = view.Schema
		f.VerboseLog("Using view %s (%d fields)", view.Name, view.Schema.Len())
	}

	if o.DB != "" {
		return o.loadTable(ctx, f, out, schema, build)
	}

	coll, err := source.LoadFile(o.Data, schema)
	if err != nil {
		return nil, loadFailure(f, o.Data, err)
	}
	slog.Debug("records loaded", "path", o.Data, "records", len(coll.Records), "fields", coll.Schema.Len())
	out.Collection = coll

	if out.Query, err = build(coll.Schema, out.View); err != nil {
		return nil, queryFailure(f, err)
	}
	return out, nil
}

// loadTable builds the query before reading rows so eligible clauses can
// be pushed into SQLite.
func (o *SourceOptions) loadTable(ctx context.Context, f *OutputFormatter, out *loaded, schema *record.Schema, build buildQuery) (*loaded, error) {
	db, err := source.Open(o.DB)
	if err != nil {
		return nil, loadFailure(f, o.DB, err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if schema == nil {
		if schema, err = db.Schema(ctx, o.Table); err != nil {
			return nil, loadFailure(f, o.DB, err)
		}
	}
	if out.Query, err = build(schema, out.View); err != nil {
		return nil, queryFailure(f, err)
	}

	coll, err := db.Load(ctx, source.LoadRequest{
		Table:    o.Table,
		Schema:   schema,
		Clauses:  out.Query.Clauses,
		Pushdown: o.Pushdown,
	})
	if err != nil {
		return nil, loadFailure(f, o.DB, err)
	}
	slog.Debug("records loaded",
		"db", o.DB,
		"table", o.Table,
		"records", len(coll.Records),
		"pushed", len(coll.Pushed))
	out.Collection = coll
	return out, nil
}

func (o *SourceOptions) resolveView(f *OutputFormatter) (*compiler.View, error) {
	views, errs := compiler.LoadViews(o.ViewPath)
	if len(errs) > 0 {
		if errors.Is(errs[0], fs.ErrNotExist) {
			return nil, f.Fail(ExitCommandError, ErrCodeNotFound, "view path not found", errs[0], nil)
		}
		return nil, f.Fail(ExitFailure, ErrCodeViewInvalid,
			fmt.Sprintf("%s has %d invalid view(s)", o.ViewPath, len(errs)), errs[0], errorStrings(errs))
	}

	if o.ViewName == "" {
		if len(views) == 1 {
			return views[0], nil
		}
		return nil, f.Fail(ExitCommandError, ErrCodeUsage,
			fmt.Sprintf("--name is required: %s defines views %s", o.ViewPath, viewNames(views)), nil, nil)
	}
	view, ok := compiler.FindView(views, o.ViewName)
	if !ok {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("view %q not found (have %s)", o.ViewName, viewNames(views)), nil, nil)
	}
	return view, nil
}

func loadFailure(f *OutputFormatter, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("%s not found", path), nil, nil)
	}
	return f.Fail(ExitCommandError, ErrCodeLoad, "failed to load records", err, nil)
}

// queryFailure reports a rejected query with every validation problem
// listed in the details.
func queryFailure(f *OutputFormatter, err error) error {
	var details []string
	for _, qe := range query.Errors(err) {
		details = append(details, qe.Error())
	}
	if outErr := f.Error(ErrCodeQueryInvalid, "invalid query: "+query.Summary(err), details); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitFailure, "invalid query", err)
}

func viewNames(views []*compiler.View) string {
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.Name
	}
	return strings.Join(names, ", ")
}

func errorStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
