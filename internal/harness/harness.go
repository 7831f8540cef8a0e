package harness

import (
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/roach88/facetview/internal/engine"
	"github.com/roach88/facetview/internal/query"
	"github.com/roach88/facetview/internal/record"
	"github.com/roach88/facetview/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Setup problems (bad schema, records that do not fit it, an unknown
// locale) are returned as errors. Everything the scenario checks, including
// an expected query error, is reported through Result.
//
// Execution flow:
//  1. Build schema and records, inferring the schema if none is declared
//  2. Parse the query expressions against the schema
//  3. Run the pipeline on a dataset with a fixed version
//  4. Check every expectation
func Run(scenario *Scenario) (*Result, error) {
	schema, err := scenario.BuildSchema()
	if err != nil {
		return nil, err
	}
	records, err := scenario.BuildRecords(schema)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		schema = record.InferSchema(records)
	}

	locale := language.English
	if scenario.Locale != "" {
		if locale, err = language.Parse(scenario.Locale); err != nil {
			return nil, fmt.Errorf("locale %q: %w", scenario.Locale, err)
		}
	}

	result := NewResult(scenario.Name)
	expect := scenario.Expect

	q, err := scenario.Query.Build(schema)
	if err == nil {
		// Caching is pointless for a single run.
		eng := engine.New(
			engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			engine.WithLocale(locale),
			engine.WithCacheSize(0),
		)
		version := testutil.NewFixedVersionGenerator("scenario:" + scenario.Name)
		ds := engine.NewDataset(schema, records, version)
		result.Output, err = eng.Run(ds, q)
	}

	if err != nil {
		result.QueryError = err
		if expect.Error == "" {
			result.AddError(fmt.Sprintf("query failed: %s", query.Summary(err)))
		} else if aerr := assertError(err, expect.Error); aerr != nil {
			result.AddError(aerr.Error())
		}
		return result, nil
	}
	if expect.Error != "" {
		result.AddError((&AssertionError{
			Type:     "error",
			Expected: expect.Error,
			Actual:   "query succeeded",
		}).Error())
		return result, nil
	}

	for _, check := range checks(expect) {
		if aerr := check(result.Output); aerr != nil {
			result.AddError(aerr.Error())
		}
	}
	return result, nil
}
