// Package extract holds the five per-source extractors. Each one walks a
// located table (or a fetched JSON document) and produces partial OPO
// records keyed by DSA code. All of them tolerate missing tables: a table
// the locator cannot find means "this enrichment is unavailable for this
// publication cycle", logged as a warning and returned as an empty result,
// never as an error.
package extract
