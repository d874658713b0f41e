// Package store provides durable storage for daily city weather
// observations, backed by SQLite.
//
// The store exposes a small bounded-read surface: compiled parameterized
// SELECTs (internal/querysql) for observation rows, plus fixed reads for
// the dataset overview and per-city date coverage. All reads carry a
// deterministic ORDER BY so repeating an identical query against an
// unchanged database yields identical output.
//
// Writes exist only for ingestion: ReplaceRange swaps out a city's rows
// for a date range in one transaction.
package store
