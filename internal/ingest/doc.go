// Package ingest parses uploaded files into flat datasets.
//
// Supported formats are CSV, TXT (tab or comma separated, sniffed from the
// header line), JSON, XML, SVG (stored as a single metadata row) and XLSX.
// Every parser returns rows whose cells are untyped text; classification
// happens afterwards in dataprocessing.
//
//	reg := ingest.NewRegistry(logger)
//	ds, err := reg.ParseFile(ctx, "sales.csv")
package ingest
