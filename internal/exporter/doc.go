// Package exporter writes collected dividend records as CSV.
//
// Files are written with a UTF-8 BOM so spreadsheet applications pick
// the right encoding for accented headers.
package exporter
