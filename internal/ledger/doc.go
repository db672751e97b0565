// Package ledger abstracts the spreadsheet that accumulates dividend-yield
// history. The reconciliation engine only talks to the Ledger interface;
// three backends implement it:
//
//   - SheetsLedger writes to Google Sheets through the Sheets v4 API.
//   - ExcelLedger edits a local .xlsx workbook.
//   - MemoryLedger keeps the grid in memory for tests and dry runs.
//
// All coordinates are 1-based, as they appear in the spreadsheet UI.
package ledger
