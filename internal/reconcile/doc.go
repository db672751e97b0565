// Package reconcile appends dividend-yield records to the DY ledger.
//
// A ledger holds one block of rows per historical snapshot. The newest
// block sits right below the header row and has exactly one row per fund
// of the master ticker list. Each run:
//
//  1. collects one Record per ticker into a RecordStore,
//  2. locates the active block (LocateBlock),
//  3. counts filled rows and unregistered tickers (CheckRegistration),
//  4. opens a new block above a full one (ExpandBlock),
//  5. writes every unregistered, fresh record into the next empty row (FillRows).
//
// Engine.Reconcile drives the sequence against a Ledger handle owned by
// the caller. Nothing here is safe for concurrent use against one ledger.
package reconcile
