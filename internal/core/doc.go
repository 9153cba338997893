// Package core is the billing service layer shared by the HTTP server and
// the billingctl command.
//
// # Records
//
// [Service] prices records with the billing package and stores them in a
// store.Repository. Hourly records are re-priced on update when their
// hours or rate change; count-based amounts are fixed at creation.
//
// # Imports
//
// [Service.Import] reads a CSV upload, validates its rows in parallel and
// creates the valid ones in file order. At most ImportConfig.MaxConcurrent
// imports run at once; the rest wait on an [ImportLimiter] and fail with
// [ErrTooManyImports] after ImportConfig.MaxWaitTime. Shutdown calls
// [Service.WaitForImports] so running imports finish.
//
// # Error Handling
//
// [MapError] turns technical errors into coded user messages:
//
//   - VAL: row and field validation
//   - IMP: unknown employees and projects
//   - REC: record operations
//   - FILE: file size and CSV structure
//   - UPL: import slots, cancellation, timeouts
//   - DB: storage
package core
