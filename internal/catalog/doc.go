// Package catalog keeps a SQLite ledger of every dynamics epoch-file write.
//
// Each dynamics.Writer.Log call with a Catalog registered as its Recorder
// appends one row: which file was written, how many records were added, the
// resulting record count and the SHA-256 of the full file content. The ledger
// is append-only; rows are never updated.
//
// # Ordering
//
// All queries order by seq ASC, id ASC COLLATE BINARY. seq is an
// autoincrement column, so list order is write order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Schema upgrades are tracked with PRAGMA user_version.
package catalog
