// Package core provides the business logic for ticket import runs.
//
// This package contains all domain logic independent of storage and
// transport. Callers supply a [ChunkWriter] and a [RunRepository]; the
// Postgres implementations live in the store package.
//
// # Architecture
//
//   - [Parser]: turns delimited lines into [Record] values, lazily.
//   - [Transformer]: validates a record, stamps its import time and
//     derives the admin fee from a [FeeSchedule].
//   - [ImportStep]: streams every input file through parser and
//     transformer and commits fixed-size [Chunk] values one at a time.
//   - [ArchiveStep]: moves the source files to the archive directory.
//   - [Orchestrator]: runs import then archive and records the run state.
//
// # Run Lifecycle
//
//	NOT_STARTED -> IMPORT_RUNNING -> IMPORT_OK -> ARCHIVE_RUNNING -> ARCHIVE_OK -> JOB_SUCCEEDED
//	IMPORT_RUNNING -> IMPORT_FAILED -> JOB_FAILED
//	ARCHIVE_RUNNING -> ARCHIVE_FAILED -> JOB_FAILED
//
// Archiving only starts after every chunk is committed. A chunk is the unit
// of atomicity: chunks committed before a failure stay committed, the
// failing chunk is rolled back, and the source files stay in place.
//
// # Error Handling
//
// Step failures are typed: [ParseError], [ValidationError],
// [PersistenceError] and [ArchivalError]. [Phase] maps an error to the
// failed phase and [MapError] maps it to an operator message with a code.
package core
