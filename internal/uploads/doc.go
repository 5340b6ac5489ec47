// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

// Package uploads tracks upload lifecycles in a durable BadgerDB ledger.
//
// Every upload gets one ledger entry, rewritten on each state transition
// and finished with the pipeline's final counts. Entries expire after the
// configured retention, so the ledger doubles as queryable upload history
// without unbounded growth.
//
// # Idempotent replay
//
// Completed uploads are indexed by (owner, FNV-64a content hash). When the
// same owner uploads byte-identical content again, the handler finds the
// earlier entry and replays its stored summary instead of ingesting the
// file a second time:
//
//	hash := uploads.NewHashingReader(body)   // hash while spooling
//	...
//	if prev, err := tracker.FindDuplicate(ctx, owner, hash.Sum()); err == nil {
//	    return prev.ResultFor("Duplicate upload", true)
//	}
//
// # Crash recovery
//
// A process that dies mid-upload leaves its entry in a non-terminal state.
// MarkInterrupted runs once at startup and fails every such entry, so the
// ledger never reports a phantom in-flight upload.
//
// # Components
//
//   - Ledger: BadgerDB storage, hash index, retention TTL, value-log GC
//   - Tracker: state machine driver; implements the pipeline's observer
//   - GCService: supervised loop running value-log GC on an interval
package uploads
