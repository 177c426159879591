// Package reconcile keeps a record sink in step with a directory of source
// files.
//
// # Overview
//
// A Reconciler owns one source root. For every file event it reads the file,
// parses it with the transformer registered for its extension, validates the
// document into records, and diffs the result against the records the file
// produced last time:
//
//	source file ──► Registry.Resolve ──► Parse ──► record.Extract
//	                                                    │
//	                  Tracker (path → id → fingerprint) ◄┤
//	                                                    ▼
//	                                   Sink.Delete (stale ids)
//	                                   Sink.Create (new or changed ids)
//
// Deletes for ids that vanished are always emitted before creates. A record
// whose content and stored metadata are unchanged is not sent again.
//
// # Failures
//
// A file that cannot be read, parsed or validated produces no records: every
// record it produced earlier is withdrawn and a *Failure describes the
// problem. Files whose extension has no transformer are ignored. Failures
// never stop other files from being processed.
//
// When the sink rejects a write, the tracker keeps describing exactly what
// the sink accepted: a failed delete stays tracked and is retried on the
// next pass, a failed create is not tracked. The pass reports a SinkError.
//
// # Concurrency
//
// Passes over the same path are serialized through the tracker's path lock.
// Passes over different paths may run concurrently.
//
// # Usage
//
//	reg, _ := transform.ByName("json", "yaml")
//	rec, err := reconcile.New(store, reconcile.Options{
//	    Namespace: "translations",
//	    Kind:      record.KindTranslation,
//	    Root:      "./translations",
//	    Registry:  reg,
//	})
//	if err != nil {
//	    return err
//	}
//	summary, err := rec.FullSync(ctx)
package reconcile
