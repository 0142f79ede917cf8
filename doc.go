// Package docledger provides a composable workflow ledger engine for
// document-centric processes. It drives named flows — registration,
// external sharing, firm sharing, licensing, and data-co-op publishing —
// through ordered sequences of ledger events, each progressing through a
// pending → processing → completed lifecycle while observers receive
// live progress.
//
// Docledger is designed as a library, not a service. Import it, configure
// a store, and start flows as ordinary Go function calls.
//
// # Quick Start
//
//	l, err := docledger.New(docledger.WithStore(memory.New()))
//	if err != nil { ... }
//	eng, err := engine.Build(l,
//	    engine.WithDefaultLatency(latency.NewJittered(700*time.Millisecond, 900*time.Millisecond)),
//	)
//
// # Architecture
//
// Docledger follows a composable store pattern where each subsystem
// (workflow, sharing, session) defines its own store interface. A single
// backend implements all of them. The engine package wires subsystems
// together; lifecycle hooks in ext fan events out to extensions such as
// the stream broker, the toast notifier, and the sharing recorder.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package docledger
