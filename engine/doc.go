// Package engine wires all docledger subsystems together. It creates
// the extension registry, flow registry, driver, stream broker, toaster,
// sharing recorder, and metrics extension, and exposes typed operations
// for every document flow.
//
// This package exists to break the import cycle: the root docledger
// package defines Entity and Config (imported by workflow, sharing,
// session) and so cannot import those packages back. The engine package
// sits above all subsystem packages and below the application layer.
//
// Typical usage:
//
//	l, _ := docledger.New(docledger.WithStore(memory.New()))
//	eng, err := engine.Build(l)
//	if err != nil { ... }
//	h, err := eng.StartRegistration(ctx, flows.RegistrationParams{
//		Title:    "Deed of Trust",
//		FilePath: "/docs/deed.pdf",
//	})
//	<-h.Done()
//	out, _ := eng.ExportJSON(workflow.KindRegistration)
package engine
