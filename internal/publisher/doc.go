// Package publisher performs the external publishing action for one item.
//
// Adapters report one of three outcomes: success, transient failure (worth
// retrying), or permanent failure (retrying cannot help). The bundled
// CommandAdapter drives an external automation command and reads its JSON-line
// progress stream; Func adapts a plain function for wiring and tests.
package publisher
