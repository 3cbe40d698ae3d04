// Package cmd provides a transport-agnostic command core: a command is something
// with a name, description, and Run(ctx, invocation). How it is registered and
// dispatched (Discord slash, message prefix, CLI) is defined by adapters.
package cmd

import "context"

// Invocation carries what any command runner can pass: arguments and an
// opaque payload. Adapters set Data to their own context type.
type Invocation struct {
	Args []string
	Data any
}

// Command is the universal contract: identity plus execution.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}
