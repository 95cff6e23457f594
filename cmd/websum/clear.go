package main

import (
	"fmt"

	"github.com/websum/websum"
)

// Run executes the clear command.
func (c *ClearCmd) Run(deps *Dependencies) error {
	if err := deps.Checkpoints.Clear(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", websum.ErrorMessage(err))
		return err
	}
	if err := deps.Cache.Clear(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", websum.ErrorMessage(err))
		return err
	}
	fmt.Fprintln(deps.Stdout, "Cleared checkpoint and URL cache")
	return nil
}
