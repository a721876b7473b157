// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// command is a CLI command or subcommand.
type command struct {
	// Name is the command name as typed by the user.
	Name string

	// Summary is a one-line description shown in the parent's help listing.
	Summary string

	// Usage is the usage string (e.g., "permit sign <hash> [flags]").
	// If empty, it is synthesized from the command path.
	Usage string

	// Flags returns a configured *pflag.FlagSet for this command. Called
	// once per parse and once per help rendering. If nil, the command
	// accepts no flags.
	Flags func() *pflag.FlagSet

	// Subcommands are nested commands dispatched by the first positional arg.
	Subcommands []*command

	// Run executes the command with the remaining args (after flag parsing).
	Run func(ctx context.Context, args []string) error

	// Output receives help text. Inherited from the parent when nil.
	Output io.Writer

	parent *command
}

// usageError marks an invocation the user got wrong. main exits 2
// for these instead of 1.
type usageError struct {
	message string
}

func (e *usageError) Error() string { return e.message }

func usagef(format string, args ...any) error {
	return &usageError{message: fmt.Sprintf(format, args...)}
}

// isUsageError reports whether err is, or wraps, a usageError.
func isUsageError(err error) bool {
	var target *usageError
	return errors.As(err, &target)
}

// Execute parses args and dispatches to the matching subcommand or to
// Run.
func (c *command) Execute(ctx context.Context, args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(c.output())
		return nil
	}

	if len(c.Subcommands) > 0 {
		if len(args) == 0 {
			c.PrintHelp(c.output())
			return usagef("subcommand required")
		}
		if !strings.HasPrefix(args[0], "-") {
			for _, sub := range c.Subcommands {
				if sub.Name == args[0] {
					sub.parent = c
					return sub.Execute(ctx, args[1:])
				}
			}
			return usagef("unknown command %q\n\nRun '%s --help' for usage.", args[0], c.fullName())
		}
		if c.Run == nil {
			c.PrintHelp(c.output())
			return usagef("subcommand required (got flag %q)", args[0])
		}
	}

	if c.Flags != nil {
		flagSet := c.Flags()
		flagSet.SetOutput(io.Discard)
		if err := flagSet.Parse(args); err != nil {
			if errors.Is(err, pflag.ErrHelp) {
				c.PrintHelp(c.output())
				return nil
			}
			return usagef("%s\n\nRun '%s --help' for usage.", err, c.fullName())
		}
		args = flagSet.Args()
	}

	if c.Run == nil {
		c.PrintHelp(c.output())
		return usagef("no action defined for %q", c.fullName())
	}
	return c.Run(ctx, args)
}

// PrintHelp writes structured help output to w.
func (c *command) PrintHelp(w io.Writer) {
	name := c.fullName()

	if c.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}

	if c.Usage != "" {
		fmt.Fprintf(w, "Usage:\n  %s\n", c.Usage)
	} else if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", name)
	} else {
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", name)
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		tw.Flush()
	}

	if c.Flags != nil {
		var flagHelp strings.Builder
		flagSet := c.Flags()
		flagSet.SetOutput(&flagHelp)
		flagSet.PrintDefaults()
		if flagHelp.Len() > 0 {
			fmt.Fprintf(w, "\nFlags:\n%s", flagHelp.String())
		}
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", name)
	}
}

func (c *command) output() io.Writer {
	for current := c; current != nil; current = current.parent {
		if current.Output != nil {
			return current.Output
		}
	}
	return io.Discard
}

// fullName returns the complete command path (e.g., "permit sign").
func (c *command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}
