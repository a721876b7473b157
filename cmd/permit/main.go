// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], systemEnvironment())
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit code: 0 on
// success, 2 for usage errors, 1 for everything else.
func run(ctx context.Context, args []string, env environment) int {
	if err := newApp(env).root().Execute(ctx, args); err != nil {
		fmt.Fprintf(env.stderr, "error: %v\n", err)
		if isUsageError(err) {
			return 2
		}
		return 1
	}
	return 0
}
