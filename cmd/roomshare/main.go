// Package main is the entrypoint for the roomshare API. It serves the auth
// and user profile endpoints.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roomshare/roomshare-api/internal/server"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return server.Run(ctx, server.Params{
		Name:  "roomshare-api",
		Setup: setup,
	}, nil)
}
