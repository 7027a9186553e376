// Command syncworker runs the ingestion control plane: the inbound HTTP
// surface (collection refresh, source connection lifecycle, job
// listing) and the job-polling sync worker, in one process.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/airweave-ai/ingestion-core/internal/bootstrap"
)

func main() {
	ctx := context.Background()

	service, err := bootstrap.NewService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize syncworker: %v\n", err)
		os.Exit(1)
	}

	service.Run()
}
