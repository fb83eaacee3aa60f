package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pairwise-app/faceverify/internal/webhook"
)

// calc_webhook_signature.go - Utility to compute the signature a
// webhook receiver should expect for a given payload
//
// Usage:
//   go run scripts/calc_webhook_signature.go <secret> < payload.json
//
// Output:
//   sha256=adf716ab3ebb2a1138973de4a44fe454c05c0d070e897fc55220af74807b25ae

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/calc_webhook_signature.go <secret> < payload.json")
		os.Exit(1)
	}

	payload, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read payload: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %s\n", webhook.SignatureHeader, webhook.Sign(os.Args[1], payload))
}
