package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
)

// Generates a random secret suitable for webhook signing.
func main() {
	size := flag.Int("size", 32, "Secret size in bytes")
	flag.Parse()

	buf := make([]byte, *size)
	if _, err := rand.Read(buf); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("SECRET=%s\n", hex.EncodeToString(buf))
}
