package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/tjfontaine/sui-agent/internal/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/keygen <api-key> | seal")
		fmt.Println("  <api-key>  print the SHA-256 hash of an API key for config.yaml")
		fmt.Println("  seal       print a fresh random seal secret and salt")
		os.Exit(1)
	}

	if os.Args[1] == "seal" {
		secret, err := random(32)
		if err != nil {
			fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
			os.Exit(1)
		}
		salt, err := random(16)
		if err != nil {
			fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Add these to your environment (never commit them):")
		fmt.Printf("SUIAGENT_SEAL__SECRET=%s\n", secret)
		fmt.Printf("SUIAGENT_SEAL__SALT=%s\n", salt)
		fmt.Println("\nChanging either value makes every stored contact unreadable.")
		return
	}

	apiKey := os.Args[1]
	keyHash := auth.HashAPIKey(apiKey)

	fmt.Printf("SHA-256 Hash: %s\n", keyHash)
	fmt.Println("\nAdd this to your config.yaml:")
	fmt.Printf("server:\n")
	fmt.Printf("  api_keys:\n")
	fmt.Printf("    - key_hash: \"%s\"\n", keyHash)
	fmt.Printf("      description: \"Generated key\"\n")
}

func random(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
