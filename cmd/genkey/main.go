package main

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const (
	// minKeyLength is the shortest API key accepted at the prompt.
	minKeyLength = 8
	// randomKeyBytes is the entropy of a generated key.
	randomKeyBytes = 32
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "hash":
		if !hashPrompted() {
			os.Exit(1)
		}
	case "generate":
		if !generateKey() {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage()
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for
// display. It uses an allowlist approach, replacing any character that
// is not alphanumeric, a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	out := []byte(cmd)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: genkey <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  hash      Prompt for an API key and print its bcrypt hash")
	fmt.Fprintln(os.Stderr, "  generate  Generate a random API key and print both key and hash")
}

func hashPrompted() bool {
	fmt.Print("API Key: ")
	key, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading key: %v\n", err)
		return false
	}

	fmt.Print("Confirm API Key: ")
	confirm, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading key: %v\n", err)
		return false
	}

	if !bytes.Equal(key, confirm) {
		fmt.Fprintln(os.Stderr, "Error: Keys do not match")
		return false
	}

	if len(key) < minKeyLength {
		fmt.Fprintf(os.Stderr, "Error: Key must be at least %d characters\n", minKeyLength)
		return false
	}

	hash, err := hashKey(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to hash key: %v\n", err)
		return false
	}

	fmt.Println()
	fmt.Printf("API_KEY_HASH=%s\n", hash)
	return true
}

func generateKey() bool {
	raw := make([]byte, randomKeyBytes)
	if _, err := rand.Read(raw); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to generate key: %v\n", err)
		return false
	}
	key := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := hashKey([]byte(key))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to hash key: %v\n", err)
		return false
	}

	fmt.Println("Store the key safely; it is shown only once.")
	fmt.Println()
	fmt.Printf("API key:      %s\n", key)
	fmt.Printf("API_KEY_HASH=%s\n", hash)
	return true
}

func hashKey(key []byte) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(key, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
