// Command genkey provides a CLI utility for API key management.
//
// It supports the following operations:
//   - hash: Hash an API key entered at the prompt
//   - generate: Generate a random API key and its hash
//
// Usage:
//
//	genkey <command>
//
// Commands:
//
//	hash      Prompt for an API key (twice) and print its bcrypt hash.
//	          Set the hash as API_KEY_HASH on the server; clients send
//	          the plain key as a bearer token.
//
//	generate  Generate a random API key, print both the key and its
//	          bcrypt hash. The key is shown exactly once.
//
// Notes:
//
// The server never stores the plain key. Losing it means generating a
// new one and updating API_KEY_HASH.
package main
