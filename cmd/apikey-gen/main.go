package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/onetop21/mcp-server-hub-sub003/internal/domain/entities"
	"github.com/onetop21/mcp-server-hub-sub003/pkg/crypto"
)

// Generates a raw API key plus the hash the database stores. Useful for
// seeding environments by hand without going through the HTTP API.
func main() {
	byteLen := flag.Int("bytes", 32, "random bytes of key material")
	flag.Parse()

	rawKey, keyHash, err := buildKey(*byteLen)
	if err != nil {
		log.Fatalf("failed to generate api key: %v", err)
	}

	fmt.Println("Generated API key (store only the hash)")
	fmt.Printf("API_KEY=%s\n", rawKey)
	fmt.Printf("KEY_HASH=%s\n", keyHash)
}

func buildKey(byteLen int) (rawKey, keyHash string, err error) {
	if byteLen <= 0 {
		return "", "", fmt.Errorf("invalid bytes: %d (must be positive)", byteLen)
	}
	material, err := crypto.GenerateRandomHex(byteLen)
	if err != nil {
		return "", "", err
	}
	rawKey = entities.KeyPrefix + material
	return rawKey, crypto.SHA256Hex([]byte(rawKey)), nil
}
