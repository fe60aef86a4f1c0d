package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeMetricsID computes a deterministic metrics_id using SHA256.
// Formula: SHA256(client_id|vault_pubkey|signature)
// Returns hex-encoded hash (64 characters).
func ComputeMetricsID(clientID, vault, signature string) string {
	data := fmt.Sprintf("%s|%s|%s", clientID, vault, signature)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
