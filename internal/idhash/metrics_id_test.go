package idhash

import (
	"testing"
)

func TestComputeMetricsID(t *testing.T) {
	tests := []struct {
		name      string
		clientID  string
		vault     string
		signature string
		wantLen   int // hash length should be 64
	}{
		{
			name:      "basic swap",
			clientID:  "client-1",
			vault:     "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
			signature: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
			wantLen:   64,
		},
		{
			name:      "empty vault",
			clientID:  "client-2",
			vault:     "",
			signature: "2nBhEBYYvfaAe16UMNqRHre4YNSskvuYgx3M6E4JP1oDYvZEJHvoPzyUidNgNX5r9sTyN1J9UxtbCXy2rqYcuyuv",
			wantLen:   64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeMetricsID(tt.clientID, tt.vault, tt.signature)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeMetricsID() length = %d, want %d", len(got), tt.wantLen)
			}

			got2 := ComputeMetricsID(tt.clientID, tt.vault, tt.signature)
			if got != got2 {
				t.Errorf("ComputeMetricsID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeMetricsID_Uniqueness(t *testing.T) {
	base := ComputeMetricsID("client-1", "vault", "sig")

	variants := []string{
		ComputeMetricsID("client-2", "vault", "sig"),
		ComputeMetricsID("client-1", "vault2", "sig"),
		ComputeMetricsID("client-1", "vault", "sig2"),
		ComputeMetricsID("client-1|vault", "", "sig"),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collides with base id %s", i, base)
		}
	}
}
