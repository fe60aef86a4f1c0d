package domain

// Well-known mints.
const (
	SOLMint  = "So11111111111111111111111111111111111111112"
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// Decimals of well-known mints.
const (
	SOLDecimals  = 9
	USDCDecimals = 6
	USDTDecimals = 6
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// IsUSDStable reports whether mint is a USD stablecoin valued at 1.
func IsUSDStable(mint string) bool {
	return mint == USDCMint || mint == USDTMint
}

// KnownDecimals returns decimals for well-known mints.
func KnownDecimals(mint string) (int, bool) {
	switch mint {
	case SOLMint:
		return SOLDecimals, true
	case USDCMint:
		return USDCDecimals, true
	case USDTMint:
		return USDTDecimals, true
	}
	return 0, false
}
