package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:      "Required field is missing",
	CodeInvalidInput:       "Invalid input provided",
	CodeInvalidState:       "Invalid state for this operation",
	CodeNotFound:           "Resource not found",
	CodeConfigurationError: "Configuration error",

	CodeServiceTimeout:     "Service request timeout",
	CodeServiceUnavailable: "Service temporarily unavailable",
	CodeRateLimitExceeded:  "Rate limit exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	CodeInvalidAddress:  "Token address is not a valid 20-byte hex address",
	CodeInvalidAmount:   "Amount is not a valid positive decimal for the token",
	CodeInvalidSlippage: "Slippage must be between 0 and 10000 basis points",
	CodeInvalidDecimals: "Token decimals out of range",
	CodeIdenticalTokens: "Input and output tokens must differ",

	CodeVenueUnavailable:   "Venue did not return a quote",
	CodeNoLiquidity:        "No venue has liquidity for this pair",
	CodeArithmeticOverflow: "Amount exceeds the 256-bit range",
	CodeUnknownVenue:       "Venue is not registered",

	CodeLedgerConnectionFailed: "Failed to connect to ledger node",
	CodeContractCallFailed:     "Smart contract call failed",
	CodeABIEncodingFailed:      "Failed to encode contract call",
	CodeABIDecodingFailed:      "Failed to decode contract response",
	CodeTokenMetadataFailed:    "Failed to read token metadata",

	CodeCircuitOpen: "Circuit breaker is open",
}
