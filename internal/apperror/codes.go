package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField      Code = "REQUIRED_FIELD"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Request validation
const (
	CodeInvalidAddress  Code = "INVALID_ADDRESS"
	CodeInvalidAmount   Code = "INVALID_AMOUNT"
	CodeInvalidSlippage Code = "INVALID_SLIPPAGE"
	CodeInvalidDecimals Code = "INVALID_DECIMALS"
	CodeIdenticalTokens Code = "IDENTICAL_TOKENS"
)

// Routing
const (
	CodeVenueUnavailable   Code = "VENUE_UNAVAILABLE"
	CodeNoLiquidity        Code = "NO_LIQUIDITY"
	CodeArithmeticOverflow Code = "ARITHMETIC_OVERFLOW"
	CodeUnknownVenue       Code = "UNKNOWN_VENUE"
)

// Ledger
const (
	CodeLedgerConnectionFailed Code = "LEDGER_CONNECTION_FAILED"
	CodeContractCallFailed     Code = "CONTRACT_CALL_FAILED"
	CodeABIEncodingFailed      Code = "ABI_ENCODING_FAILED"
	CodeABIDecodingFailed      Code = "ABI_DECODING_FAILED"
	CodeTokenMetadataFailed    Code = "TOKEN_METADATA_FAILED"

	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
