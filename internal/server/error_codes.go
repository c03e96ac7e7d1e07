package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument  = 1000
	ErrCodeInvalidMultipart = 1001
	ErrCodeRequestTooLarge  = 1002
	ErrCodeInvalidQuery     = 1003
	ErrCodeInvalidKey       = 1004
	ErrCodeMissingFilename  = 1005
	ErrCodeMissingRequired  = 1006

	// Domain state (2xxx)
	ErrCodeFileNotFound = 2001
	ErrCodeBlobMissing  = 2002

	// Internal/system (4xxx)
	ErrCodeInternal          = 4001
	ErrCodeStoreFailure      = 4002
	ErrCodeStorageFailure    = 4003
	ErrCodeKeySpaceExhausted = 4004
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 404:
		return ErrCodeFileNotFound
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
