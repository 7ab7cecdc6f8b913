// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// API constants
const (
	// APIVersion is reported by the info endpoint
	APIVersion = "1.0.0"

	// APIPrefix is the route prefix of the HTTP API
	APIPrefix = "/api/v1"
)

// Recognition response constants
const (
	// ResponsePrecision is the number of decimals kept for distance and confidence
	ResponsePrecision = 4

	// DefaultSimilarLimit and MaxSimilarLimit bound the neighbors listed for a user
	DefaultSimilarLimit = 5
	MaxSimilarLimit     = 50

	// MethodEmbedding and MethodHistogram name the active strategy in responses
	MethodEmbedding = "embedding"
	MethodHistogram = "histogram"
)

// Recognition messages returned to clients
const (
	MsgNoFacesForRecognition = "No faces detected for recognition"
	MsgNoUsersRegistered     = "No users registered yet"
	MsgNoUsableEncodings     = "No face encodings could be extracted from registered users"
	MsgNoMatch               = "No matching user found"
	MsgUserRegistered        = "User registered successfully"
	MsgUserDeleted           = "User deleted successfully"
	MsgUserReencoded         = "Face encoding updated"
)

// File upload constants
const (
	// MaxUploadSize is the default maximum upload size in bytes (16MB)
	MaxUploadSize = 16 << 20

	// MultipartMemory is the part of a multipart form kept in memory
	MultipartMemory = 8 << 20
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for batch re-encoding
	WorkerPoolSize = 4

	// ShutdownTimeoutSeconds bounds graceful server shutdown
	ShutdownTimeoutSeconds = 30
)
