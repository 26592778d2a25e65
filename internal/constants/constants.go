// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// DefaultMatchThreshold is the maximum Euclidean distance (exclusive) at which a
	// probe is accepted as an enrolled identity. Lower values = stricter matching
	DefaultMatchThreshold = 0.4

	// NoFaceSubject is recorded as the event subject when a probe contains no face
	NoFaceSubject = "no face found"
)

// Processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) sent to the embedding service
	MaxImageSize = 1920

	// DefaultBootstrapWorkers is the number of parallel extractions while loading the gallery
	DefaultBootstrapWorkers = 4
)

// Storage constants
const (
	// DefaultKnownDir holds one reference photo per enrolled identity
	DefaultKnownDir = "known_pictures"

	// DefaultUploadDir holds every probe image received from the capture device
	DefaultUploadDir = "uploads"

	// DefaultDatabasePath is the SQLite file used when no DATABASE_URL is set
	DefaultDatabasePath = "instance/spyhole.db"

	// ProbeTimestampLayout formats event timestamps and probe filenames (YYYYmmdd_HHMMSS)
	ProbeTimestampLayout = "20060102_150405"

	// ProbeFilePrefix prefixes every stored probe image
	ProbeFilePrefix = "image_"
)

// Account constants
const (
	// MinUsernameLength is the minimum number of characters in a username
	MinUsernameLength = 2

	// MinPasswordLength is the minimum number of characters in a password
	MinPasswordLength = 4

	// DefaultRole is assigned when registration does not name one
	DefaultRole = "user"
)

// File upload constants
const (
	// MaxUploadSize is the maximum request body size in bytes (5MB)
	MaxUploadSize = 5 << 20
)
