package config

const (
	// DefaultMaxUploadMB is the default cap on a single upload. Office
	// documents above this size are rare and slow LibreOffice to a crawl.
	DefaultMaxUploadMB = 50

	// MaxUploadMBLimit is the largest value MAX_UPLOAD_MB may be set to.
	MaxUploadMBLimit = 1024

	// MaxFilenameLength bounds the original filename kept in scratch paths.
	// Most filesystems reject names over 255 bytes; the request token and
	// separator take the rest.
	MaxFilenameLength = 200
)
