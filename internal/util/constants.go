package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeImage = "image/"
)

// Final quiz defaults used when a course's final quiz is created lazily.
const (
	DefaultFinalQuestionCount = 10
	DefaultFinalTitle         = "Final Quiz"
	DefaultFinalPassingScore  = 70
)

const (
	MaxQuestionImageBytes = 5 << 20
)
