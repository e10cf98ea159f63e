package util

// 存储类型，对应配置 storage.type
const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeVideo       = "video/"
	MimeImage       = "image/"
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
)

const (
	MaxVideoSize      = 2 << 30  // 2GB
	MaxAttachmentSize = 50 << 20 // 50MB
)

var (
	AllowedVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".flv", ".webm"}
	AllowedAttachmentTypes = []string{MimePDF, MimeImage, "text/plain", "application/zip", "application/msword", MimeOctetStream}
)
