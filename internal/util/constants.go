package util

const (
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const MimePDF = "application/pdf"

var (
	AllowedReceiptExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".pdf"}
	AllowedReceiptMimeTypes  = []string{"image/jpeg", "image/png", "image/webp", MimePDF}
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// 账单金额上限（分）与明细数量限制，保证合计不超出 int64
const (
	MaxAmountCents  int64 = 1_000_000_000_000
	MaxItemQuantity       = 10000
	MaxBillItems          = 200
)
