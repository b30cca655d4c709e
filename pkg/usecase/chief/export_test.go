package chief

var (
	IsTokenLimitError = isTokenLimitError
	CompressHistory   = compressHistory
)
