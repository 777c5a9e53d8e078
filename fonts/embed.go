package fonts

import (
	"golang.org/x/image/font/gofont/goregular"
)

// FallbackName 是内置后备字体在日志与缓存中的名称。
const FallbackName = "go-regular"

// Fallback 返回内置后备字体（Go Regular）的字节数据，字体文件缺失或解析失败时使用。
func Fallback() []byte {
	return goregular.TTF
}
