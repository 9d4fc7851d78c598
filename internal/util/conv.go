package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// ParamUint reads a positive integer path parameter. ok is false when it is missing or malformed.
func ParamUint(c *gin.Context, name string) (uint, bool) {
	id := MustParseUint(c.Param(name))
	return id, id > 0
}
