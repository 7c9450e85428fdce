package geodata

import (
	"errors"
	"strings"
)

// ErrShape：输入文件顶层结构不符合约定
var ErrShape = errors.New("geodata: unexpected top-level shape")

// 文档注释：顶层字段形状错误
// 背景：任一顶层数组缺失都会使整棵树失去意义，因此在写出前整体失败，并列出所有不合格字段。
type ShapeError struct {
	Fields []string
}

func (e *ShapeError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f+"[]")
	}
	return "one or more input files are missing the expected top-level arrays: " + strings.Join(parts, ", ")
}

func (e *ShapeError) Is(target error) bool { return target == ErrShape }
