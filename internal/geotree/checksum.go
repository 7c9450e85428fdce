package geotree

import (
	"crypto/sha256"
	"encoding/hex"

	"addr-geo/internal/geodata"
)

// 文档注释：内容校验和
// 背景：名称树产物与四份平铺文本共同决定对外返回的选项与标签；快照去重与跨进程共享的缓存键都以此区分数据版本。
// 约束：按 Kinds 固定顺序拼接，各段以 0 字节分隔；同一内容在任何进程中得到相同结果。
func Checksum(tree []byte, files map[geodata.Kind][]byte) string {
	h := sha256.New()
	h.Write(tree)
	for _, k := range geodata.Kinds {
		h.Write([]byte{0})
		h.Write(files[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}
