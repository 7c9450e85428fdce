package api

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// 文档注释：进程内 LRU 响应缓存
// 背景：级联选择的选项请求高度重复（同一省的区列表），缓存序列化后的响应，减少重复编码与 Redis 往返。
// 约束：键由调用方构造并携带解析器代数；容量不大于 0 时不缓存；条目在 ttl 后过期。
type LRU struct {
	c *expirable.LRU[string, []byte]
}

func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		return &LRU{}
	}
	return &LRU{c: expirable.NewLRU[string, []byte](capacity, nil, ttl)}
}

func (l *LRU) Get(k string) ([]byte, bool) {
	if l.c == nil {
		return nil, false
	}
	return l.c.Get(k)
}

func (l *LRU) Set(k string, v []byte) {
	if l.c != nil {
		l.c.Add(k, v)
	}
}

func (l *LRU) Len() int {
	if l.c == nil {
		return 0
	}
	return l.c.Len()
}
