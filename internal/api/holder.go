package api

import (
	"sync/atomic"

	"addr-geo/internal/geotree"
	"addr-geo/internal/metrics"
	"addr-geo/internal/resolver"
)

type current struct {
	res     *resolver.Resolver
	tree    []byte
	gen     uint64
	version string
}

// 文档注释：可热替换的解析器持有者
// 背景：通过 atomic.Pointer 提供无锁读写切换（如重新加载产物或快照后替换），读路径不阻塞。
// 约束：每次 Set 代数加一，进程内缓存键携带代数；代数只在本进程内有意义，
// 跨进程共享的 Redis 缓存键改用 Version（内容校验和），多实例或重启后不会读到其他数据版本的结果。
type Holder struct {
	v   atomic.Pointer[current]
	gen atomic.Uint64
}

// Get：当前解析器与代数；未设置时返回 nil
func (h *Holder) Get() (*resolver.Resolver, uint64) {
	c := h.v.Load()
	if c == nil {
		return nil, 0
	}
	return c.res, c.gen
}

// TreeJSON：当前名称树产物文本
func (h *Holder) TreeJSON() []byte {
	c := h.v.Load()
	if c == nil {
		return nil
	}
	return c.tree
}

// Version：当前数据的内容校验和（名称树产物加平铺数据），与快照校验和一致；未设置时为空串
func (h *Holder) Version() string {
	c := h.v.Load()
	if c == nil {
		return ""
	}
	return c.version
}

// Set：替换当前解析器，同时预先编码名称树产物并计算内容校验和
func (h *Holder) Set(r *resolver.Resolver) error {
	b, err := geotree.Encode(r.Tree())
	if err != nil {
		return err
	}
	files, err := r.Dataset().Encode()
	if err != nil {
		return err
	}
	gen := h.gen.Add(1)
	h.v.Store(&current{res: r, tree: b, gen: gen, version: geotree.Checksum(b, files)})
	st := r.Tree().Stats()
	metrics.TreeNodes.WithLabelValues("province").Set(float64(st.Provinces))
	metrics.TreeNodes.WithLabelValues("district").Set(float64(st.Districts))
	metrics.TreeNodes.WithLabelValues("commune").Set(float64(st.Communes))
	metrics.TreeNodes.WithLabelValues("village").Set(float64(st.Villages))
	return nil
}
