package geotree

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// 文档注释：英文排序规则
// 背景：各级子节点按英文 locale 排序，而非字节序（例如 "chamkar Mon" 应排在 "Tuol Kouk" 之前）。
// 约束：collate.Collator 内部带缓冲，不可并发使用；每次排序各自新建。
func newCollator() *collate.Collator { return collate.New(language.English) }

func sortStrings(names []string) {
	col := newCollator()
	sort.SliceStable(names, func(i, j int) bool { return col.CompareString(names[i], names[j]) < 0 })
}

// sortByName：稳定排序，名称相同的记录保持输入顺序
func sortByName[T any](items []T, name func(T) string) {
	col := newCollator()
	sort.SliceStable(items, func(i, j int) bool { return col.CompareString(name(items[i]), name(items[j])) < 0 })
}

// Less：英文排序规则下 a 是否排在 b 之前
func Less(a, b string) bool { return newCollator().CompareString(a, b) < 0 }

// 文档注释：按英文排序规则重排整棵树并重建名称索引
// 背景：产物文件可能被手工编辑或来自旧版本，读回后统一排序，保证各级选项有序。
func (t *Tree) Sort() {
	sortByName(t.Provinces, func(p *Province) string { return p.NameEN })
	t.idx = make(map[string]int, len(t.Provinces))
	for i, p := range t.Provinces {
		t.idx[p.NameEN] = i
		sortByName(p.Districts, func(d *District) string { return d.NameEN })
		p.idx = make(map[string]int, len(p.Districts))
		for j, d := range p.Districts {
			p.idx[d.NameEN] = j
			sortByName(d.Communes, func(c *Commune) string { return c.NameEN })
			d.idx = make(map[string]int, len(d.Communes))
			for k, c := range d.Communes {
				d.idx[c.NameEN] = k
				sortStrings(c.Villages)
			}
		}
	}
}
