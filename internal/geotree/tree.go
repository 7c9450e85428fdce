// 包 geotree：省→区→乡→村 名称树（GeoTree）的数据结构、拼接构建与产物读写
package geotree

import "addr-geo/internal/geodata"

// 文档注释：名称树
// 背景：UI 以英文名逐级取下一级选项；各级子节点保持有序（英文排序规则），并以名称索引支持 O(1) 查找。
// 约束：构建完成后只读，可被多个 goroutine 并发读取；从平铺数据构建时节点携带编码与高棉文名称，
// 从产物文件读回时二者为空（产物只保存英文名）。
type Tree struct {
	Provinces []*Province
	idx       map[string]int
}

type Province struct {
	Code      geodata.Code
	NameEN    string
	NameKM    string
	Districts []*District
	idx       map[string]int
}

type District struct {
	Code     geodata.Code
	NameEN   string
	NameKM   string
	Communes []*Commune
	idx      map[string]int
}

// Commune：叶子上一级；Villages 为排序后的村英文名，可能重复
type Commune struct {
	Code     geodata.Code
	NameEN   string
	NameKM   string
	Villages []string
}

func NewTree() *Tree { return &Tree{idx: map[string]int{}} }

// put：同名节点后写覆盖先写，位置保持在先写处；返回是否发生覆盖
func (t *Tree) put(p *Province) bool {
	if t.idx == nil {
		t.idx = map[string]int{}
	}
	if i, ok := t.idx[p.NameEN]; ok {
		t.Provinces[i] = p
		return true
	}
	t.idx[p.NameEN] = len(t.Provinces)
	t.Provinces = append(t.Provinces, p)
	return false
}

func (p *Province) put(d *District) bool {
	if p.idx == nil {
		p.idx = map[string]int{}
	}
	if i, ok := p.idx[d.NameEN]; ok {
		p.Districts[i] = d
		return true
	}
	p.idx[d.NameEN] = len(p.Districts)
	p.Districts = append(p.Districts, d)
	return false
}

func (d *District) put(c *Commune) bool {
	if d.idx == nil {
		d.idx = map[string]int{}
	}
	if i, ok := d.idx[c.NameEN]; ok {
		d.Communes[i] = c
		return true
	}
	d.idx[c.NameEN] = len(d.Communes)
	d.Communes = append(d.Communes, c)
	return false
}

// Province：按英文名查找省；nil 接收者安全
func (t *Tree) Province(name string) *Province {
	if t == nil {
		return nil
	}
	if i, ok := t.idx[name]; ok {
		return t.Provinces[i]
	}
	return nil
}

func (p *Province) District(name string) *District {
	if p == nil {
		return nil
	}
	if i, ok := p.idx[name]; ok {
		return p.Districts[i]
	}
	return nil
}

func (d *District) Commune(name string) *Commune {
	if d == nil {
		return nil
	}
	if i, ok := d.idx[name]; ok {
		return d.Communes[i]
	}
	return nil
}

// Names：省英文名（有序）
func (t *Tree) Names() []string {
	if t == nil {
		return []string{}
	}
	out := make([]string, 0, len(t.Provinces))
	for _, p := range t.Provinces {
		out = append(out, p.NameEN)
	}
	return out
}

func (p *Province) Names() []string {
	if p == nil {
		return []string{}
	}
	out := make([]string, 0, len(p.Districts))
	for _, d := range p.Districts {
		out = append(out, d.NameEN)
	}
	return out
}

func (d *District) Names() []string {
	if d == nil {
		return []string{}
	}
	out := make([]string, 0, len(d.Communes))
	for _, c := range d.Communes {
		out = append(out, c.NameEN)
	}
	return out
}

// VillageNames：返回副本，调用方可自由修改
func (c *Commune) VillageNames() []string {
	if c == nil {
		return []string{}
	}
	return append([]string{}, c.Villages...)
}

// Villages：tree[省][区][乡] 的村列表；任一级不存在时返回 nil
func (t *Tree) Villages(province, district, commune string) []string {
	c := t.Province(province).District(district).Commune(commune)
	if c == nil {
		return nil
	}
	return c.VillageNames()
}

// 文档注释：导出为普通嵌套映射
// 背景：供只需要 tree[p][d][c] 形式访问的调用方使用；映射本身无序，顺序请使用 Names 系列方法。
func (t *Tree) Map() map[string]map[string]map[string][]string {
	out := make(map[string]map[string]map[string][]string, len(t.Provinces))
	for _, p := range t.Provinces {
		dm := make(map[string]map[string][]string, len(p.Districts))
		for _, d := range p.Districts {
			cm := make(map[string][]string, len(d.Communes))
			for _, c := range d.Communes {
				cm[c.NameEN] = c.VillageNames()
			}
			dm[d.NameEN] = cm
		}
		out[p.NameEN] = dm
	}
	return out
}

// Stats：树中各级节点数量
type Stats struct {
	Provinces int `json:"provinces"`
	Districts int `json:"districts"`
	Communes  int `json:"communes"`
	Villages  int `json:"villages"`
}

func (t *Tree) Stats() Stats {
	var s Stats
	for _, p := range t.Provinces {
		s.Provinces++
		for _, d := range p.Districts {
			s.Districts++
			for _, c := range d.Communes {
				s.Communes++
				s.Villages += len(c.Villages)
			}
		}
	}
	return s
}
