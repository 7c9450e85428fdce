package resolver

import (
	"strings"

	"addr-geo/internal/geodata"
	"addr-geo/internal/geotree"

	"golang.org/x/text/cases"
)

// 文档注释：本地化地址解析器
// 背景：名称树只以英文名为键；显示高棉文时需回到平铺数据按 “上级编码::英文名” 复合键逐级反查编码链。
// 若树节点本身带有编码（由平铺数据直接构建），则直接使用节点上的名称，无需反查。
// 约束：构建后只读，所有方法都是显式输入的纯函数，可并发调用；任何查找失败都回退为英文规范名，从不报错。
type Resolver struct {
	tree        *geotree.Tree
	ds          *geodata.Dataset
	provByName  map[string]geodata.Province
	distByKey   map[string]geodata.District
	commByKey   map[string]geodata.Commune
	villsByComm map[geodata.Code][]geodata.Village
}

// Option：级联选择的一项，Value 为英文规范名，Label 为当前语言的显示名
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func compositeKey(parent geodata.Code, nameEN string) string { return string(parent) + "::" + nameEN }

// 文档注释：构建解析器
// 背景：查找表在构建时一次性生成并在实例生命周期内复用；不同实例之间不共享。
// 约束：同键记录后者覆盖前者；tree 或 ds 为 nil 时按空数据处理。
func New(tree *geotree.Tree, ds *geodata.Dataset) *Resolver {
	if tree == nil {
		tree = geotree.NewTree()
	}
	if ds == nil {
		ds = &geodata.Dataset{}
	}
	r := &Resolver{
		tree:        tree,
		ds:          ds,
		provByName:  make(map[string]geodata.Province, len(ds.Provinces)),
		distByKey:   make(map[string]geodata.District, len(ds.Districts)),
		commByKey:   make(map[string]geodata.Commune, len(ds.Communes)),
		villsByComm: geodata.VillagesByCommune(ds.Villages),
	}
	for _, p := range ds.Provinces {
		r.provByName[p.NameEN] = p
	}
	for _, d := range ds.Districts {
		r.distByKey[compositeKey(d.ProvinceCode, d.NameEN)] = d
	}
	for _, c := range ds.Communes {
		r.commByKey[compositeKey(c.DistrictCode, c.NameEN)] = c
	}
	return r
}

// Tree：解析器持有的名称树（只读）
func (r *Resolver) Tree() *geotree.Tree { return r.tree }

// Dataset：构建解析器时使用的平铺数据（只读）
func (r *Resolver) Dataset() *geodata.Dataset { return r.ds }

// 文档注释：某级的候选选项
// 背景：省级返回全部省；其余返回 path 截断到上一级所指节点的子节点名。
// 约束：任一上级未选或在树中不存在（例如树重载后选择已过期）时返回空切片；返回值为副本。
func (r *Resolver) OptionsAtLevel(level Level, path Path) []string {
	t := r.tree
	switch level {
	case LevelProvince:
		return t.Names()
	case LevelDistrict:
		if path.Province == "" {
			return []string{}
		}
		return t.Province(path.Province).Names()
	case LevelCommune:
		if path.Province == "" || path.District == "" {
			return []string{}
		}
		return t.Province(path.Province).District(path.District).Names()
	case LevelVillage:
		if path.Province == "" || path.District == "" || path.Commune == "" {
			return []string{}
		}
		return t.Province(path.Province).District(path.District).Commune(path.Commune).VillageNames()
	}
	return []string{}
}

// Options：带本地化标签的候选选项
func (r *Resolver) Options(lang Lang, level Level, path Path) []Option {
	names := r.OptionsAtLevel(level, path)
	out := make([]Option, 0, len(names))
	for _, n := range names {
		out = append(out, Option{Value: n, Label: r.LabelFor(lang, level, n, path)})
	}
	return out
}

// LabelFor：显示名；找不到本地化名称时返回 nameEN 本身
func (r *Resolver) LabelFor(lang Lang, level Level, nameEN string, path Path) string {
	label, _ := r.Lookup(lang, level, nameEN, path)
	return label
}

// 文档注释：显示名查找
// 返回：ok 表示命中了本地化记录且对应语言字段非空；否则返回 nameEN 作为回退。
// 约束：nameEN 为空时返回空串（没有可回退的规范名）。
func (r *Resolver) Lookup(lang Lang, level Level, nameEN string, path Path) (string, bool) {
	if nameEN == "" {
		return "", false
	}
	en, km, ok := r.names(level, nameEN, path)
	if !ok {
		return nameEN, false
	}
	label := en
	if lang == LangKM {
		label = km
	}
	if label == "" {
		return nameEN, false
	}
	return label, true
}

// names：解析某级节点的英/高棉文名称
func (r *Resolver) names(level Level, nameEN string, path Path) (string, string, bool) {
	switch level {
	case LevelProvince:
		if n := r.tree.Province(nameEN); n != nil && n.Code != "" {
			return n.NameEN, n.NameKM, true
		}
		p, ok := r.provByName[nameEN]
		return p.NameEN, p.NameKM, ok
	case LevelDistrict:
		if n := r.tree.Province(path.Province).District(nameEN); n != nil && n.Code != "" {
			return n.NameEN, n.NameKM, true
		}
		pc, ok := r.provinceCode(path.Province)
		if !ok {
			return "", "", false
		}
		d, ok := r.distByKey[compositeKey(pc, nameEN)]
		return d.NameEN, d.NameKM, ok
	case LevelCommune:
		if n := r.tree.Province(path.Province).District(path.District).Commune(nameEN); n != nil && n.Code != "" {
			return n.NameEN, n.NameKM, true
		}
		dc, ok := r.districtCode(path.Province, path.District)
		if !ok {
			return "", "", false
		}
		c, ok := r.commByKey[compositeKey(dc, nameEN)]
		return c.NameEN, c.NameKM, ok
	case LevelVillage:
		cc, ok := r.communeCode(path.Province, path.District, path.Commune)
		if !ok {
			return "", "", false
		}
		for _, v := range r.villsByComm[cc] {
			if v.NameEN == nameEN {
				return v.NameEN, v.NameKM, true
			}
		}
	}
	return "", "", false
}

func (r *Resolver) provinceCode(province string) (geodata.Code, bool) {
	if n := r.tree.Province(province); n != nil && n.Code != "" {
		return n.Code, true
	}
	p, ok := r.provByName[province]
	if !ok || p.Code == "" {
		return "", false
	}
	return p.Code, true
}

func (r *Resolver) districtCode(province, district string) (geodata.Code, bool) {
	if n := r.tree.Province(province).District(district); n != nil && n.Code != "" {
		return n.Code, true
	}
	pc, ok := r.provinceCode(province)
	if !ok {
		return "", false
	}
	d, ok := r.distByKey[compositeKey(pc, district)]
	if !ok || d.Code == "" {
		return "", false
	}
	return d.Code, true
}

func (r *Resolver) communeCode(province, district, commune string) (geodata.Code, bool) {
	if n := r.tree.Province(province).District(district).Commune(commune); n != nil && n.Code != "" {
		return n.Code, true
	}
	dc, ok := r.districtCode(province, district)
	if !ok {
		return "", false
	}
	c, ok := r.commByKey[compositeKey(dc, commune)]
	if !ok || c.Code == "" {
		return "", false
	}
	return c.Code, true
}

// 文档注释：清理过期选择
// 背景：解析器不持有选择状态，无法主动发现过期；调用方在树变化或上级变化后调用，
// 从上到下找到第一个不在候选中的层级，清空该级及其所有下级。
func (r *Resolver) Prune(path Path) Path {
	for l := LevelProvince; l <= LevelVillage; l++ {
		v := path.Get(l)
		if v == "" {
			return path.Truncate(l)
		}
		if !contains(r.OptionsAtLevel(l, path), v) {
			return path.Truncate(l)
		}
	}
	return path
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

// 文档注释：本地化地址行
// 背景：确认页按 “村, 街道, 乡, 区, 省” 顺序拼接，空项省略。
func (r *Resolver) AddressLine(lang Lang, path Path, street string) string {
	parts := []string{
		r.LabelFor(lang, LevelVillage, path.Village, path),
		strings.TrimSpace(street),
		r.LabelFor(lang, LevelCommune, path.Commune, path),
		r.LabelFor(lang, LevelDistrict, path.District, path),
		r.LabelFor(lang, LevelProvince, path.Province, path),
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// Search：按大小写无关的子串过滤选项，保持原顺序；query 为空时返回全部
func Search(options []string, query string) []string {
	if query == "" {
		return append([]string{}, options...)
	}
	fold := cases.Fold()
	q := fold.String(query)
	out := []string{}
	for _, o := range options {
		if strings.Contains(fold.String(o), q) {
			out = append(out, o)
		}
	}
	return out
}
