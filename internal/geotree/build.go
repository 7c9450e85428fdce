package geotree

import (
	"addr-geo/internal/geodata"
	"addr-geo/internal/logger"
)

// Dropped：未挂入树的记录数（父编码缺失或悬空、英文名为空）
type Dropped struct {
	Districts int `json:"districts"`
	Communes  int `json:"communes"`
	Villages  int `json:"villages"`
	Unnamed   int `json:"unnamed"`
}

// Summary：一次构建的汇总
type Summary struct {
	Input      geodata.Counts `json:"input"`
	Tree       Stats          `json:"tree"`
	Dropped    Dropped        `json:"dropped"`
	Duplicates int            `json:"duplicates"`
}

// 文档注释：四级拼接构建名称树
// 背景：先按父编码建立分组索引，再自省向下逐级展开；每级子节点按英文排序规则稳定排序。
// 约束：
//   - 每个具名省都会出现在树中，即使没有任何区（空映射）；区、乡同理，乡下无村时为空列表；
//   - 父编码缺失或找不到父级的记录静默丢弃，只计入 Summary；
//   - 英文名为空的记录不出现在树中；
//   - 同一父级下英文名重复时，后出现者覆盖先出现者的内容（计入 Duplicates）。
func Build(ds *geodata.Dataset) (*Tree, Summary) {
	idx := geodata.BuildIndex(ds)
	sum := Summary{Input: ds.Counts()}

	provinces := make([]geodata.Province, 0, len(ds.Provinces))
	for _, p := range ds.Provinces {
		if p.NameEN == "" {
			sum.Dropped.Unnamed++
			continue
		}
		provinces = append(provinces, p)
	}
	sortByName(provinces, func(p geodata.Province) string { return p.NameEN })

	attachedD, attachedC, attachedV := 0, 0, 0
	t := NewTree()
	for _, p := range provinces {
		pn := &Province{Code: p.Code, NameEN: p.NameEN, NameKM: p.NameKM, idx: map[string]int{}}
		districts := append([]geodata.District(nil), idx.DistrictsByProvince[p.Code]...)
		sortByName(districts, func(d geodata.District) string { return d.NameEN })
		for _, d := range districts {
			attachedD++
			if d.NameEN == "" {
				sum.Dropped.Unnamed++
				continue
			}
			dn := &District{Code: d.Code, NameEN: d.NameEN, NameKM: d.NameKM, idx: map[string]int{}}
			communes := append([]geodata.Commune(nil), idx.CommunesByDistrict[d.Code]...)
			sortByName(communes, func(c geodata.Commune) string { return c.NameEN })
			for _, c := range communes {
				attachedC++
				if c.NameEN == "" {
					sum.Dropped.Unnamed++
					continue
				}
				villages := idx.VillagesByCommune[c.Code]
				names := make([]string, 0, len(villages))
				for _, v := range villages {
					attachedV++
					if v.NameEN == "" {
						sum.Dropped.Unnamed++
						continue
					}
					names = append(names, v.NameEN)
				}
				sortStrings(names)
				if dn.put(&Commune{Code: c.Code, NameEN: c.NameEN, NameKM: c.NameKM, Villages: names}) {
					sum.Duplicates++
				}
			}
			if pn.put(dn) {
				sum.Duplicates++
			}
		}
		if t.put(pn) {
			sum.Duplicates++
		}
	}
	sum.Dropped.Districts = max(0, len(ds.Districts)-attachedD)
	sum.Dropped.Communes = max(0, len(ds.Communes)-attachedC)
	sum.Dropped.Villages = max(0, len(ds.Villages)-attachedV)
	sum.Tree = t.Stats()
	logger.L().Debug("join_dropped",
		"districts", sum.Dropped.Districts,
		"communes", sum.Dropped.Communes,
		"villages", sum.Dropped.Villages,
		"unnamed", sum.Dropped.Unnamed,
		"duplicates", sum.Duplicates,
	)
	return t, sum
}
