package geodata

// 文档注释：按父编码分组的中间索引
// 背景：把四级拼接从 O(n²) 降为 O(n)；构建任务与运行期解析器各自独立构建一份，不共享全局缓存。
// 约束：父编码为空的记录直接跳过（不报错）；分组内保持输入顺序。
type Index struct {
	DistrictsByProvince map[Code][]District
	CommunesByDistrict  map[Code][]Commune
	VillagesByCommune   map[Code][]Village
}

func BuildIndex(d *Dataset) Index {
	return Index{
		DistrictsByProvince: DistrictsByProvince(d.Districts),
		CommunesByDistrict:  CommunesByDistrict(d.Communes),
		VillagesByCommune:   VillagesByCommune(d.Villages),
	}
}

func DistrictsByProvince(ds []District) map[Code][]District {
	m := make(map[Code][]District)
	for _, d := range ds {
		if d.ProvinceCode == "" {
			continue
		}
		m[d.ProvinceCode] = append(m[d.ProvinceCode], d)
	}
	return m
}

func CommunesByDistrict(cs []Commune) map[Code][]Commune {
	m := make(map[Code][]Commune)
	for _, c := range cs {
		if c.DistrictCode == "" {
			continue
		}
		m[c.DistrictCode] = append(m[c.DistrictCode], c)
	}
	return m
}

func VillagesByCommune(vs []Village) map[Code][]Village {
	m := make(map[Code][]Village)
	for _, v := range vs {
		if v.CommuneCode == "" {
			continue
		}
		m[v.CommuneCode] = append(m[v.CommuneCode], v)
	}
	return m
}
