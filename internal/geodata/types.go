// 包 geodata：省/区/乡/村四级行政区划平铺数据的类型、容错解码、并发加载与父编码索引
package geodata

import (
	"bytes"
	"encoding/json"
)

// Kind：四类平铺实体，同时也是输入文件中的顶层字段名
type Kind string

const (
	KindProvinces Kind = "provinces"
	KindDistricts Kind = "districts"
	KindCommunes  Kind = "communes"
	KindVillages  Kind = "villages"
)

// Kinds：固定顺序，校验错误与汇总输出均按此顺序
var Kinds = []Kind{KindProvinces, KindDistricts, KindCommunes, KindVillages}

// FileName：约定文件名 <kind>.json
func (k Kind) FileName() string { return string(k) + ".json" }

// 文档注释：行政区编码
// 背景：上游数据集在不同版本中编码有时为字符串、有时为数字；统一按原文保存为字符串，便于作为索引键。
// 约束：null/对象/数组/false 视为缺失（空串）；字符串不做裁剪，原样参与匹配。
type Code string

func (c *Code) UnmarshalJSON(b []byte) error {
	s := bytes.TrimSpace(b)
	if len(s) == 0 {
		*c = ""
		return nil
	}
	switch s[0] {
	case '"':
		var v string
		if err := json.Unmarshal(s, &v); err != nil {
			return err
		}
		*c = Code(v)
	case '{', '[', 'n', 'f':
		*c = ""
	default:
		*c = Code(s)
	}
	return nil
}

type Province struct {
	Code   Code   `json:"code"`
	NameEN string `json:"name_en"`
	NameKM string `json:"name_km"`
}

type District struct {
	Code         Code   `json:"code"`
	ProvinceCode Code   `json:"province_code"`
	NameEN       string `json:"name_en"`
	NameKM       string `json:"name_km"`
}

type Commune struct {
	Code         Code   `json:"code"`
	DistrictCode Code   `json:"district_code"`
	NameEN       string `json:"name_en"`
	NameKM       string `json:"name_km"`
}

// Village：村级记录没有自身编码，只引用所属乡编码
type Village struct {
	CommuneCode Code   `json:"commune_code"`
	NameEN      string `json:"name_en"`
	NameKM      string `json:"name_km"`
}

// CommuneRefKeys：村记录引用乡编码时历史上出现过的字段名，按顺序尝试，首个出现且不为 null 的字段生效
var CommuneRefKeys = []string{"commune_code", "communeId", "commune_id", "COMMUNE_CODE"}

// 文档注释：村记录解码
// 背景：不同版本数据集对乡编码字段的拼写不一致；逐个候选字段查找，避免因字段漂移整批失败。
// 约束：缺失或为 null 的候选跳过；首个出现的非 null 候选即为结果，即使其值为空串，
// 此时 CommuneCode 为空，由索引阶段丢弃，不再继续尝试后续拼写。
func (v *Village) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var names struct {
		NameEN string `json:"name_en"`
		NameKM string `json:"name_km"`
	}
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	*v = Village{NameEN: names.NameEN, NameKM: names.NameKM}
	for _, k := range CommuneRefKeys {
		m, ok := raw[k]
		if !ok || isNull(m) {
			continue
		}
		var c Code
		if err := c.UnmarshalJSON(m); err != nil {
			return nil
		}
		v.CommuneCode = c
		return nil
	}
	return nil
}

func isNull(m json.RawMessage) bool { return bytes.Equal(bytes.TrimSpace(m), []byte("null")) }

// Counts：各类实体的输入记录数（含随后被丢弃的记录）
type Counts struct {
	Provinces int `json:"provinces"`
	Districts int `json:"districts"`
	Communes  int `json:"communes"`
	Villages  int `json:"villages"`
}

// Dataset：一次加载得到的四类平铺集合；加载后只读
type Dataset struct {
	Provinces []Province
	Districts []District
	Communes  []Commune
	Villages  []Village
}

func (d *Dataset) Counts() Counts {
	return Counts{
		Provinces: len(d.Provinces),
		Districts: len(d.Districts),
		Communes:  len(d.Communes),
		Villages:  len(d.Villages),
	}
}
