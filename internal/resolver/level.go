// 包 resolver：运行期地址级联选择的选项与本地化标签解析
package resolver

import (
	"strings"

	"golang.org/x/text/language"
)

// Lang：显示语言，显式传入每个解析调用，不依赖全局状态
type Lang int

const (
	LangEN Lang = iota
	LangKM
)

var khmer, _ = language.Khmer.Base()

// 文档注释：解析语言标签
// 背景：前端语言标签形如 "km"、"km-KH"、"en-US"；以基础语言判断是否为高棉语，其余一律视为英文。
// 约束：无法解析的标签回退为英文。
func ParseLang(s string) Lang {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return LangEN
	}
	if base, _ := tag.Base(); base == khmer {
		return LangKM
	}
	return LangEN
}

func (l Lang) String() string {
	if l == LangKM {
		return "km"
	}
	return "en"
}

// Level：级联层级，从 1 开始
type Level int

const (
	LevelProvince Level = iota + 1
	LevelDistrict
	LevelCommune
	LevelVillage
)

var levelNames = map[Level]string{
	LevelProvince: "province",
	LevelDistrict: "district",
	LevelCommune:  "commune",
	LevelVillage:  "village",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "unknown"
}

func (l Level) Valid() bool { return l >= LevelProvince && l <= LevelVillage }

// ParseLevel：接受 "province"/"district"/"commune"/"village" 或 "1".."4"
func ParseLevel(s string) (Level, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, n := range levelNames {
		if n == s {
			return l, true
		}
	}
	if len(s) == 1 && s[0] >= '1' && s[0] <= '4' {
		return Level(s[0] - '0'), true
	}
	return 0, false
}

// Path：当前选择路径，全部为英文规范名；空串表示未选
type Path struct {
	Province string `json:"province"`
	District string `json:"district"`
	Commune  string `json:"commune"`
	Village  string `json:"village"`
}

// Get：读取某级的选择
func (p Path) Get(l Level) string {
	switch l {
	case LevelProvince:
		return p.Province
	case LevelDistrict:
		return p.District
	case LevelCommune:
		return p.Commune
	case LevelVillage:
		return p.Village
	}
	return ""
}

// 文档注释：设置某级选择并清空其所有下级
// 背景：上级变化后下级选择必然失效，由调用方（持有选择状态者）负责清空；此方法给出统一做法。
func (p Path) With(l Level, value string) Path {
	switch l {
	case LevelProvince:
		return Path{Province: value}
	case LevelDistrict:
		return Path{Province: p.Province, District: value}
	case LevelCommune:
		return Path{Province: p.Province, District: p.District, Commune: value}
	case LevelVillage:
		p.Village = value
		return p
	}
	return p
}

// Truncate：只保留 level 之前（不含）的各级选择
func (p Path) Truncate(l Level) Path {
	if l <= LevelProvince {
		return Path{}
	}
	return p.With(l, "")
}
