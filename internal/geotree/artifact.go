package geotree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"addr-geo/internal/geodata"
)

// 文档注释：产物序列化
// 背景：encoding/json 对 map 按字节序排键，会破坏英文排序规则下的顺序；此处按树内顺序手工写出对象。
// 约束：输出格式 {"省":{"区":{"乡":["村",...]}}}，两空格缩进、无结尾换行；字符串不做 HTML 转义。
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range t.Provinces {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, p.NameEN); err != nil {
			return nil, err
		}
		buf.WriteString(":{")
		for j, d := range p.Districts {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(&buf, d.NameEN); err != nil {
				return nil, err
			}
			buf.WriteString(":{")
			for k, c := range d.Communes {
				if k > 0 {
					buf.WriteByte(',')
				}
				if err := writeString(&buf, c.NameEN); err != nil {
					return nil, err
				}
				buf.WriteString(":[")
				for n, v := range c.Villages {
					if n > 0 {
						buf.WriteByte(',')
					}
					if err := writeString(&buf, v); err != nil {
						return nil, err
					}
				}
				buf.WriteByte(']')
			}
			buf.WriteByte('}')
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// 文档注释：产物反序列化
// 背景：用 Token 流逐级读取，保留文件中的键顺序；重复键按后写覆盖处理。
// 约束：村列表为 null 时视为空列表；结构不是四级嵌套时返回错误。
func (t *Tree) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	nt := NewTree()
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		pname, err := readKey(dec)
		if err != nil {
			return err
		}
		p := &Province{NameEN: pname, idx: map[string]int{}}
		if err := expectDelim(dec, '{'); err != nil {
			return err
		}
		for dec.More() {
			dname, err := readKey(dec)
			if err != nil {
				return err
			}
			d := &District{NameEN: dname, idx: map[string]int{}}
			if err := expectDelim(dec, '{'); err != nil {
				return err
			}
			for dec.More() {
				cname, err := readKey(dec)
				if err != nil {
					return err
				}
				var villages []string
				if err := dec.Decode(&villages); err != nil {
					return fmt.Errorf("villages of %q: %w", cname, err)
				}
				if villages == nil {
					villages = []string{}
				}
				d.put(&Commune{NameEN: cname, Villages: villages})
			}
			if err := expectDelim(dec, '}'); err != nil {
				return err
			}
			p.put(d)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
		nt.put(p)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	*t = *nt
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("geotree: expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("geotree: expected key, got %v", tok)
	}
	return s, nil
}

// Encode：产物文本（两空格缩进）
func Encode(t *Tree) ([]byte, error) {
	raw, err := t.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Decode：解析产物文本（容忍 BOM），并按英文排序规则重排
func Decode(b []byte) (*Tree, error) {
	t := NewTree()
	if err := t.UnmarshalJSON(geodata.StripBOM(b)); err != nil {
		return nil, err
	}
	t.Sort()
	return t, nil
}

// 文档注释：写出产物文件
// 背景：目录不存在时递归创建；同一输入重复构建得到逐字节相同的文件。
// 约束：目录创建与写文件失败均返回错误，由调用方以非零状态退出。
func WriteFile(path string, t *Tree) error {
	b, err := Encode(t)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func ReadFile(path string) (*Tree, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	t, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return t, nil
}
