package geodata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"addr-geo/internal/logger"

	"golang.org/x/sync/errgroup"
)

var bom = []byte("\xef\xbb\xbf")

// StripBOM：去掉开头的一个 UTF-8 字节序标记；无标记时原样返回
func StripBOM(b []byte) []byte { return bytes.TrimPrefix(b, bom) }

// 文档注释：并发读取目录下四个约定文件并解析
// 背景：四个文件之间没有依赖，同时发起读取；全部完成后才进入解析（汇合屏障），任何一个失败即整体失败。
// 约束：不重试；读取错误携带文件路径并保留原始错误类型（可用 errors.Is 判断 fs.ErrNotExist）。
func LoadDir(ctx context.Context, dir string) (*Dataset, error) {
	raws := make([][]byte, len(Kinds))
	g, ctx := errgroup.WithContext(ctx)
	for i, k := range Kinds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := filepath.Join(dir, k.FileName())
			b, err := os.ReadFile(p)
			if err != nil {
				logger.L().Error("load_file_error", "path", p, "err", err)
				return fmt.Errorf("read %s: %w", p, err)
			}
			logger.L().Debug("load_file_ok", "path", p, "bytes", len(b))
			raws[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	files := make(map[Kind][]byte, len(Kinds))
	for i, k := range Kinds {
		files[k] = raws[i]
	}
	return Parse(files)
}

// 文档注释：从四份原始文本解析 Dataset
// 背景：文件与数据库快照共用此入口；每份文本先去 BOM 再做结构解析。
// 约束：任一顶层字段缺失或不是数组时返回 *ShapeError（列出全部不合格字段）；JSON 语法错误直接返回。
// 数组中无法解码为对应记录的元素按零值保留，使计数与输入一致，随后在拼接阶段因缺少名称或父编码被丢弃。
func Parse(files map[Kind][]byte) (*Dataset, error) {
	items := make(map[Kind][]json.RawMessage, len(Kinds))
	var bad []string
	for _, k := range Kinds {
		arr, ok, err := topLevelArray(files[k], k)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", k.FileName(), err)
		}
		if !ok {
			bad = append(bad, string(k))
			continue
		}
		items[k] = arr
	}
	if len(bad) > 0 {
		return nil, &ShapeError{Fields: bad}
	}
	return &Dataset{
		Provinces: decodeAll[Province](items[KindProvinces]),
		Districts: decodeAll[District](items[KindDistricts]),
		Communes:  decodeAll[Commune](items[KindCommunes]),
		Villages:  decodeAll[Village](items[KindVillages]),
	}, nil
}

// topLevelArray：取出顶层对象中 field 字段的数组元素；文本不是对象或字段不是数组时 ok=false
func topLevelArray(b []byte, field Kind) ([]json.RawMessage, bool, error) {
	text := bytes.TrimSpace(StripBOM(b))
	if len(text) == 0 {
		return nil, false, nil
	}
	if text[0] != '{' {
		if !json.Valid(text) {
			return nil, false, errors.New("invalid JSON")
		}
		return nil, false, nil
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(text, &top); err != nil {
		return nil, false, err
	}
	raw, ok := top[string(field)]
	if !ok {
		return nil, false, nil
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false, nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, false, err
	}
	return arr, true, nil
}

func decodeAll[T any](items []json.RawMessage) []T {
	out := make([]T, len(items))
	for i, it := range items {
		var v T
		if err := json.Unmarshal(it, &v); err != nil {
			continue
		}
		out[i] = v
	}
	return out
}

// 文档注释：将 Dataset 编码回四份约定格式文本
// 背景：用于快照持久化；输出可被 Parse 原样读回（村记录统一写为 commune_code）。
func (d *Dataset) Encode() (map[Kind][]byte, error) {
	out := make(map[Kind][]byte, len(Kinds))
	enc := func(k Kind, v any) error {
		b, err := json.Marshal(map[string]any{string(k): v})
		if err != nil {
			return fmt.Errorf("encode %s: %w", k, err)
		}
		out[k] = b
		return nil
	}
	if err := enc(KindProvinces, nonNil(d.Provinces)); err != nil {
		return nil, err
	}
	if err := enc(KindDistricts, nonNil(d.Districts)); err != nil {
		return nil, err
	}
	if err := enc(KindCommunes, nonNil(d.Communes)); err != nil {
		return nil, err
	}
	if err := enc(KindVillages, nonNil(d.Villages)); err != nil {
		return nil, err
	}
	return out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
