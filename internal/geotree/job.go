package geotree

import (
	"context"

	"addr-geo/internal/geodata"
	"addr-geo/internal/logger"
)

// 文档注释：构建任务 build(inputDir, outputPath)
// 背景：并发读取四个平铺文件 → 形状校验 → 拼接 → 写出产物；任何读取、形状或写出失败都整体失败且不写出产物。
// 返回：名称树与来源数据（供发布快照使用）以及汇总计数。
func BuildDir(ctx context.Context, inputDir, outputPath string) (*Tree, *geodata.Dataset, Summary, error) {
	ds, err := geodata.LoadDir(ctx, inputDir)
	if err != nil {
		return nil, nil, Summary{}, err
	}
	t, sum := Build(ds)
	if err := WriteFile(outputPath, t); err != nil {
		return nil, nil, Summary{}, err
	}
	logger.L().Debug("artifact_written", "path", outputPath, "provinces", sum.Tree.Provinces)
	return t, ds, sum, nil
}
