package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"addr-geo/internal/geodata"
	"addr-geo/internal/geotree"
	"addr-geo/internal/logger"
	"addr-geo/internal/migrate"
	"addr-geo/internal/store"
	"addr-geo/internal/utils"

	"github.com/joho/godotenv"
)

// 文档注释：行政区划名称树构建工具
// 背景：将 provinces/districts/communes/villages 四个平铺文件拼接为 省→区→乡→[村] 的名称树产物，供前端级联选择使用。
// 用法：addr-build [inputDir] [outputPath]；缺省 GEO_INPUT_DIR 或 files，GEO_OUTPUT 或 data/addresses.json。
// 约束：任何读取、形状校验或写出失败均以非零状态退出；GEO_REPORT=true 时向标准输出打印逐级统计表；
// GEO_PUBLISH_PG=true 时额外发布快照到 PostgreSQL。
func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	in := utils.Getenv("GEO_INPUT_DIR", "files")
	out := utils.Getenv("GEO_OUTPUT", filepath.Join("data", "addresses.json"))
	if len(os.Args) > 1 && os.Args[1] != "" {
		in = os.Args[1]
	}
	if len(os.Args) > 2 && os.Args[2] != "" {
		out = os.Args[2]
	}
	ctx := context.Background()
	t, ds, sum, err := geotree.BuildDir(ctx, in, out)
	if err != nil {
		l.Error("build_failed", "input", in, "output", out, "err", err)
		os.Exit(1)
	}
	l.Info("build_done",
		"input", in,
		"output", out,
		"provinces", sum.Input.Provinces,
		"districts", sum.Input.Districts,
		"communes", sum.Input.Communes,
		"villages", sum.Input.Villages,
		"dropped_districts", sum.Dropped.Districts,
		"dropped_communes", sum.Dropped.Communes,
		"dropped_villages", sum.Dropped.Villages,
		"unnamed", sum.Dropped.Unnamed,
		"duplicates", sum.Duplicates,
	)
	if utils.GetenvBool("GEO_REPORT", false) {
		geotree.WriteReport(os.Stdout, sum)
	}
	if !utils.GetenvBool("GEO_PUBLISH_PG", false) {
		return
	}
	if err := publish(ctx, t, ds, sum); err != nil {
		l.Error("publish_error", "err", err)
		os.Exit(1)
	}
}

func publish(ctx context.Context, t *geotree.Tree, ds *geodata.Dataset, sum geotree.Summary) error {
	l := logger.L()
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		return err
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		return err
	}
	sn, err := store.NewSnapshot(t, ds, sum)
	if err != nil {
		return err
	}
	inserted, err := store.AttachDB(db).SaveSnapshot(ctx, sn)
	if err != nil {
		return err
	}
	l.Info("publish_done", "checksum", sn.Checksum, "inserted", inserted)
	return nil
}
