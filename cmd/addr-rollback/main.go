package main

import (
	"context"
	"os"

	"addr-geo/internal/logger"
	"addr-geo/internal/store"
	"addr-geo/internal/utils"

	"github.com/joho/godotenv"
)

// 文档注释：名称树快照回滚与保留窗口
// 背景：GEO_ROLLBACK_TO 指定校验和时先把该快照提升为最新；随后保留最近 GEO_KEEP_N 份（默认 10），其余删除。
// 约束：仅作用于 _geo_snapshots；服务端需重启或调用 /reload 才会加载新的最新快照。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	keepN := utils.GetenvInt("GEO_KEEP_N", 10)
	target := os.Getenv("GEO_ROLLBACK_TO")

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	st := store.AttachDB(db)
	ctx := context.Background()

	if target != "" {
		if err := st.PromoteSnapshot(ctx, target); err != nil {
			l.Error("rollback_error", "checksum", target, "err", err)
			os.Exit(1)
		}
	}
	n, err := st.PruneSnapshots(ctx, keepN)
	if err != nil {
		l.Error("prune_error", "err", err)
		os.Exit(1)
	}
	l.Info("rollback_done", "target", target, "keep", keepN, "deleted", n)
}
