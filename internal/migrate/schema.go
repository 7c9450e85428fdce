package migrate

import (
	"context"
	"database/sql"

	"addr-geo/internal/logger"
)

// 背景：首次运行自动创建快照表与索引，保障构建发布与服务加载
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
var stmts = []string{
	`CREATE TABLE IF NOT EXISTS _geo_snapshots (
            id SERIAL PRIMARY KEY,
            checksum TEXT NOT NULL,
            tree TEXT NOT NULL,
            provinces TEXT NOT NULL,
            districts TEXT NOT NULL,
            communes TEXT NOT NULL,
            villages TEXT NOT NULL,
            summary TEXT NOT NULL DEFAULT '{}',
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_geo_snapshot_checksum ON _geo_snapshots(checksum)`,
	`CREATE INDEX IF NOT EXISTS idx_geo_snapshot_created ON _geo_snapshots(created_at DESC)`,
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
