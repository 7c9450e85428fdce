// 包 store：名称树快照的 PostgreSQL 读写（构建端发布、服务端加载）
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"addr-geo/internal/geodata"
	"addr-geo/internal/geotree"
	"addr-geo/internal/logger"

	_ "github.com/lib/pq"
)

// ErrNoSnapshot：库中尚无任何快照
var ErrNoSnapshot = errors.New("store: no snapshot")

// Store：数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) DB() *sql.DB { return s.db }

// 文档注释：快照
// 背景：名称树产物与其来源平铺数据一同保存，服务端加载后即可同时得到树与本地化查找所需的数据。
// 约束：Checksum 为树产物与四份平铺文本的 SHA-256，同一内容只保存一份。
type Snapshot struct {
	ID        int64
	Checksum  string
	Tree      []byte
	Files     map[geodata.Kind][]byte
	Summary   []byte
	CreatedAt time.Time
}

// NewSnapshot：由构建结果生成快照
func NewSnapshot(t *geotree.Tree, ds *geodata.Dataset, sum geotree.Summary) (*Snapshot, error) {
	tree, err := geotree.Encode(t)
	if err != nil {
		return nil, err
	}
	files, err := ds.Encode()
	if err != nil {
		return nil, err
	}
	sb, err := json.Marshal(sum)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Checksum: geotree.Checksum(tree, files),
		Tree:     tree,
		Files:    files,
		Summary:  sb,
	}, nil
}

// Decode：还原名称树与平铺数据
func (sn *Snapshot) Decode() (*geotree.Tree, *geodata.Dataset, error) {
	t, err := geotree.Decode(sn.Tree)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %d tree: %w", sn.ID, err)
	}
	ds, err := geodata.Parse(sn.Files)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %d dataset: %w", sn.ID, err)
	}
	return t, ds, nil
}

// 文档注释：保存快照
// 背景：相同内容只保存一份；重新发布已有内容（例如数据回退到旧版本）时刷新其创建时间，使其重新成为最新快照。
// 返回：inserted=false 表示相同校验和的快照已存在，本次仅将其提升为最新。
func (s *Store) SaveSnapshot(ctx context.Context, sn *Snapshot) (bool, error) {
	var inserted bool
	err := s.db.QueryRowContext(ctx, `INSERT INTO _geo_snapshots(checksum, tree, provinces, districts, communes, villages, summary)
        VALUES($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (checksum) DO UPDATE SET created_at = now()
        RETURNING id, (xmax = 0) AS inserted`,
		sn.Checksum, string(sn.Tree),
		string(sn.Files[geodata.KindProvinces]),
		string(sn.Files[geodata.KindDistricts]),
		string(sn.Files[geodata.KindCommunes]),
		string(sn.Files[geodata.KindVillages]),
		string(sn.Summary),
	).Scan(&sn.ID, &inserted)
	if err != nil {
		return false, err
	}
	logger.L().Debug("snapshot_save", "id", sn.ID, "checksum", sn.Checksum, "inserted", inserted)
	return inserted, nil
}

// LatestSnapshot：读取最新快照；库为空时返回 ErrNoSnapshot
func (s *Store) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, checksum, tree, provinces, districts, communes, villages, summary, created_at
        FROM _geo_snapshots ORDER BY created_at DESC, id DESC LIMIT 1`)
	var (
		sn                     Snapshot
		tree, sum              string
		prov, dist, comm, vill string
	)
	if err := row.Scan(&sn.ID, &sn.Checksum, &tree, &prov, &dist, &comm, &vill, &sum, &sn.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	sn.Tree = []byte(tree)
	sn.Summary = []byte(sum)
	sn.Files = map[geodata.Kind][]byte{
		geodata.KindProvinces: []byte(prov),
		geodata.KindDistricts: []byte(dist),
		geodata.KindCommunes:  []byte(comm),
		geodata.KindVillages:  []byte(vill),
	}
	logger.L().Debug("snapshot_load", "id", sn.ID, "checksum", sn.Checksum)
	return &sn, nil
}

// 文档注释：保留窗口
// 背景：每次发布都会新增一份快照；按创建时间保留最近 keep 份，其余删除。
// 返回：删除的行数；keep<=0 时不做任何修改。
func (s *Store) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM _geo_snapshots WHERE id IN (
            SELECT id FROM _geo_snapshots ORDER BY created_at DESC, id DESC OFFSET $1)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// 文档注释：回滚到指定快照
// 背景：服务端总是加载最新快照；将目标快照的创建时间刷新为当前时间即完成回滚，下次加载或 /reload 生效。
// 约束：checksum 不存在时返回 ErrNoSnapshot。
func (s *Store) PromoteSnapshot(ctx context.Context, checksum string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE _geo_snapshots SET created_at = now() WHERE checksum = $1`, checksum)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoSnapshot
	}
	logger.L().Info("snapshot_promoted", "checksum", checksum)
	return nil
}
