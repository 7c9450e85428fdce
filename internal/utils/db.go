package utils

import (
	"database/sql"
	"os"
	"strconv"

	_ "github.com/lib/pq"
)

// BuildPostgresDSNFromEnv：由 PG_* 环境变量拼接 DSN，缺省连接本机 addrgeo 库
func BuildPostgresDSNFromEnv() string {
	host := Getenv("PG_HOST", "localhost")
	port := Getenv("PG_PORT", "5432")
	user := Getenv("PG_USER", "postgres")
	pass := os.Getenv("PG_PASSWORD")
	db := Getenv("PG_DB", "addrgeo")
	ssl := Getenv("PG_SSLMODE", "disable")
	dsn := "postgres://" + user
	if pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + host + ":" + port + "/" + db + "?sslmode=" + ssl
	return dsn
}

// OpenPostgresFromEnv：打开连接池；快照读写为低频操作，默认连接数较小
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(GetenvInt("PG_MAX_OPEN_CONNS", 10))
	db.SetMaxIdleConns(GetenvInt("PG_MAX_IDLE_CONNS", 5))
	return db, nil
}

// Getenv：读取环境变量，空值时返回缺省值
func Getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetenvInt：读取正整数环境变量；解析失败或非正数时返回缺省值
func GetenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// GetenvBool：仅 "true" 视为开启；未设置时返回缺省值
func GetenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "true"
}
