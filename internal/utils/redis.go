// 包 utils：Redis 连接工具，统一环境变量读取与可选 DB 选择
package utils

import (
	"strconv"

	"addr-geo/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedisFromEnv：REDIS_ENABLE=true 时按环境变量打开客户端，否则返回 nil
// 约束：REDIS_DB 解析失败时回退到 0
func OpenRedisFromEnv() *redis.Client {
	if !GetenvBool("REDIS_ENABLE", false) {
		return nil
	}
	addr := Getenv("REDIS_HOST", "127.0.0.1") + ":" + Getenv("REDIS_PORT", "6379")
	db := 0
	if n, err := strconv.Atoi(Getenv("REDIS_DB", "0")); err == nil && n >= 0 {
		db = n
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: Getenv("REDIS_PASS", ""), DB: db})
}
