package verify

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisChecker 无密码执行 INFO server
type RedisChecker struct{}

func NewRedisChecker() *RedisChecker {
	return &RedisChecker{}
}

func (c *RedisChecker) Name() string {
	return "redis"
}

// redisInfoKeys INFO server 中保留的字段
var redisInfoKeys = []string{"redis_version", "redis_mode", "os", "arch_bits", "tcp_port"}

func (c *RedisChecker) Check(ctx context.Context, address string, dial DialFunc) (*Finding, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Dialer:   dial,
		Protocol: 2,
		// 不重试, 只发一次请求
		MaxRetries:   -1,
		PoolSize:     1,
	})
	defer client.Close()

	info, err := client.Info(ctx, "server").Result()
	if err != nil {
		if isRedisAuthError(err) {
			return &Finding{Metadata: map[string]string{"auth": "required"}}, nil
		}
		return nil, err
	}

	finding := &Finding{
		Metadata:   parseRedisInfo(info),
		Advisories: []string{"Redis accessible without authentication"},
	}
	finding.Metadata["auth"] = "none"
	return finding, nil
}

func isRedisAuthError(err error) bool {
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "NOAUTH") ||
		strings.Contains(msg, "WRONGPASS") ||
		strings.Contains(msg, "AUTHENTICATION REQUIRED")
}

// parseRedisInfo 解析 "key:value" 形式的 INFO 输出
func parseRedisInfo(info string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(info, "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		for _, want := range redisInfoKeys {
			if key == want {
				out[key] = val
				break
			}
		}
	}
	return out
}
