package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFile 加载 .env 文件到进程环境变量
// 文件不存在时直接返回, 已存在的环境变量不会被覆盖
func LoadEnvFile(envFile string) error {
	if envFile == "" {
		return nil
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return nil
	}

	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	return nil
}
