package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateRunID 生成本次运行的实例 ID（写入日志与发布的样本）
// 优先使用环境变量 RATESENSOR_RUN_ID，否则为 {role}-{hostname}-{uuid 前 8 位}
func GenerateRunID(role string) string {
	if id := os.Getenv("RATESENSOR_RUN_ID"); id != "" {
		return id
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%s-%s", role, hostname, uuid.New().String()[:8])
}
