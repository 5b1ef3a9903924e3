// ### 发布流程
// 1. **更新版本号**：修改 `internal/pkg/version/version.go`
// 2. **构建**：通过 -ldflags 注入 BuildTime / GitCommit
// 3. **验证**：neorecon version 输出与 Tag 一致

package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "1.0.0" // 版本号 -- 发布时候更新版本号
	BuildTime string
	GitCommit string
	GoVersion = runtime.Version()
)

func GetVersion() string {
	return Version
}

// GetFullVersion 带构建信息的完整版本串
func GetFullVersion() string {
	s := Version
	if GitCommit != "" {
		s += " (" + GitCommit + ")"
	}
	if BuildTime != "" {
		s += " built " + BuildTime
	}
	return fmt.Sprintf("%s %s %s/%s", s, GoVersion, runtime.GOOS, runtime.GOARCH)
}

// GetProbeTag 探针中使用的客户端标识
func GetProbeTag() string {
	return "NeoRecon/" + Version
}
