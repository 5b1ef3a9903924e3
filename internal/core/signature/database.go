/**
 * 指纹库
 * @author: Sun977
 * @date: 2026.02.10
 * @description: 内置规则与外部探针文件合并编译后的只读规则集
 *   构造完成后不再修改, 可被任意数量的扫描协程无锁共享
 */

package signature

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"neorecon/internal/pkg/logger"
)

// LoadStats 加载统计
type LoadStats struct {
	BuiltinRules  int
	Probes        int // 外部文件中的探针数
	Rules         int // 外部文件中成功编译的规则数
	Malformed     int // 格式错误
	Disallowed    int // 含不支持的模式片段
	CompileErrors int // 正则编译失败
	BadExtractors int // 次级提取器编译失败 (规则本身保留)
	Orphaned      int // 出现在任何 Probe 之前的指令
	FileMissing   bool
	FileErr       error
}

// Skipped 被跳过的条目总数
func (s LoadStats) Skipped() int {
	return s.Malformed + s.Disallowed + s.CompileErrors + s.Orphaned
}

func (s LoadStats) String() string {
	return fmt.Sprintf("builtin=%d probes=%d rules=%d skipped=%d (malformed=%d disallowed=%d compile=%d orphaned=%d)",
		s.BuiltinRules, s.Probes, s.Rules, s.Skipped(), s.Malformed, s.Disallowed, s.CompileErrors, s.Orphaned)
}

// Database 编译后的指纹库
type Database struct {
	rules  []*Rule
	probes []*Probe
}

// Load 构造指纹库, 永不失败
// 外部文件不存在时只使用内置规则, 文件中的坏条目逐条跳过
func Load(builtins []RuleSpec, externalPath string) (*Database, LoadStats) {
	var stats LoadStats
	db := &Database{}

	for _, spec := range builtins {
		probe := &Probe{
			Name:           "builtin-" + spec.Service,
			Protocol:       "TCP",
			Payload:        spec.Probe,
			TotalWait:      DefaultTotalWait,
			TCPWrappedWait: DefaultTCPWrappedWait,
			Ports:          spec.Ports,
		}
		rule, err := compileSpec(spec, probe.Name)
		if err != nil {
			stats.CompileErrors++
			logger.Warnf("builtin rule skipped: %v", err)
			continue
		}
		db.probes = append(db.probes, probe)
		db.rules = append(db.rules, rule)
		stats.BuiltinRules++
	}

	if externalPath == "" {
		return db, stats
	}

	file, err := os.Open(externalPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			stats.FileMissing = true
			logger.Infof("probe file %s not found, using builtin rules only", externalPath)
		} else {
			stats.FileErr = err
			logger.Warnf("probe file %s unreadable, using builtin rules only: %v", externalPath, err)
		}
		return db, stats
	}
	defer file.Close()

	probes, rules, fileStats, err := Parse(file)
	if err != nil {
		// 读到一半出错时保留已解析的部分
		fileStats.FileErr = err
		logger.Warnf("probe file %s: %v", externalPath, err)
	}
	fileStats.BuiltinRules = stats.BuiltinRules
	fileStats.CompileErrors += stats.CompileErrors

	db.probes = append(db.probes, probes...)
	db.rules = append(db.rules, rules...)
	return db, fileStats
}

// Rules 按插入顺序返回全部规则, 调用方不得修改
func (db *Database) Rules() []*Rule {
	return db.rules
}

// Probes 按插入顺序返回全部探针, 调用方不得修改
func (db *Database) Probes() []*Probe {
	return db.probes
}

// selectProbes 选出要发送的 TCP 探针
// 窄模式下只取声明了该端口的探针, 没有任何探针声明时退回全部
func (db *Database) selectProbes(port int, narrow bool) []*Probe {
	var all, declared []*Probe
	for _, p := range db.probes {
		if !p.IsTCP() {
			continue
		}
		all = append(all, p)
		if narrow && p.Declares(port) {
			declared = append(declared, p)
		}
	}
	if narrow && len(declared) > 0 {
		return declared
	}
	return all
}

// Payload 返回要发送的探针字节: 选中探针的非空载荷按顺序去重后拼接
func (db *Database) Payload(port int, narrow bool) []byte {
	var buf bytes.Buffer
	var seen [][]byte
	for _, p := range db.selectProbes(port, narrow) {
		if len(p.Payload) == 0 {
			continue
		}
		dup := false
		for _, s := range seen {
			if bytes.Equal(s, p.Payload) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, p.Payload)
		buf.Write(p.Payload)
	}
	return buf.Bytes()
}

// ReadWait 读取截止时间
// 窄模式下选中探针显式声明了 totalwaitms 时取其中最大值, 否则使用 def
func (db *Database) ReadWait(port int, narrow bool, def time.Duration) time.Duration {
	if !narrow {
		return def
	}
	var wait time.Duration
	for _, p := range db.selectProbes(port, true) {
		if p.waitSet && p.TotalWait > wait {
			wait = p.TotalWait
		}
	}
	if wait == 0 {
		return def
	}
	return wait
}

// TCPWrappedWait tcpwrapped 判定阈值, 取选中探针中的最小值
func (db *Database) TCPWrappedWait(port int, narrow bool) time.Duration {
	wait := DefaultTCPWrappedWait
	for i, p := range db.selectProbes(port, narrow) {
		if i == 0 || p.TCPWrappedWait < wait {
			wait = p.TCPWrappedWait
		}
	}
	return wait
}
