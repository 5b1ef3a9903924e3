package signature

import (
	"time"

	"github.com/dlclark/regexp2"
)

// 默认等待时间
const (
	DefaultTotalWait      = 6000 * time.Millisecond
	DefaultTCPWrappedWait = 3000 * time.Millisecond
)

// Probe 探针定义
type Probe struct {
	Name     string
	Protocol string // TCP / UDP
	Payload  []byte // 空表示只监听 Banner

	TotalWait      time.Duration
	TCPWrappedWait time.Duration
	waitSet        bool // totalwaitms 是否被显式设置

	Ports    []int
	SSLPorts []int
	Rarity   int
	Fallback []string
}

// IsTCP UDP 探针只解析不发送
func (p *Probe) IsTCP() bool {
	return p.Protocol == "TCP"
}

// Declares 探针是否声明了该端口
func (p *Probe) Declares(port int) bool {
	for _, v := range p.Ports {
		if v == port {
			return true
		}
	}
	for _, v := range p.SSLPorts {
		if v == port {
			return true
		}
	}
	return false
}

// Extractor 次级字段提取器
// Regexp 非空时对整个响应做匹配取第一个捕获组
// 否则 Template 中的 $N 由主规则的捕获组替换
type Extractor struct {
	Source   string
	Regexp   *regexp2.Regexp
	Template string
}

// VulnHint 漏洞提示: 响应命中正则即附带该公告
type VulnHint struct {
	Pattern  *regexp2.Regexp
	Advisory string
}

// Rule 一条编译后的匹配规则
// 主正则命中是识别的必要条件, 次级提取互相独立, 都可以为空
type Rule struct {
	Service string
	Probe   string // 所属探针名称
	Pattern string
	Primary *regexp2.Regexp
	Soft    bool

	Version *Extractor
	Product *Extractor
	OS      *Extractor
	Extra   *Extractor
	CPE     *Extractor

	Vulns []VulnHint
}

// RuleSpec 未编译的规则描述, 内置规则以此形式给出
type RuleSpec struct {
	Service string
	Pattern string
	Version string
	Product string
	OS      string
	Extra   string
	CPE     string
	Vulns   []VulnSpec
	Probe   []byte
	Ports   []int
}

// VulnSpec 未编译的漏洞提示
type VulnSpec struct {
	Pattern  string
	Advisory string
}
