package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ServiceInfo 指纹匹配结果
// 除 Name 外所有字段都是尽力提取, 可以为空
type ServiceInfo struct {
	Name      string            `json:"name"`
	Version   string            `json:"version,omitempty"`
	Product   string            `json:"product,omitempty"`
	OS        string            `json:"os,omitempty"`
	ExtraInfo string            `json:"extra_info,omitempty"`
	CPE       string            `json:"cpe,omitempty"`
	Vulns     []string          `json:"vulnerabilities,omitempty"`
	Soft      bool              `json:"soft,omitempty"`     // 由 softmatch 规则命中
	Metadata  map[string]string `json:"metadata,omitempty"` // 协议客户端二次确认得到的附加信息
}

// Clone 深拷贝, 供二次确认阶段在不影响原结果的前提下追加信息
func (s *ServiceInfo) Clone() *ServiceInfo {
	if s == nil {
		return nil
	}
	c := *s
	if s.Vulns != nil {
		c.Vulns = append([]string(nil), s.Vulns...)
	}
	if s.Metadata != nil {
		c.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// ScanResult 一个开放端口的最终记录, 创建后不可变
type ScanResult struct {
	IP          string        `json:"ip"`
	Port        uint16        `json:"port"`
	Service     *ServiceInfo  `json:"service"`
	RawResponse []byte        `json:"-"`
	Latency     time.Duration `json:"-"`
}

// Endpoint ip:port, IPv6 加方括号
func (r ScanResult) Endpoint() string {
	if strings.Contains(r.IP, ":") {
		return "[" + r.IP + "]:" + strconv.Itoa(int(r.Port))
	}
	return r.IP + ":" + strconv.Itoa(int(r.Port))
}

// ServiceName 未识别时返回 unknown
func (r ScanResult) ServiceName() string {
	if r.Service == nil || r.Service.Name == "" {
		return "unknown"
	}
	return r.Service.Name
}

// MarshalJSON 原始响应按有损 UTF-8 文本输出, 便于人工查看
func (r ScanResult) MarshalJSON() ([]byte, error) {
	type alias ScanResult
	return json.Marshal(struct {
		alias
		RawResponse string `json:"raw_response"`
		LatencyMs   int64  `json:"latency_ms"`
	}{
		alias:       alias(r),
		RawResponse: LossyString(r.RawResponse),
		LatencyMs:   r.Latency.Milliseconds(),
	})
}

// Headers 实现 TabularData 接口
// IP       | Port | Service | Product      | Version | Vulns
// 10.0.0.1 | 22   | ssh     | OpenSSH_8.2p1| 2.0     |
func (r ScanResult) Headers() []string {
	return []string{"IP", "Port", "Service", "Product", "Version", "OS", "Vulns"}
}

// Rows 实现 TabularData 接口
func (r ScanResult) Rows() [][]string {
	row := []string{r.IP, strconv.Itoa(int(r.Port)), r.ServiceName(), "", "", "", ""}
	if s := r.Service; s != nil {
		row[3] = s.Product
		row[4] = s.Version
		row[5] = s.OS
		row[6] = strings.Join(s.Vulns, "; ")
	}
	return [][]string{row}
}

// ScanResults 结果集合, 作为整体渲染为表格
type ScanResults []ScanResult

func (rs ScanResults) Headers() []string {
	return ScanResult{}.Headers()
}

func (rs ScanResults) Rows() [][]string {
	rows := make([][]string, 0, len(rs))
	for _, r := range rs {
		rows = append(rows, r.Rows()...)
	}
	return rows
}

// LossyString 有损 UTF-8 解码, 每个非法字节替换为 U+FFFD
func LossyString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out := make([]rune, 0, len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		out = append(out, r)
		b = b[size:]
	}
	return string(out)
}
