/**
 * 指纹匹配器
 * @author: Sun977
 * @date: 2026.02.10
 * @description: 按插入顺序遍历规则, 第一条主正则命中的规则胜出, 不打分
 *   次级字段独立提取, 漏洞提示全部收集
 */

package fingerprint

import (
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"neorecon/internal/core/model"
	"neorecon/internal/core/probe"
	"neorecon/internal/core/signature"
)

// TCPWrapped 对端接受连接后未发送任何数据即关闭
const TCPWrapped = "tcpwrapped"

// Match 对响应文本匹配指纹库, 未命中返回 nil (开放端口, 服务未知)
// 结果只取决于输入, 同一响应多次匹配结果一致
func Match(text string, db *signature.Database) *model.ServiceInfo {
	if text == "" || db == nil {
		return nil
	}

	for _, rule := range db.Rules() {
		m, err := rule.Primary.FindStringMatch(text)
		if err != nil || m == nil {
			// 匹配超时按未命中处理
			continue
		}
		return extract(rule, text, groups(m))
	}
	return nil
}

// Identify 在 Match 的基础上识别 tcpwrapped:
// 未发送任何载荷, 对端在阈值内未返回任何字节就关闭了连接
// 发送过载荷后被关闭只说明对端拒绝了这些数据, 仍按未识别处理
func Identify(resp probe.Response, db *signature.Database, tcpWrappedWait time.Duration) *model.ServiceInfo {
	if info := Match(resp.Text(), db); info != nil {
		return info
	}
	if resp.Written == 0 && len(resp.Raw) == 0 && resp.PeerClosed && resp.Elapsed < tcpWrappedWait {
		return &model.ServiceInfo{Name: TCPWrapped}
	}
	return nil
}

func extract(rule *signature.Rule, text string, primaryGroups []string) *model.ServiceInfo {
	info := &model.ServiceInfo{
		Name:      rule.Service,
		Soft:      rule.Soft,
		Version:   apply(rule.Version, text, primaryGroups),
		Product:   apply(rule.Product, text, primaryGroups),
		OS:        apply(rule.OS, text, primaryGroups),
		ExtraInfo: apply(rule.Extra, text, primaryGroups),
		CPE:       apply(rule.CPE, text, primaryGroups),
	}

	for _, hint := range rule.Vulns {
		if ok, err := hint.Pattern.MatchString(text); err == nil && ok {
			info.Vulns = append(info.Vulns, hint.Advisory)
		}
	}
	return info
}

// apply 正则提取取第一个匹配的第一个捕获组, 无捕获组时取整个匹配
func apply(ex *signature.Extractor, text string, primaryGroups []string) string {
	if ex == nil {
		return ""
	}
	if ex.Regexp == nil {
		return strings.TrimSpace(replacePlaceholders(ex.Template, primaryGroups))
	}

	m, err := ex.Regexp.FindStringMatch(text)
	if err != nil || m == nil {
		return ""
	}
	gs := m.Groups()
	if len(gs) > 1 {
		return gs[1].String()
	}
	return m.String()
}

func groups(m *regexp2.Match) []string {
	gs := m.Groups()
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = g.String()
	}
	return out
}

// replacePlaceholders 从大到小替换, 避免 $1 吃掉 $10 的前缀
func replacePlaceholders(s string, submatches []string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	for i := len(submatches) - 1; i >= 1; i-- {
		s = strings.ReplaceAll(s, "$"+strconv.Itoa(i), submatches[i])
	}
	// 规则引用了不存在的分组
	for i := len(submatches); i <= 9; i++ {
		s = strings.ReplaceAll(s, "$"+strconv.Itoa(i), "")
	}
	return s
}
