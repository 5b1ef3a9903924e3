package signature

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2" // 原生支持 PCRE 风格的正则, 与 nmap 规则语法兼容
)

// MatchTimeout 单次匹配超时, 超时按未命中处理
const MatchTimeout = 100 * time.Millisecond

var placeholderRegexp = regexp.MustCompile(`\$\d`)

// compilePattern 编译正则, flags 只识别 i/s
func compilePattern(pattern, flags string) (*regexp2.Regexp, error) {
	if strings.Contains(flags, "s") {
		pattern = "(?s)" + pattern
	}
	if strings.Contains(flags, "i") {
		pattern = "(?i)" + pattern
	}

	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = MatchTimeout
	return re, nil
}

// newExtractor 含 $N 占位符的按模板处理, 其余按正则源编译
func newExtractor(source string) (*Extractor, error) {
	if source == "" {
		return nil, nil
	}
	if placeholderRegexp.MatchString(source) {
		return &Extractor{Source: source, Template: source}, nil
	}
	re, err := compilePattern(source, "")
	if err != nil {
		return nil, fmt.Errorf("compile extractor %q: %w", source, err)
	}
	return &Extractor{Source: source, Regexp: re}, nil
}

// compileSpec 编译内置规则
func compileSpec(spec RuleSpec, probeName string) (*Rule, error) {
	primary, err := compilePattern(spec.Pattern, "")
	if err != nil {
		return nil, fmt.Errorf("compile %s primary: %w", spec.Service, err)
	}

	rule := &Rule{
		Service: spec.Service,
		Probe:   probeName,
		Pattern: spec.Pattern,
		Primary: primary,
	}

	fields := []struct {
		src string
		dst **Extractor
	}{
		{spec.Version, &rule.Version},
		{spec.Product, &rule.Product},
		{spec.OS, &rule.OS},
		{spec.Extra, &rule.Extra},
		{spec.CPE, &rule.CPE},
	}
	for _, f := range fields {
		ex, err := newExtractor(f.src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec.Service, err)
		}
		*f.dst = ex
	}

	for _, v := range spec.Vulns {
		re, err := compilePattern(v.Pattern, "")
		if err != nil {
			return nil, fmt.Errorf("compile %s vuln hint: %w", spec.Service, err)
		}
		rule.Vulns = append(rule.Vulns, VulnHint{Pattern: re, Advisory: v.Advisory})
	}
	return rule, nil
}
