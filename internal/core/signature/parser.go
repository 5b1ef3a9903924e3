package signature

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"neorecon/internal/pkg/logger"
)

var (
	probeRegexp = regexp.MustCompile(`^Probe (TCP|UDP) ([a-zA-Z0-9_\-]+) q\|([^|]*)\|(?: .*)?$`)
	hexEscape   = regexp.MustCompile(`^[0-9a-fA-F]{2}$`)
)

var (
	errMalformed  = errors.New("malformed line")
	errDisallowed = errors.New("disallowed pattern syntax")
	errCompile    = errors.New("pattern does not compile")
)

// disallowedSequences 简化匹配器不支持的模式片段, 含有这些片段的规则直接丢弃
var disallowedSequences = []string{"**", `\`, "^"}

// parser 行级解析器, 逐行消费并在 stats 中记录跳过原因
type parser struct {
	probes  []*Probe
	rules   []*Rule
	current *Probe
	stats   *LoadStats
	lineNo  int
}

// Parse 解析 nmap-service-probes 风格的探针文件
// 任何单行错误都只会跳过该行, 不会中断解析
func Parse(r io.Reader) ([]*Probe, []*Rule, LoadStats, error) {
	var stats LoadStats
	p := &parser{stats: &stats}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.lineNo++
		p.parseLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return p.probes, p.rules, stats, fmt.Errorf("read probe file: %w", err)
	}
	return p.probes, p.rules, stats, nil
}

func (p *parser) parseLine(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	if strings.HasPrefix(line, "Probe ") {
		probe, err := parseProbeLine(line)
		if err != nil {
			p.skip(errMalformed, line, err)
			p.current = nil
			return
		}
		p.current = probe
		p.probes = append(p.probes, probe)
		p.stats.Probes++
		return
	}

	// Exclude 指令对连接扫描无意义
	if strings.HasPrefix(line, "Exclude ") {
		return
	}

	if p.current == nil {
		p.stats.Orphaned++
		return
	}

	directive, value, _ := strings.Cut(line, " ")
	value = strings.TrimSpace(value)

	var err error
	switch directive {
	case "match", "softmatch":
		var rule *Rule
		rule, err = parseMatchLine(value, directive == "softmatch", p.current.Name, p.stats)
		if err == nil {
			p.rules = append(p.rules, rule)
			p.stats.Rules++
			return
		}
	case "totalwaitms":
		var d time.Duration
		if d, err = parseMillis(value); err == nil {
			p.current.TotalWait = d
			p.current.waitSet = true
		}
	case "tcpwrappedms":
		var d time.Duration
		if d, err = parseMillis(value); err == nil {
			p.current.TCPWrappedWait = d
		}
	case "ports":
		p.current.Ports, err = ParsePortList(value)
	case "sslports":
		p.current.SSLPorts, err = ParsePortList(value)
	case "rarity":
		p.current.Rarity, err = strconv.Atoi(value)
	case "fallback":
		if value == "" {
			err = errors.New("empty fallback")
		} else {
			p.current.Fallback = strings.Split(value, ",")
		}
	default:
		err = fmt.Errorf("unknown directive %q", directive)
	}

	if err != nil {
		if errors.Is(err, errDisallowed) {
			p.skip(errDisallowed, line, err)
		} else if errors.Is(err, errCompile) {
			p.skip(errCompile, line, err)
		} else {
			p.skip(errMalformed, line, err)
		}
	}
}

func (p *parser) skip(kind error, line string, err error) {
	switch kind {
	case errDisallowed:
		p.stats.Disallowed++
	case errCompile:
		p.stats.CompileErrors++
	default:
		p.stats.Malformed++
	}
	if logger.IsDebugEnabled() {
		logger.Debugf("probe file line %d skipped (%v): %s", p.lineNo, err, line)
	}
}

func parseProbeLine(line string) (*Probe, error) {
	m := probeRegexp.FindStringSubmatch(line)
	if m == nil {
		return nil, errors.New("invalid probe declaration")
	}
	payload, err := unescapePayload(m[3])
	if err != nil {
		return nil, err
	}
	return &Probe{
		Protocol:       m[1],
		Name:           m[2],
		Payload:        payload,
		TotalWait:      DefaultTotalWait,
		TCPWrappedWait: DefaultTCPWrappedWait,
	}, nil
}

// unescapePayload 处理 \r \n \t \0 \\ \xHH 转义
func unescapePayload(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		if i+1 >= len(s) {
			return nil, errors.New("dangling escape")
		}
		i++
		switch s[i] {
		case 'r':
			out = append(out, '\r')
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case '0':
			out = append(out, 0)
		case '\\':
			out = append(out, '\\')
		case 'x':
			if i+3 > len(s) {
				return nil, errors.New("short hex escape")
			}
			hex := s[i+1 : i+3]
			if !hexEscape.MatchString(hex) {
				return nil, fmt.Errorf("bad hex escape %q", hex)
			}
			v, _ := strconv.ParseUint(hex, 16, 8)
			out = append(out, byte(v))
			i += 2
		default:
			// 未知转义按字面保留
			out = append(out, s[i])
		}
	}
	return out, nil
}

// parseMatchLine 解析 "<service> m<d><pattern><d>[flags] [suffix]"
// 分隔符可以是任意字符
func parseMatchLine(line string, soft bool, probeName string, stats *LoadStats) (*Rule, error) {
	service, rest, ok := strings.Cut(line, " ")
	if !ok || service == "" {
		return nil, errors.New("missing service or pattern")
	}
	rest = strings.TrimLeft(rest, " ")
	if len(rest) < 3 || rest[0] != 'm' {
		return nil, errors.New("pattern must start with m<delim>")
	}

	delim := rest[1]
	body := rest[2:]
	end := strings.IndexByte(body, delim)
	if end < 0 {
		return nil, errors.New("unterminated pattern")
	}
	pattern := body[:end]
	tail := body[end+1:]

	flags, suffix, _ := strings.Cut(tail, " ")
	for _, f := range flags {
		if f != 'i' && f != 's' {
			return nil, fmt.Errorf("unknown pattern flag %q", f)
		}
	}
	if pattern == "" {
		return nil, errors.New("empty pattern")
	}

	for _, seq := range disallowedSequences {
		if strings.Contains(pattern, seq) {
			return nil, fmt.Errorf("%w: %q", errDisallowed, seq)
		}
	}

	re, err := compilePattern(pattern, flags)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errCompile, err)
	}

	rule := &Rule{
		Service: service,
		Probe:   probeName,
		Pattern: pattern,
		Primary: re,
		Soft:    soft,
	}
	parseVersionInfo(rule, suffix, stats)
	return rule, nil
}

// parseVersionInfo 解析版本信息后缀: p/vendor_product/ v/version/ o/os/ i/info/ cpe:/.../
// 标签后的第一个字符即分隔符; 格式错误时丢弃剩余部分
func parseVersionInfo(rule *Rule, input string, stats *LoadStats) {
	for {
		input = strings.TrimSpace(input)
		if len(input) < 2 {
			return
		}

		tag := input[:1]
		input = input[1:]
		if tag == "c" && strings.HasPrefix(input, "pe:") {
			tag = "cpe:"
			input = input[3:]
		}
		if len(input) == 0 {
			return
		}

		delim := input[0]
		input = input[1:]
		end := strings.IndexByte(input, delim)
		if end < 0 {
			return
		}
		val := input[:end]
		input = input[end+1:]

		if tag == "cpe:" {
			// cpe:/a:vendor:product/a 的尾部属性标记
			if strings.HasPrefix(input, "a") && (len(input) == 1 || input[1] == ' ') {
				input = input[1:]
			}
			// 模板形式补全前缀, 正则源保持原样
			if delim == '/' && placeholderRegexp.MatchString(val) {
				val = "cpe:/" + val
			}
		}

		var dst **Extractor
		switch tag {
		case "v":
			dst = &rule.Version
		case "p":
			dst = &rule.Product
		case "o":
			dst = &rule.OS
		case "i":
			dst = &rule.Extra
		case "cpe:":
			dst = &rule.CPE
		default:
			// h/ d/ 等字段不在 ServiceInfo 中
			continue
		}
		if *dst != nil {
			continue
		}

		ex, err := newExtractor(val)
		if err != nil {
			stats.BadExtractors++
			if logger.IsDebugEnabled() {
				logger.Debugf("extractor skipped for %s: %v", rule.Service, err)
			}
			continue
		}
		*dst = ex
	}
}

func parseMillis(s string) (time.Duration, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid milliseconds %q", s)
	}
	return time.Duration(n) * time.Millisecond, nil
}

// ParsePortList 解析 "22,80,8000-8010" 形式的端口列表
func ParsePortList(s string) ([]int, error) {
	var ports []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(lo)
			end, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil || start < 1 || end > 65535 || start > end {
				return nil, fmt.Errorf("invalid port range %q", part)
			}
			for i := start; i <= end; i++ {
				ports = append(ports, i)
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil || p < 1 || p > 65535 {
			return nil, fmt.Errorf("invalid port %q", part)
		}
		ports = append(ports, p)
	}
	if len(ports) == 0 {
		return nil, errors.New("empty port list")
	}
	return ports, nil
}
