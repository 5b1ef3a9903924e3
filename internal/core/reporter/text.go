package reporter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"neorecon/internal/core/model"
)

// TextReporter 人类可读的文本输出
//
//	10.0.0.1:22
//	  Service: ssh
//	  Version: 2.0
//	  Product: OpenSSH_8.2p1
type TextReporter struct {
	w io.Writer
}

func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{w: w}
}

func (r *TextReporter) Report(ctx context.Context, results model.ScanResults) error {
	bw := bufio.NewWriter(r.w)
	for _, res := range Sorted(results) {
		writeText(bw, res)
	}
	return bw.Flush()
}

func writeText(w io.Writer, res model.ScanResult) {
	fmt.Fprintln(w, res.Endpoint())

	s := res.Service
	if s == nil {
		fmt.Fprintln(w, "  unknown service")
		fmt.Fprintln(w)
		return
	}

	line := func(label, val string) {
		if val != "" {
			fmt.Fprintf(w, "  %s: %s\n", label, val)
		}
	}
	name := s.Name
	if s.Soft {
		name += "?"
	}
	line("Service", name)
	line("Version", s.Version)
	line("Product", s.Product)
	line("OS", s.OS)
	line("Extra", s.ExtraInfo)
	line("CPE", s.CPE)
	for _, v := range s.Vulns {
		line("Vuln", v)
	}
	for _, k := range slices.Sorted(maps.Keys(s.Metadata)) {
		line(k, s.Metadata[k])
	}
	fmt.Fprintln(w)
}
