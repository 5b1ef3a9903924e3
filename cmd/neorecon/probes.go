package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"neorecon/internal/core/signature"
)

func newProbesCmd() *cobra.Command {
	var probeFile string

	cmd := &cobra.Command{
		Use:   "probes",
		Short: "加载并检查探针文件",
		Long:  `加载内置规则和外部探针文件, 输出探针列表及被跳过的条目统计。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if probeFile == "" {
				probeFile = appConfig.Probe.File
			}
			db, stats := signature.Load(signature.Builtins(), probeFile)
			if stats.FileErr != nil {
				return fmt.Errorf("failed to read probe file: %w", stats.FileErr)
			}
			if stats.FileMissing {
				pterm.Warning.WithWriter(os.Stderr).Printfln("probe file %q not found, built-in rules only", probeFile)
			}

			perProbe := make(map[string]int)
			for _, r := range db.Rules() {
				perProbe[r.Probe]++
			}

			table := pterm.TableData{{"Probe", "Protocol", "Payload", "Ports", "Wait", "Rarity", "Fallback", "Rules"}}
			for _, p := range db.Probes() {
				table = append(table, []string{
					p.Name,
					p.Protocol,
					strconv.Itoa(len(p.Payload)),
					strconv.Itoa(len(p.Ports) + len(p.SSLPorts)),
					p.TotalWait.String(),
					rarity(p.Rarity),
					strings.Join(p.Fallback, ","),
					strconv.Itoa(perProbe[p.Name]),
				})
			}
			out, err := pterm.DefaultTable.WithHasHeader(true).WithBoxed(false).WithData(table).Srender()
			if err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}
			fmt.Println(out)
			fmt.Println(stats.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&probeFile, "probes", "", "外部探针文件 (nmap-service-probes 格式)")
	return cmd
}

// rarity 未声明的显示为 -
func rarity(r int) string {
	if r == 0 {
		return "-"
	}
	return strconv.Itoa(r)
}
