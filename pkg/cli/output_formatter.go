package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"CveDash/internal/model"
	"CveDash/internal/utils"
)

type OutputFormatter struct {
	format string
	out    io.Writer
}

func NewOutputFormatter(format string) *OutputFormatter {
	return &OutputFormatter{format: format, out: os.Stdout}
}

// SetOutput 修改默认输出（测试中使用）
func (of *OutputFormatter) SetOutput(w io.Writer) {
	of.out = w
}

// PrintCVEs 输出CVE列表。outputFile不为空时写入文件
func (of *OutputFormatter) PrintCVEs(cves []model.CVE, total int, outputFile string) error {
	var output string

	switch strings.ToLower(of.format) {
	case "json":
		output = of.formatJSON(cves)
	case "csv":
		output = of.formatCSV(cves)
	default:
		output = of.formatTable(cves, total)
	}

	if outputFile != "" {
		return os.WriteFile(outputFile, []byte(output), 0644)
	}

	_, err := fmt.Fprint(of.out, output)
	return err
}

// formatTable 表格风格输出
func (of *OutputFormatter) formatTable(cves []model.CVE, total int) string {
	var builder strings.Builder

	builder.WriteString("\n🛡️  CVE 漏洞看板\n")
	builder.WriteString(strings.Repeat("═", 60) + "\n")
	builder.WriteString(fmt.Sprintf("显示 %d / %d 条记录\n\n", len(cves), total))

	if len(cves) == 0 {
		builder.WriteString("❌ 没有符合条件的CVE\n")
		return builder.String()
	}

	kevCount, exploitCount, criticalCount := 0, 0, 0
	for _, cve := range cves {
		if cve.InKEV {
			kevCount++
		}
		if len(cve.Exploits) > 0 {
			exploitCount++
		}
		if cve.IsCritical() {
			criticalCount++
		}
	}
	builder.WriteString(fmt.Sprintf("📊 统计: KEV(%d) | 有利用代码(%d) | 严重(%d)\n\n",
		kevCount, exploitCount, criticalCount))

	w := tabwriter.NewWriter(&builder, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CVE编号\tCVSS\tEPSS\tKEV\t年份\t类别\t受影响软件")

	for _, cve := range cves {
		kev := "-"
		if cve.InKEV {
			kev = "🚨"
		}

		class := "-"
		if cve.VulnerabilityClass != nil {
			class = utils.TruncateRunes(*cve.VulnerabilityClass, 30)
		}

		software := "-"
		if len(cve.AffectedSoftware) > 0 {
			software = cve.AffectedSoftware[0]
			if len(cve.AffectedSoftware) > 1 {
				software = fmt.Sprintf("%s [+%d]", software, len(cve.AffectedSoftware)-1)
			}
		}

		fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			severityIcon(cve), cve.ID,
			formatScore(cve.CVSS, 1),
			formatScore(cve.EPSS, 3),
			kev,
			cve.Year,
			class,
			software,
		)
	}
	w.Flush()

	// 利用代码
	if exploitCount > 0 {
		builder.WriteString("\n💣 公开的利用代码:\n")
		builder.WriteString(strings.Repeat("─", 40) + "\n")
		for _, cve := range cves {
			for _, exploit := range cve.Exploits {
				builder.WriteString(fmt.Sprintf("🔸 %s [%s] %s\n", cve.ID, exploit.Source, exploit.Name))
				if exploit.URL != "" {
					builder.WriteString(fmt.Sprintf("   🔗 %s\n", exploit.URL))
				}
			}
		}
	}

	builder.WriteString("\n" + strings.Repeat("═", 60) + "\n")
	return builder.String()
}

func severityIcon(cve model.CVE) string {
	switch cve.Severity() {
	case "CRITICAL":
		return "🔥"
	case "HIGH":
		return "🔴"
	case "MEDIUM":
		return "🟠"
	case "LOW", "NONE":
		return "🟢"
	default:
		return "⚪"
	}
}

func formatScore(v *float64, precision int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', precision, 64)
}

func (of *OutputFormatter) formatJSON(v interface{}) string {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "%v"}`, err)
	}
	return string(jsonBytes) + "\n"
}

func (of *OutputFormatter) formatCSV(cves []model.CVE) string {
	var builder strings.Builder
	writer := csv.NewWriter(&builder)

	writer.Write([]string{"id", "cvss", "epss", "inKev", "year", "vulnerabilityClass", "affectedSoftware", "exploits", "description"})

	for _, cve := range cves {
		class := ""
		if cve.VulnerabilityClass != nil {
			class = *cve.VulnerabilityClass
		}
		cvss, epss := "", ""
		if cve.CVSS != nil {
			cvss = formatScore(cve.CVSS, 1)
		}
		if cve.EPSS != nil {
			epss = formatScore(cve.EPSS, 3)
		}

		writer.Write([]string{
			cve.ID,
			cvss,
			epss,
			strconv.FormatBool(cve.InKEV),
			strconv.Itoa(cve.Year),
			class,
			strings.Join(cve.AffectedSoftware, ";"),
			strconv.Itoa(len(cve.Exploits)),
			cve.Description,
		})
	}

	writer.Flush()
	return builder.String()
}

// PrintReport 输出一次抓取任务的统计
func (of *OutputFormatter) PrintReport(report *model.RunReport) error {
	if strings.EqualFold(of.format, "json") {
		_, err := fmt.Fprint(of.out, of.formatJSON(report))
		return err
	}

	var builder strings.Builder
	builder.WriteString("\n" + strings.Repeat("═", 60) + "\n")
	if report.Skipped {
		builder.WriteString("⚠️  没有获取到任何记录，输出文件未更新\n")
	} else {
		builder.WriteString(fmt.Sprintf("✅ 已写入 %d 条CVE到 %s\n", report.Written, report.OutputPath))
	}
	builder.WriteString(fmt.Sprintf("   运行ID: %s\n", report.RunID))
	builder.WriteString(fmt.Sprintf("   耗时: %s\n", report.Duration.Round(time.Millisecond)))
	builder.WriteString(fmt.Sprintf("   NVD: 共 %d 条，获取 %d 条 (%d 页)\n", report.NVDTotal, report.Fetched, report.Pages))
	builder.WriteString(fmt.Sprintf("   KEV目录: %d 条\n", report.KEVCount))
	builder.WriteString(fmt.Sprintf("   🚨 在KEV中: %d\n", report.InKEV))
	builder.WriteString(fmt.Sprintf("   🔥 CVSS 9.0+: %d\n", report.Critical))
	if report.WithEPSS > 0 {
		builder.WriteString(fmt.Sprintf("   📈 有EPSS评分: %d\n", report.WithEPSS))
	}
	if report.Truncated > 0 {
		builder.WriteString(fmt.Sprintf("   ✂️  受影响软件被截断: %d\n", report.Truncated))
	}
	if report.Duplicates > 0 || report.Dropped > 0 {
		builder.WriteString(fmt.Sprintf("   重复: %d, 丢弃: %d\n", report.Duplicates, report.Dropped))
	}
	if report.Partial {
		builder.WriteString("   ⚠️  NVD分页中途失败，结果不完整\n")
	}
	for _, warning := range report.Warnings {
		builder.WriteString(fmt.Sprintf("   ⚠️  %s\n", warning))
	}
	builder.WriteString(strings.Repeat("═", 60) + "\n")

	_, err := fmt.Fprint(of.out, builder.String())
	return err
}

// PrintHistory 输出数据库中的运行历史
func (of *OutputFormatter) PrintHistory(history []model.UpdateHistory) error {
	if strings.EqualFold(of.format, "json") {
		if history == nil {
			history = []model.UpdateHistory{}
		}
		_, err := fmt.Fprint(of.out, of.formatJSON(history))
		return err
	}

	var builder strings.Builder
	if len(history) == 0 {
		builder.WriteString("📭 暂无更新历史\n")
		_, err := fmt.Fprint(of.out, builder.String())
		return err
	}

	w := tabwriter.NewWriter(&builder, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\t时间\t来源\t记录数\tKEV\t完整\t运行ID")
	for _, h := range history {
		complete := "✅"
		if h.Partial {
			complete = "⚠️"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			h.ID,
			h.LastUpdate.Local().Format("2006-01-02 15:04:05"),
			h.Source,
			h.Records,
			h.KEVCount,
			complete,
			h.RunID,
		)
	}
	w.Flush()

	_, err := fmt.Fprint(of.out, builder.String())
	return err
}
