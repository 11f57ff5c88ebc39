package collector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// summaryMaxRunes 摘要最大长度（按 rune 计，不含省略号）
const summaryMaxRunes = 200

// cleanSummary 去掉 HTML 标签并压缩空白，超长按 rune 截断
func cleanSummary(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	text := raw
	if strings.ContainsAny(raw, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
			text = doc.Text()
		}
	}
	return truncateRunes(collapseSpace(text), summaryMaxRunes)
}

// truncateRunes 按 rune 截断，超过 limit 时追加省略号，避免中文被截成半个字符
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit]) + "..."
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
