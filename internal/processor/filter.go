package processor

import (
	"strings"

	"github.com/LJTian/FinNewsHub/internal/collector"
)

// FilterByKeywords 保留标题、摘要或来源中包含任一关键词（不区分大小写的子串匹配）的条目。
// keywords 为空或全为空白时原样返回。
func FilterByKeywords(items []collector.Item, keywords []string) []collector.Item {
	needles := normalizeKeywords(keywords)
	if len(needles) == 0 {
		return items
	}

	out := make([]collector.Item, 0, len(items))
	for _, it := range items {
		text := strings.ToLower(it.Title + " " + it.Summary + " " + it.Source)
		for _, kw := range needles {
			if strings.Contains(text, kw) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// ParseKeywords 解析逗号分隔的关键词（支持中文逗号），去掉空白项
func ParseKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '，' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
