package collector

import (
	"strings"
	"time"
)

// TimeLayout 是 published_at / fetched_at 的固定宽度格式（UTC，零填充），
// 字符串字典序与时间先后一致。
const TimeLayout = "2006-01-02T15:04:05Z"

// DateLayout 是 targetDate 的格式
const DateLayout = "2006-01-02"

// 东八区，用于按自然日匹配 targetDate
var locEast8 *time.Location

func init() {
	locEast8, _ = time.LoadLocation("Asia/Shanghai")
	if locEast8 == nil {
		locEast8 = time.FixedZone("CST", 8*3600)
	}
}

// FormatTime 将时间格式化为规范字符串
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime 解析 FormatTime 生成的字符串
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// ValidDate 判断 targetDate 是否为合法的 2006-01-02 日期
func ValidDate(date string) bool {
	_, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), locEast8)
	return err == nil
}

// MatchDate 判断 t 是否落在 targetDate（东八区自然日）。
// targetDate 为空或无法解析时不过滤。
func MatchDate(t time.Time, targetDate string) bool {
	targetDate = strings.TrimSpace(targetDate)
	if targetDate == "" {
		return true
	}
	day, err := time.ParseInLocation(DateLayout, targetDate, locEast8)
	if err != nil {
		return true
	}
	return t.In(locEast8).Format(DateLayout) == day.Format(DateLayout)
}

// Today 返回 now 在东八区的日期，作为定时采集的 targetDate
func Today(now time.Time) string {
	return now.In(locEast8).Format(DateLayout)
}
