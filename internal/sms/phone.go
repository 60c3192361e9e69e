package sms

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidPhoneNumber 号码无法规范化为 E.164 格式
// 业务层负责转换为带错误码的 BizError
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

var (
	phoneStripper = strings.NewReplacer(" ", "", ".", "", "-", "", "(", "", ")", "", "\t", "")
	e164Pattern   = regexp.MustCompile(`^\+\d{8,15}$`)
	digitsOnly    = regexp.MustCompile(`^\d+$`)
)

// NormalizePhone 将用户输入的手机号规范化为 E.164 格式（+ 加 8-15 位数字）
// 规则按顺序执行：
//  1. 去除空白、点、横线、括号
//  2. 0 开头且恰好 10 位数字：视为法国国内号码，0 替换为 +33
//  3. 33 开头且无 +：补 +
//  4. 00 开头：替换为 +
//
// 最终结果必须匹配 ^\+\d{8,15}$，否则返回 ErrInvalidPhoneNumber，绝不猜测补全。
// 规则 2 必须先于规则 3：一个 10 位国内号码可能同时命中 33 前缀。
func NormalizePhone(raw string) (string, error) {
	cleaned := phoneStripper.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return "", ErrInvalidPhoneNumber
	}

	switch {
	case strings.HasPrefix(cleaned, "0") && len(cleaned) == 10 && digitsOnly.MatchString(cleaned):
		// 法国国内格式 0XXXXXXXXX -> +33XXXXXXXXX
		cleaned = "+33" + cleaned[1:]
	case strings.HasPrefix(cleaned, "33") && !strings.HasPrefix(cleaned, "+"):
		cleaned = "+" + cleaned
	case strings.HasPrefix(cleaned, "00"):
		cleaned = "+" + cleaned[2:]
	}

	if !e164Pattern.MatchString(cleaned) {
		return "", ErrInvalidPhoneNumber
	}
	return cleaned, nil
}
