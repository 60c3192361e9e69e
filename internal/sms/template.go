package sms

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// RenderTemplate 将 {{name}} 占位符替换为 vars 中的同名值
// 未提供的占位符替换为空字符串（移除），不保留字面文本。
// 这是有意的产品策略：错拼的变量名宁可输出空白，也不把 {{xxx}} 原样发给终端用户。
func RenderTemplate(tpl string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(tpl, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		return vars[name]
	})
}

// TemplateVariables 提取模板中不重复的占位符名称（按首次出现顺序）
func TemplateVariables(tpl string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(tpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// MissingVariables 返回模板需要但 vars 未提供的变量名列表
func MissingVariables(tpl string, vars map[string]string) []string {
	var missing []string
	for _, name := range TemplateVariables(tpl) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
