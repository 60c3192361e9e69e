package sms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	out := RenderTemplate("Bonjour {{name}}, RDV le {{date}}", map[string]string{
		"name": "Alice",
		"date": "12/06",
	})
	assert.Equal(t, "Bonjour Alice, RDV le 12/06", out)
}

func TestRenderTemplate_UnknownPlaceholderRemoved(t *testing.T) {
	// 未提供的占位符移除为空串，不保留 {{...}} 字面量
	out := RenderTemplate("Hi {{name}}{{unknown}}!", map[string]string{"name": "Bob"})
	assert.Equal(t, "Hi Bob!", out)
}

func TestRenderTemplate_RepeatedPlaceholder(t *testing.T) {
	out := RenderTemplate("{{x}} et {{x}}", map[string]string{"x": "a"})
	assert.Equal(t, "a et a", out)
}

func TestTemplateVariables(t *testing.T) {
	names := TemplateVariables("{{a}} {{b}} {{ a }} {{c}}")
	assert.Equal(t, []string{"a", "b", "c"}, names)

	assert.Nil(t, TemplateVariables("no placeholders here"))
}

func TestMissingVariables(t *testing.T) {
	missing := MissingVariables("{{a}} {{b}} {{c}}", map[string]string{"b": "x"})
	assert.Equal(t, []string{"a", "c"}, missing)

	assert.Nil(t, MissingVariables("{{a}}", map[string]string{"a": ""}))
}
