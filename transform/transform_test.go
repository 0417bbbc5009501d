package transform

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestApply_PipelineOrder(t *testing.T) {
	// upper → "JOSÉ O'BRIEN", strip spaces → "JOSÉO'BRIEN", normalize → "JOSEOBRIEN"
	assert.Equal(t, "JOSEOBRIEN", Apply("José O'Brien", Upper, true, true))

	tests := []struct {
		name      string
		value     string
		mode      CaseMode
		spaces    bool
		normalize bool
		want      string
	}{
		{name: "identity", value: "José O'Brien", mode: Same, want: "José O'Brien"},
		{name: "empty mode is same", value: "MiXeD", mode: "", want: "MiXeD"},
		{name: "lower only", value: "José O'Brien", mode: Lower, want: "josé o'brien"},
		{name: "spaces only", value: "Mary Ann\tLee", mode: Same, spaces: true, want: "MaryAnnLee"},
		{name: "normalize keeps spaces", value: "Zoë D'Arcy", mode: Same, normalize: true, want: "Zoe DArcy"},
		{name: "capitalize then normalize", value: "élodie de la cruz", mode: Capitalize, spaces: true, normalize: true, want: "ElodieDeLaCruz"},
		{name: "lower with eszett", value: "Weiß", mode: Lower, normalize: true, want: "weiss"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Apply(tt.value, tt.mode, tt.spaces, tt.normalize))
		})
	}
}

func TestSwitchCase_Capitalize(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"john doe", "John Doe"},
		{"mcDONALD", "McDONALD"},
		{"  leading", "  Leading"},
		{"émile", "Émile"},
		{"", ""},
		{"a", "A"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, SwitchCase(tt.value, Capitalize))
		})
	}
}

func TestSwitchCase_UnknownModeIsIdentity(t *testing.T) {
	assert.Equal(t, "Abc", SwitchCase("Abc", CaseMode("title")))
	assert.False(t, CaseMode("title").Valid())
	assert.True(t, Upper.Valid())
	assert.True(t, CaseMode("").Valid())
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"Ångström", "Angstrom"},
		{"Łukasz Żółć", "Lukasz Zolc"},
		{"Søren Kierkegård", "Soren Kierkegard"},
		{"Þórr", "Thorr"},
		{"O’Neil", "ONeil"},
		{"Ærøskøbing", "AEroskobing"},
		{"Дмитрий", "Dmitrii"},
		{"plain", "plain"},
		{"Ольга", "Olga"},
		{"李", "Li"},
		{"北京", "BeiJing"},
		{"Wang 北京", "Wang BeiJing"},
		{"a\u00a0b", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.value))
		})
	}
}

func TestNormalize_OtherScriptsBecomeASCII(t *testing.T) {
	for _, value := range []string{"محمد", "דוד", "Գևորգ", "ნინო", "Ǆ", "Nguyễn Văn Anh"} {
		t.Run(value, func(t *testing.T) {
			got := Normalize(value)
			assert.NotEmpty(t, got)
			for _, r := range got {
				assert.Less(t, r, rune(utf8.RuneSelf), "non-ASCII %q in %q", r, got)
			}
		})
	}
}

func TestRemoveSpaces(t *testing.T) {
	assert.Equal(t, "abc", RemoveSpaces(" a\tb\nc "))
	assert.Equal(t, "ab", RemoveSpaces("a b"))
}
