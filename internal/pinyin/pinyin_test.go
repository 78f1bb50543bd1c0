package pinyin

import (
	"strings"
	"testing"
)

func TestToPinyin(t *testing.T) {
	got := ToPinyin("你好")
	if got != "nǐ hǎo" {
		t.Fatalf("ToPinyin(你好) = %q", got)
	}
}

func TestToPinyinMixedText(t *testing.T) {
	got := ToPinyin("我喜欢coffee")
	if !strings.Contains(got, "wǒ") || !strings.Contains(got, "coffee") {
		t.Fatalf("mixed text mangled: %q", got)
	}
}

func TestToPinyinNumbers(t *testing.T) {
	got := ToPinyinNumbers("你好")
	if !strings.Contains(got, "3") {
		t.Fatalf("expected tone numbers, got %q", got)
	}
}

func TestInlinePinyin(t *testing.T) {
	got := InlinePinyin("你好")
	if got != "你(nǐ)好(hǎo)" {
		t.Fatalf("InlinePinyin(你好) = %q", got)
	}
}

func TestInlinePinyinKeepsNonHan(t *testing.T) {
	got := InlinePinyin("hi 你")
	if !strings.HasPrefix(got, "hi ") {
		t.Fatalf("non-Han prefix mangled: %q", got)
	}
}

func TestContainsChinese(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"你好", true},
		{"hello 世界", true},
		{"hello world", false},
		{"", false},
		{"123!?", false},
	}
	for _, tc := range tests {
		if got := ContainsChinese(tc.text); got != tc.want {
			t.Errorf("ContainsChinese(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
