// Package pinyin wraps go-pinyin for the quick local lookups behind the
// /pinyin command and reply shortcuts.
package pinyin

import (
	"strings"
	"unicode"

	gopinyin "github.com/mozillazg/go-pinyin"
)

// ToPinyin converts Chinese text to pinyin with tone marks. Non-Han runes
// pass through unchanged.
func ToPinyin(text string) string {
	args := gopinyin.NewArgs()
	args.Style = gopinyin.Tone
	return convert(text, args, " ")
}

// ToPinyinNumbers converts Chinese text to pinyin with tone numbers.
func ToPinyinNumbers(text string) string {
	args := gopinyin.NewArgs()
	args.Style = gopinyin.Tone2
	return convert(text, args, " ")
}

// InlinePinyin annotates each Han character with its pinyin in parentheses,
// e.g. 你(nǐ)好(hǎo).
func InlinePinyin(text string) string {
	args := gopinyin.NewArgs()
	args.Style = gopinyin.Tone
	var sb strings.Builder
	for _, r := range text {
		if !unicode.Is(unicode.Han, r) {
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(r)
		if py := gopinyin.SinglePinyin(r, args); len(py) > 0 {
			sb.WriteString("(")
			sb.WriteString(py[0])
			sb.WriteString(")")
		}
	}
	return sb.String()
}

// ContainsChinese reports whether text has at least one Han character.
func ContainsChinese(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// convert renders each Han rune via go-pinyin and keeps everything else
// as-is. go-pinyin's slice API drops non-Han runes, which would mangle mixed
// text.
func convert(text string, args gopinyin.Args, sep string) string {
	var parts []string
	var pending strings.Builder
	flush := func() {
		if pending.Len() > 0 {
			parts = append(parts, strings.TrimSpace(pending.String()))
			pending.Reset()
		}
	}
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			flush()
			if py := gopinyin.SinglePinyin(r, args); len(py) > 0 {
				parts = append(parts, py[0])
			} else {
				parts = append(parts, string(r))
			}
			continue
		}
		pending.WriteRune(r)
	}
	flush()
	return strings.Join(parts, sep)
}
