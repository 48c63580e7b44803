// Package refine decides whether a raw transcript is rewritten by a local
// language model, builds the rewrite instruction, and undoes stylistic
// additions the model was told not to make.
package refine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Thresholds for the mostly-English skip. They are tuned against a
// Chinese/English corpus and are not configuration.
const (
	MinEnglishLetters = 16
	EnglishRatio      = 0.9
)

// Soft sentence-final particles the model must not introduce.
const (
	particleYa = '呀'
	particleNe = '呢'
)

func isTerminalPunct(r rune) bool {
	switch r {
	case '。', '！', '？', '.', '!', '?', '…':
		return true
	}
	return false
}

func isSoftParticle(r rune) bool {
	return r == particleYa || r == particleNe
}

func isCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// ShouldSkip reports whether raw should bypass refinement: it is blank, or
// it has at least MinEnglishLetters ASCII letters making up at least
// EnglishRatio of its letters and CJK ideographs. Text with neither is sent.
func ShouldSkip(raw string) bool {
	t := strings.TrimSpace(raw)
	if t == "" {
		return true
	}

	var letters, cjk int
	for _, r := range t {
		switch {
		case isASCIILetter(r):
			letters++
		case isCJK(r):
			cjk++
		}
	}
	total := letters + cjk
	if total == 0 {
		return false
	}
	ratio := float64(letters) / float64(total)
	return letters >= MinEnglishLetters && ratio >= EnglishRatio
}

const promptTemplate = `你是输入法润色器。将 ASR 文本整理为可直接发送的自然表达。
规则：
1) 保留原意与事实，不新增信息；
2) 删除重复、卡顿与明显口吃；语气词与语气助词仅在原文已有且承载语义时保留，不得自行新增句末“呀/呢”；
3) 专名、数字、代码、URL 原样保留；
4) 若原文含英文/中英混合，尽量保留英文词形、大小写与常见短语，不强制翻译为中文；
5) 若存在明显 ASR 误识（同音误字、语境不通），可基于上下文做最小必要纠正；若不确定，保留原词，不要臆造；
6) 优先贴近用户原始说话方式：保留原句式、措辞与语气强弱，不要强行“职业化”“官方化”或套用固定人设口吻；
7) 若原文本无技术词，不要硬加；若原文有技术词，按原习惯保留，不做生硬替换；
8) 可做轻微顺句与标点修复，但总体风格应平实克制，像“用户本人说的话”；
9) 若原文句末无“呀/呢”，输出句末也不要新增“呀/呢”；
10) 若内容确为空，输出空字符串；
11) 只输出最终文本，不解释、不提问。

`

// BuildPrompt wraps raw in the rewrite instruction.
func BuildPrompt(raw string) string {
	return promptTemplate + raw
}

// hasTerminalPunct reports whether s ends in terminal punctuation, ignoring
// trailing whitespace.
func hasTerminalPunct(s string) bool {
	r, _ := lastRune(strings.TrimRightFunc(s, unicode.IsSpace))
	return isTerminalPunct(r)
}

// splitTrailingPunct splits s into its core and the run of terminal
// punctuation and whitespace that ends it.
func splitTrailingPunct(s string) (core, suffix string) {
	cut := len(s)
	for cut > 0 {
		r, size := lastRune(s[:cut])
		if !unicode.IsSpace(r) && !isTerminalPunct(r) {
			break
		}
		cut -= size
	}
	return s[:cut], s[cut:]
}

func lastRune(s string) (rune, int) {
	if s == "" {
		return 0, 0
	}
	return utf8.DecodeLastRuneInString(s)
}

// PostProcess removes a terminal period the model added when raw had no
// terminal punctuation, and a trailing soft particle the model added when
// raw did not end in one. The result is trimmed.
func PostProcess(raw, refined string) string {
	out := strings.TrimSpace(refined)

	if !hasTerminalPunct(raw) {
		for {
			r, size := lastRune(out)
			if r != '。' && r != '.' {
				break
			}
			out = strings.TrimRightFunc(out[:len(out)-size], unicode.IsSpace)
		}
	}

	rawCore, _ := splitTrailingPunct(strings.TrimSpace(raw))
	rawTail, _ := lastRune(strings.TrimRightFunc(rawCore, unicode.IsSpace))
	if !isSoftParticle(rawTail) {
		core, suffix := splitTrailingPunct(strings.TrimSpace(out))
		core = strings.TrimRightFunc(core, unicode.IsSpace)
		if tail, size := lastRune(core); isSoftParticle(tail) {
			core = strings.TrimRightFunc(core[:len(core)-size], unicode.IsSpace)
			out = core + suffix
		}
	}

	return strings.TrimSpace(out)
}
