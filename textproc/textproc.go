// Package textproc shields terminology and chat markup from the translator,
// restores it afterward, and tidies up the particles the model tends to get
// wrong in Korean output.
package textproc

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	recruitPattern = regexp.MustCompile(`@[A-Za-z0-9\x{3040}-\x{30ff}\x{4e00}-\x{9faf}]+(?:\s+[A-Za-z0-9\x{3040}-\x{30ff}\x{4e00}-\x{9faf}]+)*`)

	numSpecies = regexp.MustCompile(`(\d+)種`)
	numPeople  = regexp.MustCompile(`(\d+)人`)
	numLaps    = regexp.MustCompile(`(\d+)周`)
	numTimes   = regexp.MustCompile(`(\d+)回`)

	josaPattern  = regexp.MustCompile(`([\x{AC00}-\x{D7A3}a-zA-Z0-9)])(을|를|이|가|은|는|와|과)([^\x{AC00}-\x{D7A3}]|$)`)
	josaSpaced   = regexp.MustCompile(`([\x{AC00}-\x{D7A3}a-zA-Z0-9)])\s+(을|를|이|가|은|는|와|과)([^\x{AC00}-\x{D7A3}]|$)`)
	thinkPattern = regexp.MustCompile(`(?s)<think>.*?</think>\s*`)
	spacePunct   = regexp.MustCompile(`\s+([.!?,~])`)
	extraSpace   = regexp.MustCompile(`\s+`)
)

// ShieldData is the result of preprocessing: the masked text sent to the
// translator, plus the placeholder-to-original mapping needed to restore it.
type ShieldData struct {
	MaskedText   string
	Replacements map[string]string
}

// Preprocess shields recruitment tags, custom-dictionary terms, and numeric
// units behind [P<n>] placeholders before the text reaches the translator.
// nicknameRomaji/originalNickname are optional; when both are set and
// originalNickname occurs in text, it is replaced with nicknameRomaji
// directly (not placeholder-masked) before any other step runs.
func Preprocess(input string, customDict map[string]string, nicknameRomaji, originalNickname string) ShieldData {
	text := input
	replacements := make(map[string]string)
	pCount := 0

	if nicknameRomaji != "" && originalNickname != "" && strings.Contains(text, originalNickname) {
		text = strings.ReplaceAll(text, originalNickname, nicknameRomaji)
	}

	mask := func(target, replacement string) {
		placeholder := fmt.Sprintf("[P%d]", pCount)
		text = strings.ReplaceAll(text, target, placeholder)
		replacements[placeholder] = replacement
		pCount++
	}

	for _, m := range recruitPattern.FindAllString(text, -1) {
		mask(m, m)
	}

	terms := make([]string, 0, len(customDict))
	for ja := range customDict {
		terms = append(terms, ja)
	}
	sort.Slice(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })

	for _, ja := range terms {
		if strings.Contains(text, ja) {
			mask(ja, customDict[ja])
		}
	}

	text, pCount = maskNumericUnit(text, numSpecies, "종", replacements, pCount)
	text, pCount = maskNumericUnit(text, numPeople, "인", replacements, pCount)
	text, pCount = maskNumericUnit(text, numLaps, "주", replacements, pCount)
	text, _ = maskNumericUnit(text, numTimes, "회", replacements, pCount)

	return ShieldData{MaskedText: text, Replacements: replacements}
}

func maskNumericUnit(text string, pattern *regexp.Regexp, suffix string, replacements map[string]string, pCount int) (string, int) {
	out := pattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := pattern.FindStringSubmatch(match)
		placeholder := fmt.Sprintf("[P%d]", pCount)
		replacements[placeholder] = groups[1] + suffix
		pCount++
		return placeholder
	})
	return out, pCount
}

// Postprocess strips think-tag sections from raw inference output, restores
// shielded placeholders, tidies punctuation spacing, fixes Korean particles,
// and collapses whitespace.
func Postprocess(translated string, shield ShieldData) string {
	text := thinkPattern.ReplaceAllString(translated, "")

	for placeholder, replacement := range shield.Replacements {
		text = strings.ReplaceAll(text, placeholder, replacement)
	}

	text = spacePunct.ReplaceAllString(text, "$1")
	text = fixKoreanJosa(text)
	text = extraSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// fixKoreanJosa first joins particles written as a separate word onto the
// word before them, then corrects particles already attached to a word.
func fixKoreanJosa(text string) string {
	for _, pattern := range []*regexp.Regexp{josaSpaced, josaPattern} {
		text = pattern.ReplaceAllStringFunc(text, func(match string) string {
			groups := pattern.FindStringSubmatch(match)
			word, particle, trailing := groups[1], groups[2], groups[3]

			lastChar := rune(' ')
			runes := []rune(word)
			if len(runes) > 0 {
				lastChar = runes[len(runes)-1]
			}

			return word + fixParticle(particle, hasBatchim(lastChar)) + trailing
		})
	}
	return text
}

func fixParticle(particle string, finalConsonant bool) string {
	switch particle {
	case "을", "를":
		if finalConsonant {
			return "을"
		}
		return "를"
	case "이", "가":
		if finalConsonant {
			return "이"
		}
		return "가"
	case "은", "는":
		if finalConsonant {
			return "은"
		}
		return "는"
	case "와", "과":
		if finalConsonant {
			return "과"
		}
		return "와"
	default:
		return particle
	}
}

const batchimFallback = "013678lmnLMN"

// hasBatchim reports whether c, as the last character of a Korean word or a
// tolerated ASCII/digit stand-in, is treated as ending in a final consonant
// for particle-selection purposes.
func hasBatchim(c rune) bool {
	if c >= 0xAC00 && c <= 0xD7A3 {
		return (c-0xAC00)%28 != 0
	}
	return strings.ContainsRune(batchimFallback, c)
}
