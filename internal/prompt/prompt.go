// Package prompt builds the LLM prompts for tutoring conversations and
// on-demand lookups.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Builder renders prompts for a fixed target/native language pair. The
// learning level is passed per call because it can be changed at runtime via
// the /level command.
type Builder struct {
	Target string
	Native string
}

// System returns the system prompt for tutoring conversations.
func (b Builder) System(level, referenceMaterials string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `You are a friendly language learning tutor helping someone learn %[1]s.
The student's native language is %[2]s and their current level is %[3]s.

Your primary goal is to have natural conversations in %[1]s to help the student practice reading and writing.

CRITICAL RESPONSE FORMAT RULES:
- Respond ONLY in %[1]s characters. Do NOT include pinyin or romanization.
- Do NOT include translations. The student will request translations separately if needed.
- Your responses should contain ONLY %[1]s text.
- Adjust vocabulary and sentence complexity for a %[3]s learner, but always use only %[1]s characters.

Guidelines:
- Be encouraging but correct mistakes gently using only %[1]s
- When the student makes errors, provide the correct form naturally in your response
- Occasionally introduce new vocabulary related to the conversation topic
- Keep responses conversational and engaging
- If asked about grammar or vocabulary in %[2]s, you may explain in %[2]s, but otherwise stay in %[1]s
`, b.Target, b.Native, level)

	if referenceMaterials != "" {
		fmt.Fprintf(&sb, `
REFERENCE MATERIALS:
The following content comes from the student's learning materials (lessons, presentations, tutor notes).
Use this context to make conversations more relevant to what they're studying:

%s
`, referenceMaterials)
	}

	fmt.Fprintf(&sb, `
Remember: Your goal is to create an immersive language learning experience through natural conversation.
Respond as if you're a patient, knowledgeable language partner who genuinely wants to help the student improve.
IMPORTANT: Always respond using ONLY %[1]s characters. Never include pinyin, romanization, or translations unless explicitly asked in %[2]s.
`, b.Target, b.Native)

	return sb.String()
}

// Pinyin returns the prompt for a detailed pinyin breakdown of text.
func (b Builder) Pinyin(text string) string {
	return fmt.Sprintf(`Please provide the pinyin (romanization) for the following %s text.
Format: Show each character followed by its pinyin, then a complete pinyin reading.

Text: %s

Respond in this format:
Characters with pinyin: [character1](pinyin1) [character2](pinyin2) ...
Full pinyin: [complete pinyin reading with tone marks]`, b.Target, text)
}

// Translation returns the prompt for a translation with breakdown.
func (b Builder) Translation(text string) string {
	return fmt.Sprintf(`Please translate the following text and provide a detailed breakdown.

Text: %s

Provide:
1. Translation to %s
2. Pinyin (if applicable)
3. Word-by-word breakdown with individual meanings
4. Any relevant grammar notes or usage tips`, text, b.Native)
}

// DailyWord returns the prompt for a word-of-the-day generation. Previously
// taught words are listed so the model avoids repeating them.
func (b Builder) DailyWord(level string, previousWords []string, referenceMaterials string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Generate a word or phrase of the day for a %[1]s level %[2]s learner.

Requirements:
- Choose a practical, commonly-used word or phrase
- Appropriate for %[1]s level
- Include: the word/phrase, pinyin, %[3]s translation
- Provide 2-3 example sentences using the word
- Include a brief cultural note or usage tip if relevant
`, level, b.Target, b.Native)

	if len(previousWords) > 0 {
		if len(previousWords) > 30 {
			previousWords = previousWords[:30]
		}
		fmt.Fprintf(&sb, `
Previously taught words (avoid repeating these):
%s
`, strings.Join(previousWords, ", "))
	}

	if referenceMaterials != "" {
		fmt.Fprintf(&sb, `
From their learning materials, consider vocabulary from:
%s
`, truncate(referenceMaterials, 1000))
	}

	fmt.Fprintf(&sb, `
Format your response as:
📚 Word of the Day

[Word in %[1]s]
Pinyin: [pinyin]
Meaning: [%[2]s translation]

Examples:
1. [Example sentence]
   [Pinyin]
   [Translation]

2. [Example sentence]
   [Pinyin]
   [Translation]

💡 Tip: [Usage tip or cultural note]
`, b.Target, b.Native)

	return sb.String()
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
