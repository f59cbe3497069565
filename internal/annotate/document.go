package annotate

import (
	"unicode"
	"unicode/utf8"

	"github.com/ai-mindset/ner-playground/internal/entity"
)

// Token is one word-level token with byte offsets into the document
// text: text[Start:End] == Text.
type Token struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Document is the annotated form of one input text: the raw text, its
// word tokens, and whatever entities the model recognized. Custom
// pattern matches are not part of the document; they are produced
// separately by the matcher.
type Document struct {
	Text   string          `json:"text"`
	Model  string          `json:"model,omitempty"`
	Tokens []Token         `json:"tokens"`
	Ents   []entity.Entity `json:"ents"`
}

// NewDocument tokenizes text into a document with no native entities.
func NewDocument(text string) *Document {
	return &Document{Text: text, Tokens: Tokenize(text)}
}

// Tokenize splits text into word tokens with byte offsets. Words are
// whitespace-separated runs; leading and trailing punctuation runes are
// peeled off as their own tokens while internal punctuation is kept, so
// "biomass." becomes ["biomass", "."] but "PM2.5" stays one token.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for idx, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = appendWord(tokens, text, start, idx)
				start = -1
			}
			continue
		}
		if start < 0 {
			start = idx
		}
	}
	if start >= 0 {
		tokens = appendWord(tokens, text, start, len(text))
	}
	return tokens
}

// appendWord splits one whitespace-delimited word into affix punctuation
// tokens and a core token.
func appendWord(tokens []Token, text string, start, end int) []Token {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !isAffix(r) {
			break
		}
		tokens = append(tokens, Token{Text: text[start : start+size], Start: start, End: start + size})
		start += size
	}
	var tail []Token
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !isAffix(r) {
			break
		}
		tail = append(tail, Token{Text: text[end-size : end], Start: end - size, End: end})
		end -= size
	}
	if end > start {
		tokens = append(tokens, Token{Text: text[start:end], Start: start, End: end})
	}
	for i := len(tail) - 1; i >= 0; i-- {
		tokens = append(tokens, tail[i])
	}
	return tokens
}

func isAffix(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
