package annotate

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// wordPiece is a BERT-style subword tokenizer backed by a vocab.txt
// file from an ONNX model bundle.
type wordPiece struct {
	vocab        map[string]int64
	clsID        int64
	sepID        int64
	padID        int64
	unkID        int64
	lowercase    bool
	continuation string
	maxWordLen   int
}

// loadWordPiece reads the bundle vocabulary, looking in tokenizer/
// first and the bundle root second.
func loadWordPiece(dir string) (*wordPiece, error) {
	candidates := []string{
		filepath.Join(dir, "tokenizer", "vocab.txt"),
		filepath.Join(dir, "vocab.txt"),
	}
	var lastErr error
	for _, path := range candidates {
		tok, err := loadVocab(path)
		if err == nil {
			return tok, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("load vocab: %w", lastErr)
}

func loadVocab(path string) (*wordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var idx int64
	for sc.Scan() {
		token := strings.TrimSpace(sc.Text())
		if token == "" {
			continue
		}
		vocab[token] = idx
		idx++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan vocab: %w", err)
	}
	for _, special := range []string{"[CLS]", "[SEP]", "[PAD]", "[UNK]"} {
		if _, ok := vocab[special]; !ok {
			return nil, fmt.Errorf("vocab is missing %s", special)
		}
	}
	return &wordPiece{
		vocab:        vocab,
		clsID:        vocab["[CLS]"],
		sepID:        vocab["[SEP]"],
		padID:        vocab["[PAD]"],
		unkID:        vocab["[UNK]"],
		lowercase:    true,
		continuation: "##",
		maxWordLen:   100,
	}, nil
}

// encodeWords converts word tokens into a fixed-length id sequence.
// wordIdx maps each sequence position back to the index of the word it
// came from, with -1 for [CLS], [SEP], and padding.
func (t *wordPiece) encodeWords(words []Token, seqLen int) (ids, mask []int64, wordIdx []int) {
	ids = make([]int64, 0, seqLen)
	mask = make([]int64, 0, seqLen)
	wordIdx = make([]int, 0, seqLen)

	ids = append(ids, t.clsID)
	mask = append(mask, 1)
	wordIdx = append(wordIdx, -1)

	for wi, word := range words {
		for _, pieceID := range t.wordToPieces(word.Text) {
			if len(ids) >= seqLen-1 {
				break
			}
			ids = append(ids, pieceID)
			mask = append(mask, 1)
			wordIdx = append(wordIdx, wi)
		}
		if len(ids) >= seqLen-1 {
			break
		}
	}

	ids = append(ids, t.sepID)
	mask = append(mask, 1)
	wordIdx = append(wordIdx, -1)

	for len(ids) < seqLen {
		ids = append(ids, t.padID)
		mask = append(mask, 0)
		wordIdx = append(wordIdx, -1)
	}
	return ids, mask, wordIdx
}

// wordToPieces greedily matches the longest vocabulary entry, marking
// non-initial pieces with the continuation prefix.
func (t *wordPiece) wordToPieces(word string) []int64 {
	if word == "" {
		return []int64{t.unkID}
	}
	normalized := word
	if t.lowercase {
		normalized = strings.ToLower(word)
	}
	runes := []rune(normalized)
	if len(runes) > t.maxWordLen {
		return []int64{t.unkID}
	}
	if id, ok := t.vocab[string(runes)]; ok {
		return []int64{id}
	}
	ids := make([]int64, 0, 4)
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := int64(-1)
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = t.continuation + piece
			}
			if id, ok := t.vocab[piece]; ok {
				found = id
				break
			}
			end--
		}
		if found < 0 {
			return []int64{t.unkID}
		}
		ids = append(ids, found)
		start = end
	}
	return ids
}
