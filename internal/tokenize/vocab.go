package tokenize

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"hn-post-classifier/internal/models"
)

// Special tokens occupy the first vocabulary ids.
const (
	PadToken = "[PAD]"
	UnkToken = "[UNK]"
	ClsToken = "[CLS]"
	SepToken = "[SEP]"
)

const (
	padID = iota
	unkID
	clsID
	sepID
)

var specialTokens = []string{PadToken, UnkToken, ClsToken, SepToken}

const (
	// DefaultMaxLen is the model's positional limit.
	DefaultMaxLen = 512
	// VocabFile is the vocabulary file name inside the cache directory.
	VocabFile = "vocab.txt"
	vocabName = "wordvocab"
)

// WordVocab is a whitespace word-level tokenizer with a fixed vocabulary.
// Sequences are wrapped as [CLS] words [SEP] and padded with [PAD].
type WordVocab struct {
	toID   map[string]int64
	tokens []string
	maxLen int
}

// BuildVocab keeps the maxSize most frequent words of texts (special
// tokens included in the size). Ties sort alphabetically.
func BuildVocab(texts []string, maxSize int) *WordVocab {
	freq := map[string]int{}
	for _, t := range texts {
		for _, w := range strings.Fields(t) {
			freq[w]++
		}
	}
	type kv struct {
		word  string
		count int
	}
	list := make([]kv, 0, len(freq))
	for w, c := range freq {
		list = append(list, kv{w, c})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count == list[j].count {
			return list[i].word < list[j].word
		}
		return list[i].count > list[j].count
	})

	tokens := append([]string(nil), specialTokens...)
	for _, e := range list {
		if maxSize > 0 && len(tokens) >= maxSize {
			break
		}
		tokens = append(tokens, e.word)
	}
	return newWordVocab(tokens)
}

func newWordVocab(tokens []string) *WordVocab {
	v := &WordVocab{toID: make(map[string]int64, len(tokens)), tokens: tokens, maxLen: DefaultMaxLen}
	for i, t := range tokens {
		v.toID[t] = int64(i)
	}
	return v
}

// ReadVocab reads one token per line. The special tokens must come first.
func ReadVocab(r io.Reader) (*WordVocab, error) {
	var tokens []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		tokens = append(tokens, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(tokens) < len(specialTokens) {
		return nil, fmt.Errorf("vocabulary has %d tokens, want at least %d", len(tokens), len(specialTokens))
	}
	for i, st := range specialTokens {
		if tokens[i] != st {
			return nil, fmt.Errorf("vocabulary line %d is %q, want %q", i+1, tokens[i], st)
		}
	}
	return newWordVocab(tokens), nil
}

func (v *WordVocab) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, t := range v.tokens {
		m, err := io.WriteString(w, t+"\n")
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (v *WordVocab) Name() string              { return vocabName }
func (v *WordVocab) Size() int                 { return len(v.tokens) }
func (v *WordVocab) MaxLen() int               { return v.maxLen }
func (v *WordVocab) MaxLenSingleSentence() int { return v.maxLen - 2 }

// Encode truncates text to maxLen ids including [CLS] and [SEP], then pads
// to exactly maxLen.
func (v *WordVocab) Encode(text string, maxLen int) models.Encoding {
	if maxLen < 2 {
		maxLen = 2
	}
	ids := make([]int64, maxLen)
	mask := make([]int64, maxLen)

	ids[0], mask[0] = clsID, 1
	pos := 1
	for _, w := range strings.Fields(text) {
		if pos >= maxLen-1 {
			break
		}
		id, ok := v.toID[w]
		if !ok {
			id = unkID
		}
		ids[pos], mask[pos] = id, 1
		pos++
	}
	ids[pos], mask[pos] = sepID, 1
	// remaining positions already hold padID with mask 0
	return models.Encoding{InputIDs: ids, AttentionMask: mask}
}

// Decode maps ids back to tokens, stopping at the first [PAD].
func (v *WordVocab) Decode(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == padID {
			break
		}
		if id < 0 || int(id) >= len(v.tokens) {
			out = append(out, UnkToken)
			continue
		}
		out = append(out, v.tokens[id])
	}
	return out
}
