// Package textprep turns raw post titles into model input text.
package textprep

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"hn-post-classifier/internal/models"
	"hn-post-classifier/pkg/logger"
)

// Separator sits between the domain prefix and the title.
const Separator = " :- "

// Every printable ASCII punctuation character.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var isPunct [128]bool

func init() {
	for i := 0; i < len(punctuation); i++ {
		isPunct[punctuation[i]] = true
	}
}

func RemovePunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 128 && isPunct[r] {
			return -1
		}
		return r
	}, s)
}

func ToLower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// PrependDomain prefixes title with "{domain} :- ". A blank domain becomes
// the "empty" placeholder. Applying it twice prefixes twice.
func PrependDomain(title, domain string) string {
	if domain == "" {
		domain = models.EmptyURL
	}
	return domain + Separator + title
}

type Normalizer struct {
	log *logger.Logger
}

func NewNormalizer(l *logger.Logger) *Normalizer {
	if l == nil {
		l = logger.NewNop()
	}
	return &Normalizer{log: l}
}

// ExtractDomain never fails: parse errors are logged and an empty result
// is returned.
func (n *Normalizer) ExtractDomain(rawURL string) models.DomainParts {
	parts, err := ParseDomain(rawURL)
	if err != nil {
		n.log.Errorf("could not extract domain for %q, using empty domain instead: %v", rawURL, err)
		return models.DomainParts{}
	}
	return parts
}

// Normalize strips punctuation, lowercases, then prepends the domain. The
// order matters: the separator contains punctuation that must survive.
func (n *Normalizer) Normalize(title, rawURL string) string {
	text := ToLower(RemovePunctuation(title))
	if rawURL == "" || rawURL == models.EmptyURL {
		return PrependDomain(text, models.EmptyURL)
	}
	return PrependDomain(text, n.ExtractDomain(rawURL).Domain)
}

// NormalizeTitles rewrites every post title in place.
func (n *Normalizer) NormalizeTitles(posts []models.Post) {
	n.log.Infof("applying title transformations to %d posts", len(posts))
	for i := range posts {
		posts[i].Title = n.Normalize(posts[i].Title, posts[i].URL)
	}
	n.log.Infof("applied all title transforms")
}
