package textprep

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-post-classifier/internal/models"
	"hn-post-classifier/pkg/logger"
)

func TestParseDomain(t *testing.T) {
	tests := []struct {
		url  string
		want models.DomainParts
	}{
		{"https://www.linkedin.com/", models.DomainParts{Subdomain: "www", Domain: "linkedin", Suffix: "com"}},
		{"https://news.bbc.co.uk/story/1", models.DomainParts{Subdomain: "news", Domain: "bbc", Suffix: "co.uk"}},
		{"example.org/path?q=1", models.DomainParts{Domain: "example", Suffix: "org"}},
		{"HTTP://Blog.Golang.ORG./x", models.DomainParts{Subdomain: "blog", Domain: "golang", Suffix: "org"}},
		{"http://192.168.0.1:8080/admin", models.DomainParts{Domain: "192.168.0.1"}},
		{"localhost:3000", models.DomainParts{Domain: "localhost"}},
		{"empty", models.DomainParts{Domain: "empty"}},
		{"https://someuser.github.io/post", models.DomainParts{Subdomain: "someuser", Domain: "github", Suffix: "io"}},
		{"https://github.io/", models.DomainParts{Domain: "github", Suffix: "io"}},
		{"foo.blogspot.com", models.DomainParts{Subdomain: "foo", Domain: "blogspot", Suffix: "com"}},
		{"https://a.b.myapp.herokuapp.com", models.DomainParts{Subdomain: "a.b.myapp", Domain: "herokuapp", Suffix: "com"}},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ParseDomain(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDomainFailures(t *testing.T) {
	for _, raw := range []string{"", "http://", "http://%zz/", "https://co.uk/"} {
		_, err := ParseDomain(raw)
		assert.Error(t, err, raw)
	}
}

func TestExtractDomainSwallowsErrors(t *testing.T) {
	n := NewNormalizer(logger.NewNop())
	assert.Equal(t, models.DomainParts{}, n.ExtractDomain("http://%zz/"))
}

func TestRemovePunctuation(t *testing.T) {
	assert.Equal(t, "Show HN Im building a 10x tool", RemovePunctuation("Show HN: I'm building a 10x tool!"))
	assert.Equal(t, "café – naïve", RemovePunctuation("café – naïve"), "non-ascii punctuation is kept")
}

func TestToLower(t *testing.T) {
	assert.Equal(t, "ünïcode title", ToLower("ÜNÏCODE Title"))
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(logger.NewNop())

	got := n.Normalize("Show HN: My new Go library!", "https://github.com/user/repo")
	assert.Equal(t, "github :- show hn my new go library", got)

	got = n.Normalize("My blog engine", "https://someuser.github.io/posts/1")
	assert.Equal(t, "github :- my blog engine", got)

	got = n.Normalize("Ask HN: What are you working on?", models.EmptyURL)
	assert.Equal(t, "empty :- ask hn what are you working on", got)

	got = n.Normalize("Broken", "http://%zz/")
	assert.True(t, strings.HasPrefix(got, "empty :- "), got)
}

func TestNormalizePrefixes(t *testing.T) {
	n := NewNormalizer(logger.NewNop())
	urls := []string{"https://a.example.com", "http://www.nytimes.com/2020/x.html", "empty", "lobste.rs"}
	for _, u := range urls {
		got := n.Normalize("Some Title", u)
		if u == models.EmptyURL {
			assert.True(t, strings.HasPrefix(got, "empty :- "))
			continue
		}
		assert.True(t, strings.HasPrefix(got, n.ExtractDomain(u).Domain+" :- "), got)
	}
}

func TestNormalizeSteadyStateExceptPrefix(t *testing.T) {
	clean := "already clean lowercase"
	assert.Equal(t, clean, ToLower(RemovePunctuation(clean)))

	once := PrependDomain(clean, "github")
	twice := PrependDomain(once, "github")
	assert.NotEqual(t, once, twice, "re-prefixing stacks the domain")
	assert.Equal(t, "github :- github :- already clean lowercase", twice)
}

func TestNormalizeTitles(t *testing.T) {
	n := NewNormalizer(logger.NewNop())
	posts := []models.Post{
		{ID: 1, Title: "Hello, World", URL: "https://www.example.com"},
		{ID: 2, Title: "Ask HN: Why?", URL: models.EmptyURL},
	}
	n.NormalizeTitles(posts)
	assert.Equal(t, "example :- hello world", posts[0].Title)
	assert.Equal(t, "empty :- ask hn why", posts[1].Title)
}
