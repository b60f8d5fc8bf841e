package source

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/errors"
)

func TestMemoryUnknownIDIsEmpty(t *testing.T) {
	m := NewMemory()
	links, err := m.Links(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, links)

	content, err := m.Content(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestMemoryTokenizesContent(t *testing.T) {
	m := NewMemory(Document{ID: "p1", Links: []string{"p2", "p3"}, Content: "The Cat, sat!"})

	content, err := m.Content(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "cat", "sat"}, content)

	links, err := m.Links(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p3"}, links)
	assert.Equal(t, 1, m.Len())
}

func TestLoadXMLFile(t *testing.T) {
	m, err := LoadXMLFile("testdata/pages.xml")
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	ctx := context.Background()
	links, err := m.Links(ctx, "www.ea.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"www.b.com", "www.c.com"}, links)

	content, err := m.Content(ctx, "www.c.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "cat", "sat", "the", "cat", "ran"}, content)
}

func TestLoadXMLMissingFile(t *testing.T) {
	_, err := LoadXMLFile("testdata/missing.xml")
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestLoadXMLMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"broken markup", `<webpages><webpage name="a">`},
		{"missing name", `<webpages><webpage><content value="x"/></webpage></webpages>`},
		{"duplicate name", `<webpages><webpage name="a"/><webpage name="a"/></webpages>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadXML(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, apperrors.ErrMalformedDocument)
		})
	}
}

func TestLoadXMLPageWithoutContent(t *testing.T) {
	m, err := LoadXML(strings.NewReader(`<webpages><webpage name="a"><link name="b"/></webpage></webpages>`))
	require.NoError(t, err)

	content, err := m.Content(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestMemoryDocumentsKeepInsertionOrder(t *testing.T) {
	m := NewMemory(
		Document{ID: "b", Content: "two"},
		Document{ID: "a", Links: []string{"b"}, Content: "One"},
	)
	m.Put(Document{ID: "b", Content: "two again"})

	assert.Equal(t, []Document{
		{ID: "b", Links: []string{}, Content: "two again"},
		{ID: "a", Links: []string{"b"}, Content: "One"},
	}, m.Documents())
}

func TestOpenXML(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Path = "testdata/pages.xml"

	src, closeFn, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	links, err := src.Links(context.Background(), "www.b.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"www.c.com"}, links)
}

func TestOpenUnknownKind(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Kind = "ftp"

	_, closeFn, err := Open(context.Background(), cfg)
	assert.Error(t, err)
	assert.NoError(t, closeFn())
}
