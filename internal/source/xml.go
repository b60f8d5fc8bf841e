package source

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/errors"
)

// The on-disk layout:
//
//	<webpages>
//	  <webpage name="www.a.com">
//	    <link name="www.b.com"/>
//	    <content value="some words"/>
//	  </webpage>
//	</webpages>
type xmlWebpages struct {
	XMLName xml.Name     `xml:"webpages"`
	Pages   []xmlWebpage `xml:"webpage"`
}

type xmlWebpage struct {
	Name    string       `xml:"name,attr"`
	Links   []xmlLink    `xml:"link"`
	Content []xmlContent `xml:"content"`
}

type xmlLink struct {
	Name string `xml:"name,attr"`
}

type xmlContent struct {
	Value string `xml:"value,attr"`
}

// LoadXMLFile opens path and parses it with LoadXML.
func LoadXMLFile(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w: %v", path, apperrors.ErrSourceUnavailable, err)
	}
	defer f.Close()
	m, err := LoadXML(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return m, nil
}

// LoadXML parses a webpages document into a Memory source. Only the first
// content element of a page is used. A webpage without a name, or a repeated
// name, is malformed.
func LoadXML(r io.Reader) (*Memory, error) {
	var doc xmlWebpages
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedDocument, err)
	}
	m := NewMemory()
	seen := make(map[string]struct{}, len(doc.Pages))
	for i, p := range doc.Pages {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: webpage %d has no name", apperrors.ErrMalformedDocument, i)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate webpage %q", apperrors.ErrMalformedDocument, p.Name)
		}
		seen[p.Name] = struct{}{}

		d := Document{ID: p.Name, Links: make([]string, 0, len(p.Links))}
		for _, l := range p.Links {
			d.Links = append(d.Links, l.Name)
		}
		if len(p.Content) > 0 {
			d.Content = p.Content[0].Value
		}
		m.Put(d)
	}
	return m, nil
}
