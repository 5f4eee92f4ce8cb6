package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/liststat/internal/model"
)

// NewDocument parses an HTML body. The body is transcoded to UTF-8 first,
// using the charset from contentType or from the document's meta tags.
// An empty contentType leaves detection to the body.
func NewDocument(body []byte, contentType string) (*goquery.Document, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to detect charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

// ParseIndex reads the month links of an archive index page.
//
// Every anchor in the first table is returned in document order with its
// text as label. Years counts the anchors with non-empty text by the text
// after the last key separator. Href is left empty; the caller knows the
// index URL.
func ParseIndex(doc *goquery.Document, layout Layout) (*model.ArchiveIndex, error) {
	layout = layout.withDefaults()

	table := doc.Find(layout.IndexTable).First()
	if table.Length() == 0 {
		return nil, ErrNoTable
	}

	index := &model.ArchiveIndex{
		Links: make([]model.ArchiveLink, 0),
		Years: model.YearSummary{},
	}

	table.Find("a").Each(func(_ int, a *goquery.Selection) {
		label := a.Text()
		index.Links = append(index.Links, model.ArchiveLink{Label: label})
		if label != "" {
			index.Years.Add(SuffixAfter(label, layout.KeySeparator))
		}
	})

	return index, nil
}

// ParseMonth reads the counts of one month page.
//
// The month label is the last heading segment. TotalEmails counts every
// thread entry of the thread container; Senders counts the entries with
// non-empty text by the text after the last key separator.
func ParseMonth(doc *goquery.Document, layout Layout) (model.MonthStat, error) {
	layout = layout.withDefaults()

	heading := doc.Find(layout.Heading).First()
	if heading.Length() == 0 {
		return model.MonthStat{}, ErrNoHeading
	}

	containers := doc.Find(layout.ThreadContainer)
	if containers.Length() <= layout.ThreadContainerIndex {
		return model.MonthStat{}, fmt.Errorf("%w: found %d, need %d",
			ErrNoThreadList, containers.Length(), layout.ThreadContainerIndex+1)
	}

	items := containers.Eq(layout.ThreadContainerIndex).Find(layout.ThreadItems)

	stat := model.MonthStat{
		Month:       SuffixAfter(heading.Text(), layout.HeadingSeparator),
		TotalEmails: items.Length(),
		Senders:     model.SenderCount{},
	}

	items.Each(func(_ int, li *goquery.Selection) {
		if text := li.Text(); text != "" {
			stat.Senders.Add(SuffixAfter(text, layout.KeySeparator))
		}
	})

	return stat, nil
}

// SuffixAfter returns the text after the last occurrence of sep.
// Text without sep is returned unchanged.
func SuffixAfter(text, sep string) string {
	if sep == "" {
		return text
	}
	if i := strings.LastIndex(text, sep); i >= 0 {
		return text[i+len(sep):]
	}
	return text
}
