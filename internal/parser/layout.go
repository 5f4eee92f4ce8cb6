package parser

// Layout describes where the figures live on archive pages.
// Selectors use CSS syntax as understood by goquery.
type Layout struct {
	// IndexTable selects the link table; the first match is used.
	IndexTable string

	// Heading selects the month heading; the first match is used.
	Heading string

	// HeadingSeparator splits the heading; the last segment is the month label.
	HeadingSeparator string

	// ThreadContainer selects the candidate thread containers in document order.
	ThreadContainer string

	// ThreadContainerIndex is the zero-based position of the thread container
	// among ThreadContainer matches. It only counts when ThreadContainer is
	// set; an empty ThreadContainer brings back the default selector and its
	// default position.
	ThreadContainerIndex int

	// ThreadItems selects the thread entries inside the container.
	ThreadItems string

	// KeySeparator separates a year from a month in link labels and a sender
	// from a subject in thread entries.
	KeySeparator string
}

// DefaultLayout returns the freelists.org page layout.
func DefaultLayout() Layout {
	return Layout{
		IndexTable:           "table",
		Heading:              "h1",
		HeadingSeparator:     ", ",
		ThreadContainer:      "div",
		ThreadContainerIndex: 3,
		ThreadItems:          "ul > li",
		KeySeparator:         "-",
	}
}

// withDefaults fills empty fields from DefaultLayout. The container
// position follows the container selector.
func (l Layout) withDefaults() Layout {
	def := DefaultLayout()
	if l.IndexTable == "" {
		l.IndexTable = def.IndexTable
	}
	if l.Heading == "" {
		l.Heading = def.Heading
	}
	if l.HeadingSeparator == "" {
		l.HeadingSeparator = def.HeadingSeparator
	}
	if l.ThreadContainer == "" {
		l.ThreadContainer = def.ThreadContainer
		l.ThreadContainerIndex = def.ThreadContainerIndex
	}
	if l.ThreadContainerIndex < 0 {
		l.ThreadContainerIndex = def.ThreadContainerIndex
	}
	if l.ThreadItems == "" {
		l.ThreadItems = def.ThreadItems
	}
	if l.KeySeparator == "" {
		l.KeySeparator = def.KeySeparator
	}
	return l
}
