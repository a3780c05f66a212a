package models

import "strconv"

// PageRecord is one page parsed out of the crawl export file.
type PageRecord struct {
	PageNumber  int
	TotalPages  int
	Title       string
	URL         string
	LengthLabel string
	Content     string
}

// Chunk is a token-bounded slice of a page, the unit of embedding and
// retrieval. ChunkIndex is 0 for an unsplit page; for a split page it is the
// ordinal position among siblings and IsSplit is true for every sibling.
type Chunk struct {
	Text        string
	SourceTitle string
	SourceURL   string
	PageNumber  int
	PageLength  string
	ChunkIndex  int
	IsSplit     bool
}

// IndexedRecord is a chunk paired with its embedding, as persisted. The
// primary key is store-assigned.
type IndexedRecord struct {
	Chunk
	Embedding []float32
}

// SearchHit is one retrieval result. Distance is the store's native L2
// metric, lower means more similar.
type SearchHit struct {
	Text        string
	SourceTitle string
	SourceURL   string
	PageNumber  int
	ChunkIndex  int
	IsSplit     bool
	Distance    float32
}

// Citation renders the human-readable provenance of a hit: title, page
// number, and the 1-based part number when the source page was split.
func (h SearchHit) Citation() string {
	source := h.SourceTitle
	if h.PageNumber > 0 {
		source += " (Trang " + strconv.Itoa(h.PageNumber) + ")"
	}
	if h.IsSplit {
		source += " - Phần " + strconv.Itoa(h.ChunkIndex+1)
	}
	return source
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one message of a conversation. Content is never absent, an empty
// string is stored when no text is available.
type Turn struct {
	Role    Role
	Content string
}

// Source is a de-duplicated citation attached to a reply.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	IsSplit bool   `json:"is_chunked"`
}

// Reply is the outcome of one retrieve-and-generate round trip.
type Reply struct {
	Text        string
	Sources     []Source
	TotalChunks int
}
