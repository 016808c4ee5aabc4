package report

import "github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"

// PageOptions sizes printed ranking pages. Zero values take the defaults
// and every value is at least 1.
type PageOptions struct {
	MaxEntriesPerBlock int
	MaxRowsPerPage     int
	HeaderRowsPerBlock int
}

const (
	DefaultMaxEntriesPerBlock = 18
	DefaultMaxRowsPerPage     = 32
	DefaultHeaderRowsPerBlock = 2
)

func (o PageOptions) normalized() PageOptions {
	pick := func(v, def int) int {
		if v == 0 {
			v = def
		}
		return max(v, 1)
	}
	return PageOptions{
		MaxEntriesPerBlock: pick(o.MaxEntriesPerBlock, DefaultMaxEntriesPerBlock),
		MaxRowsPerPage:     pick(o.MaxRowsPerPage, DefaultMaxRowsPerPage),
		HeaderRowsPerBlock: pick(o.HeaderRowsPerBlock, DefaultHeaderRowsPerBlock),
	}
}

// Block is one printed chunk of a ranking group. ChunkIndex is 1-based.
type Block struct {
	EventID    string         `json:"eventId"`
	EventTitle string         `json:"eventTitle"`
	Grade      int            `json:"grade"`
	Gender     model.Gender   `json:"gender"`
	ChunkIndex int            `json:"chunkIndex"`
	ChunkCount int            `json:"chunkCount"`
	Entries    []RankingEntry `json:"entries"`
}

// Page is a list of blocks that fit on one printed page.
type Page struct {
	Blocks []Block `json:"blocks"`
}

// Paginate splits groups into blocks of at most MaxEntriesPerBlock entries
// and packs blocks onto pages. A block moves to a new page when it would
// overflow a non-empty page.
func Paginate(groups []RankingGroup, opts PageOptions) []Page {
	o := opts.normalized()

	pages := make([]Page, 0)
	current := Page{}
	used := 0
	for _, g := range groups {
		for _, b := range chunk(g, o.MaxEntriesPerBlock) {
			rows := o.HeaderRowsPerBlock + len(b.Entries)
			if len(current.Blocks) > 0 && used+rows > o.MaxRowsPerPage {
				pages = append(pages, current)
				current = Page{}
				used = 0
			}
			current.Blocks = append(current.Blocks, b)
			used += rows
		}
	}
	if len(current.Blocks) > 0 {
		pages = append(pages, current)
	}
	return pages
}

func chunk(g RankingGroup, size int) []Block {
	count := max((len(g.Entries)+size-1)/size, 1)
	blocks := make([]Block, 0, count)
	for i := 0; i < count; i++ {
		lo := i * size
		hi := min(lo+size, len(g.Entries))
		blocks = append(blocks, Block{
			EventID:    g.EventID,
			EventTitle: g.EventTitle,
			Grade:      g.Grade,
			Gender:     g.Gender,
			ChunkIndex: i + 1,
			ChunkCount: count,
			Entries:    g.Entries[lo:hi],
		})
	}
	return blocks
}
