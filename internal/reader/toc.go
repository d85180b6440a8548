package reader

// TOCEntry maps a chapter to the first page it occupies.
type TOCEntry struct {
	Title string
	Page  int
}
