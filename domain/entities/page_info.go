package entities

// PageInfo is a snapshot of the current page taken when a wait fails
type PageInfo struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}
