package domain

// CategoryItem is a Commons category offered to (or chosen by) the uploader.
type CategoryItem struct {
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}
