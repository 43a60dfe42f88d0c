package notice

import (
	"strings"
	"time"

	"github.com/trezcool/campusboard/core"
)

type Notice struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  Category  `json:"category"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
	AuthorID  string    `json:"author_id"`
}

// NewNotice contains information needed to create a new Notice.
type NewNotice struct {
	Title    string `json:"title" validate:"notblank,max=200"`
	Content  string `json:"content" validate:"notblank"`
	Category string `json:"category"`
	ImageURL string `json:"image_url" validate:"omitempty,url,max=2048"`
}

func (nn *NewNotice) Clean() {
	nn.Title = core.CleanString(nn.Title)
	nn.Content = core.CleanString(nn.Content)
	nn.Category = core.CleanString(nn.Category)
	nn.ImageURL = core.CleanString(nn.ImageURL)
}

type QueryFilter struct {
	Category string `query:"category"`
}

// category returns the Category to filter on, or "" for all notices.
func (qf QueryFilter) category() (Category, error) {
	c := core.CleanString(qf.Category)
	if c == "" || strings.EqualFold(c, CategoryAll) {
		return "", nil
	}
	return ParseCategory(c)
}
