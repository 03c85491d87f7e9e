package model

type Asset struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Size         int64  `json:"size,omitempty"`
	ContentType  string `json:"contentType,omitempty"`
	CreatedAt    int64  `json:"createdAt,omitempty"`
}

// Upload is a single file read fully into memory from a request.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// ListResult keeps the backend order. Error is set only when a listing
// degraded to a partial or empty result instead of failing.
type ListResult struct {
	Files []Asset `json:"files"`
	Error string  `json:"error,omitempty"`
}
