package engine

// DefaultVideoTitle is used when metadata is unavailable.
const DefaultVideoTitle = "Unknown Video"

// VideoMetadata is what the metadata lookup yields. Thumbnail may be nil.
type VideoMetadata struct {
	Title     string
	Thumbnail *string
}

// VideoSummary is the result of one successful summarize request.
type VideoSummary struct {
	VideoID   string  `json:"videoId" jsonschema:"11-character YouTube video id"`
	Title     string  `json:"title" jsonschema:"Video title"`
	Thumbnail *string `json:"thumbnail" jsonschema:"Thumbnail URL, null when unknown"`
	Summary   string  `json:"summary" jsonschema:"Markdown summary"`
}

// SummarizeInput is the request body of the summarize endpoint and tool.
type SummarizeInput struct {
	YouTubeURL string `json:"youtubeUrl" jsonschema:"YouTube video URL (watch, youtu.be, shorts, embed or /v/)"`
}
