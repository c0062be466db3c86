package search

const (
	DefaultMaxResults = 10

	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Request mirrors the Tavily search contract.
type Request struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results,omitempty"`
	IncludeRawContent bool   `json:"include_raw_content,omitempty"`
	ContentFormat     string `json:"content_format,omitempty"`
	Engines           string `json:"engines,omitempty"`
}

type Result struct {
	URL        string  `json:"url"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	RawContent *string `json:"raw_content"`
}

// Response is the Tavily-shaped envelope. FollowUpQuestions and Answer
// stay null; Images stays an empty array.
type Response struct {
	Query             string   `json:"query"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	Answer            *string  `json:"answer"`
	Images            []string `json:"images"`
	Results           []Result `json:"results"`
	ResponseTime      float64  `json:"response_time"`
	RequestID         string   `json:"request_id"`
}
