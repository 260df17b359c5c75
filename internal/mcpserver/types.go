package mcpserver

type AskArgs struct {
	Query     string `json:"query" jsonschema:"the question to ask about the document"`
	ReturnAll *bool  `json:"return_all,omitempty" jsonschema:"return every retrieved passage instead of only the cited ones"`
}

type AskResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Model   string   `json:"model"`
}

type Source struct {
	Label   string  `json:"label"`
	Source  string  `json:"source"`
	Page    int     `json:"page"`
	Score   float64 `json:"score"`
	Content string  `json:"content"`
}

type InfoArgs struct{}

type InfoResult struct {
	Document    string `json:"document"`
	Pages       int    `json:"pages"`
	Chunks      int    `json:"chunks"`
	Embedding   string `json:"embedding"`
	VectorStore string `json:"vector_store"`
	Model       string `json:"model"`
}
