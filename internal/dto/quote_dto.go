package dto

// QuoteResponse is a programming quote for the landing page ticker.
type QuoteResponse struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Author string `json:"author"`
}
