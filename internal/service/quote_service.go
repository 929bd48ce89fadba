package service

import (
	"strings"
	"time"

	"github.com/noah-isme/skillpath-api/internal/dto"
)

const defaultQuoteWindow = 15 * time.Second

var programmingQuotes = []string{
	"Code is like humor. When you have to explain it, it's bad. – Cory House",
	"Programming isn't about what you know; it's about what you can figure out. – Chris Pine",
	"The best way to predict the future is to invent it. – Alan Kay",
	"First, solve the problem. Then, write the code. – John Johnson",
	"The only way to learn a new programming language is by writing programs in it. – Dennis Ritchie",
	"Your most unhappy customers are your greatest source of learning. – Bill Gates",
	"Talk is cheap. Show me the code. – Linus Torvalds",
	"Every great developer you know got there by solving problems they were unqualified to solve until they actually did it. – Patrick McKenzie",
	"Simplicity is the soul of efficiency. – Austin Freeman",
	"If debugging is the process of removing software bugs, then programming must be the process of putting them in. – Edsger Dijkstra",
}

// QuoteService serves the landing page quote ticker.
type QuoteService interface {
	List() []dto.QuoteResponse
	Current(now time.Time) dto.QuoteResponse
}

type quoteService struct {
	quotes []dto.QuoteResponse
	window time.Duration
}

// NewQuoteService builds the quote service. Every instance shows the same quote
// during a given window so replicas agree without coordination.
func NewQuoteService(window time.Duration) QuoteService {
	if window <= 0 {
		window = defaultQuoteWindow
	}
	quotes := make([]dto.QuoteResponse, 0, len(programmingQuotes))
	for i, raw := range programmingQuotes {
		text, author := splitQuote(raw)
		quotes = append(quotes, dto.QuoteResponse{Index: i, Text: text, Author: author})
	}
	return &quoteService{quotes: quotes, window: window}
}

func (s *quoteService) List() []dto.QuoteResponse {
	return append([]dto.QuoteResponse(nil), s.quotes...)
}

func (s *quoteService) Current(now time.Time) dto.QuoteResponse {
	slot := now.UnixNano() / int64(s.window)
	index := int(slot % int64(len(s.quotes)))
	if index < 0 {
		index += len(s.quotes)
	}
	return s.quotes[index]
}

func splitQuote(raw string) (string, string) {
	idx := strings.LastIndex(raw, " – ")
	if idx < 0 {
		return strings.TrimSpace(raw), ""
	}
	return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+len(" – "):])
}
