package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQuoteServiceListSplitsAuthors(t *testing.T) {
	quotes := NewQuoteService(0).List()
	require.Len(t, quotes, len(programmingQuotes))

	require.Equal(t, 0, quotes[0].Index)
	require.Equal(t, "Code is like humor. When you have to explain it, it's bad.", quotes[0].Text)
	require.Equal(t, "Cory House", quotes[0].Author)

	for _, quote := range quotes {
		require.NotEmpty(t, quote.Text)
		require.NotEmpty(t, quote.Author)
	}
}

func TestQuoteServiceCurrentRotatesByWindow(t *testing.T) {
	svc := NewQuoteService(10 * time.Second)
	base := time.Unix(0, 0)

	require.Equal(t, 0, svc.Current(base).Index)
	require.Equal(t, 0, svc.Current(base.Add(9*time.Second)).Index)
	require.Equal(t, 1, svc.Current(base.Add(10*time.Second)).Index)
	require.Equal(t, 0, svc.Current(base.Add(time.Duration(len(programmingQuotes))*10*time.Second)).Index)
}

func TestQuoteServiceListReturnsCopy(t *testing.T) {
	svc := NewQuoteService(0)
	quotes := svc.List()
	quotes[0].Text = "changed"
	require.NotEqual(t, "changed", svc.List()[0].Text)
}
