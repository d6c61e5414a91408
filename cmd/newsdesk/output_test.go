package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

func testPage() news.Page {
	total := 7
	return news.Page{
		Articles: []news.Article{{
			Title:       "Quake hits coast",
			URL:         "https://example.com/quake",
			Source:      "Wire",
			Category:    news.World,
			PublishedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}},
		Pagination: news.Pagination{Page: 2, PageSize: 5, Total: &total, HasMore: false},
	}
}

func TestPrintPageText(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, printPage(cmd, testPage(), false))
	out := buf.String()
	assert.Contains(t, out, "  6. [World] Quake hits coast")
	assert.Contains(t, out, "https://example.com/quake")
	assert.Contains(t, out, "page 2 (size 5), 1 shown, total 7, more: false")
}

func TestPrintPageJSON(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, printPage(cmd, testPage(), true))
	var got news.Page
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Quake hits coast", got.Articles[0].Title)
	assert.Equal(t, 7, *got.Pagination.Total)
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "newsdesk dev\n", buf.String())
}
