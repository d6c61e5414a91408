package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPage(cmd *cobra.Command, page news.Page, asJSON bool) error {
	if asJSON {
		return printJSON(cmd, page)
	}
	out := cmd.OutOrStdout()
	for i, a := range page.Articles {
		n := (page.Pagination.Page-1)*page.Pagination.PageSize + i + 1
		fmt.Fprintf(out, "%3d. [%s] %s\n     %s | %s\n     %s\n",
			n, a.Category, a.Title, a.Source, a.PublishedAt.Local().Format(time.DateTime), a.URL)
	}
	p := page.Pagination
	total := "?"
	if p.Total != nil {
		total = fmt.Sprint(*p.Total)
	}
	fmt.Fprintf(out, "page %d (size %d), %d shown, total %s, more: %t\n",
		p.Page, p.PageSize, len(page.Articles), total, p.HasMore)
	return nil
}
