package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/tianqilab/tianqi/internal/store"
)

// decodeGBK wraps a reader with GBK-to-UTF-8 transcoding. Invalid bytes
// decode to U+FFFD rather than failing the whole page.
func decodeGBK(r io.Reader) io.Reader {
	return transform.NewReader(r, simplifiedchinese.GBK.NewDecoder())
}

// parseMonthPage extracts observations from the first table of a month
// page. Expected row shape: date, condition, "low/high" temperatures,
// wind. Rows that do not parse as a date are skipped - the upstream
// mixes header and spacer rows into the table.
func parseMonthPage(r io.Reader, city string) ([]store.Row, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := findFirst(doc, "table")
	if table == nil {
		return nil, fmt.Errorf("no table in month page")
	}

	var out []store.Row
	for _, tr := range findAll(table, "tr") {
		cells := findAll(tr, "td")
		if len(cells) < 4 {
			continue
		}
		date, ok := parsePageDate(nodeText(cells[0]))
		if !ok {
			continue
		}

		row := store.Row{City: city, Date: date}
		if cond := nodeText(cells[1]); cond != "" {
			row.Condition = &cond
		}
		row.TempMin, row.TempMax = parseTemp(nodeText(cells[2]))
		if wind := nodeText(cells[3]); wind != "" {
			row.Wind = &wind
		}
		out = append(out, row)
	}
	return out, nil
}

// parsePageDate accepts the date spellings the upstream uses: ISO and
// the Chinese 年/月/日 form, with optional trailing weekday text.
func parsePageDate(raw string) (time.Time, bool) {
	token := raw
	if i := strings.IndexAny(token, " 　"); i >= 0 {
		token = token[:i]
	}
	for _, layout := range []string{"2006-01-02", "2006年01月02日", "2006年1月2日"} {
		if t, err := time.Parse(layout, token); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseTemp splits a "7℃/16℃"-style cell into (min, max). A single
// value fills both; unparseable cells yield nils.
func parseTemp(raw string) (*float64, *float64) {
	cleaned := strings.NewReplacer(" ", "", "℃", "", " ", "").Replace(raw)
	if cleaned == "" {
		return nil, nil
	}
	for _, sep := range []string{"/", "~", "-"} {
		parts := strings.Split(cleaned, sep)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		a, errA := strconv.ParseFloat(parts[0], 64)
		b, errB := strconv.ParseFloat(parts[1], 64)
		if errA != nil || errB != nil {
			return nil, nil
		}
		lo, hi := a, b
		if hi < lo {
			lo, hi = hi, lo
		}
		return &lo, &hi
	}
	if v, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return &v, &v
	}
	return nil, nil
}

// findFirst returns the first element with the given tag, depth-first.
func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every element with the given tag under n, depth-first.
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == tag {
			out = append(out, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

// nodeText collects and trims the text content of a node.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
