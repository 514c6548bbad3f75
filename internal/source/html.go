package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// blockElements are the elements that end a line of extracted text.
var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true,
	"tr": true, "table": true, "section": true, "article": true,
	"header": true, "footer": true, "blockquote": true, "pre": true,
	"dt": true, "dd": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true,
}

func (l *Loader) fetchPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize+1))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	if len(body) > maxRemoteSize {
		return "", fmt.Errorf("fetching %s: response exceeds %d bytes", url, maxRemoteSize)
	}

	text, err := ExtractText(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", url, err)
	}
	return text, nil
}

// ExtractText reduces an HTML document to its visible text. Script, style
// and noscript subtrees are skipped; each block element yields one line
// with internal whitespace collapsed to single spaces.
func ExtractText(r io.Reader) (string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	var x textExtractor
	x.walk(root)
	x.flush()
	return strings.Join(x.lines, "\n"), nil
}

type textExtractor struct {
	lines []string
	cur   strings.Builder
}

func (x *textExtractor) flush() {
	line := strings.Join(strings.Fields(x.cur.String()), " ")
	x.cur.Reset()
	if line != "" {
		x.lines = append(x.lines, line)
	}
}

func (x *textExtractor) walk(n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		case "br":
			x.flush()
			return
		}
	case html.TextNode:
		x.cur.WriteString(n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		x.walk(c)
	}

	if n.Type == html.ElementNode && blockElements[n.Data] {
		x.flush()
	}
}
