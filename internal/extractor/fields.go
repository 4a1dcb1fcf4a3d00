package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ratingClassSelector matches elements whose class hints at a rating widget.
const ratingClassSelector = `span[class*="star"], div[class*="star"], span[class*="rating"], div[class*="rating"], span[class*="score"], div[class*="score"]`

var (
	starClassRe  = regexp.MustCompile(`(?i)(\d+)[-_]?star|star[-_]?(\d+)`)
	ariaRatingRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:out of|/|star)`)
	bareNumberRe = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
)

// extractRating recovers a numeric rating from an element, trying in order:
// a star count embedded in a class name, a numeric accessibility label, and
// a bare number in the element text constrained to a 1-5 scale.
func extractRating(elem *goquery.Selection) (float64, bool) {
	if class, ok := elem.Attr("class"); ok {
		if m := starClassRe.FindStringSubmatch(class); m != nil {
			digits := m[1]
			if digits == "" {
				digits = m[2]
			}
			if v, err := strconv.ParseFloat(digits, 64); err == nil {
				return v, true
			}
		}
	}

	if aria, ok := elem.Attr("aria-label"); ok {
		if m := ariaRatingRe.FindStringSubmatch(aria); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				return v, true
			}
		}
	}

	text := strings.TrimSpace(elem.Text())
	if m := bareNumberRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 1 && v <= 5 {
			return v, true
		}
	}

	return 0, false
}

// datePatterns are tried in order; the first match wins. Unmatched dates
// pass through as raw text. The year-first form runs before day-first so an
// ISO date is not clipped to its two-digit-year suffix.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}[/-]\d{1,2}[/-]\d{1,2}`),
	regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`),
	regexp.MustCompile(`[A-Za-z]+\s+\d{1,2},?\s+\d{4}`),
	regexp.MustCompile(`\d{1,2}\s+[A-Za-z]+\s+\d{4}`),
}

func parseDate(raw string) string {
	for _, pattern := range datePatterns {
		if m := pattern.FindString(raw); m != "" {
			return m
		}
	}
	return raw
}

// textBlocks walks the element's subtree collecting text nodes longer than
// minLen, stopping after max blocks. Script and style subtrees are skipped.
func textBlocks(elem *goquery.Selection, minLen, max int) []string {
	var blocks []string
	for _, node := range elem.Nodes {
		collectTextBlocks(node, minLen, max, &blocks)
		if len(blocks) >= max {
			break
		}
	}
	return blocks
}

func collectTextBlocks(node *html.Node, minLen, max int, blocks *[]string) {
	if node == nil || len(*blocks) >= max {
		return
	}
	if node.Type == html.ElementNode {
		switch strings.ToLower(node.Data) {
		case "script", "style", "noscript":
			return
		}
	}
	if node.Type == html.TextNode {
		text := strings.Join(strings.Fields(node.Data), " ")
		if len(text) > minLen {
			*blocks = append(*blocks, text)
		}
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectTextBlocks(child, minLen, max, blocks)
		if len(*blocks) >= max {
			return
		}
	}
}
