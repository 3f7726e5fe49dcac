package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SplitLines breaks raw recognized text into trimmed, non-empty lines.
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ExtractFields parses recognized receipt text into structured data using
// ordered heuristic rules. The same input always yields the same output.
func ExtractFields(lines []string, filename string) ExtractedData {
	data := ExtractedData{
		MerchantName: extractMerchantName(lines),
		Date:         extractDate(lines),
		Total:        extractTotal(lines),
		Items:        extractItems(lines),
	}

	// When recognition recovered neither a merchant nor a total, the text
	// was probably garbage; fall back to a filename guess for the merchant.
	if data.MerchantName == "" && data.Total == nil {
		data.MerchantName = GuessMerchant(filename)
	}

	return data
}

// knownMerchants is a lexicon of well-known retail, restaurant and pharmacy
// brands matched case-insensitively as substrings.
var knownMerchants = []string{
	"walmart", "target", "costco", "kroger", "safeway", "publix",
	"whole foods", "trader joe", "cvs", "walgreens",
	"mcdonald", "burger king", "subway", "starbucks", "dunkin",
	"pizza", "restaurant",
	"home depot", "lowes", "best buy", "amazon", "apple",
}

var (
	phoneShape    = regexp.MustCompile(`\d{3}-\d{3}-\d{4}`)
	addressShape  = regexp.MustCompile(`(?i)\d+\s+\w+\s+(st|ave|rd|blvd|dr)\b`)
	businessShape = regexp.MustCompile(`^[A-Za-z\s&'-]+$`)
	anyDigit      = regexp.MustCompile(`\d`)
)

// extractMerchantName scans the first five lines for something that looks
// like a business name, skipping lines shaped like phone numbers or street
// addresses.
func extractMerchantName(lines []string) string {
	limit := 5
	if len(lines) < limit {
		limit = len(lines)
	}

	for _, line := range lines[:limit] {
		if phoneShape.MatchString(line) || addressShape.MatchString(line) {
			continue
		}

		lower := strings.ToLower(line)
		for _, brand := range knownMerchants {
			if strings.Contains(lower, brand) {
				return line
			}
		}

		// A short all-letter line near the top is usually the business
		// name when no known brand matched.
		if len(line) > 3 && len(line) < 30 && !anyDigit.MatchString(line) && businessShape.MatchString(line) {
			return line
		}
	}

	return ""
}

// dateRule pairs a date-shape pattern with the layouts used to parse it.
type dateRule struct {
	shape   *regexp.Regexp
	layouts []string
	// monthly rules carry a month name that Go's parser needs title-cased
	monthName bool
}

var dateRules = []dateRule{
	{shape: regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`), layouts: []string{"1/2/2006", "1/2/06"}},
	{shape: regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{2,4}\b`), layouts: []string{"1-2-2006", "1-2-06"}},
	{shape: regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`), layouts: []string{"2006-1-2"}},
	{
		shape:     regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{1,2},?\s+\d{4}\b`),
		layouts:   []string{"January 2, 2006", "January 2 2006", "Jan 2, 2006", "Jan 2 2006"},
		monthName: true,
	},
	{
		shape:     regexp.MustCompile(`(?i)\b\d{1,2}\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{4}\b`),
		layouts:   []string{"2 January 2006", "2 Jan 2006"},
		monthName: true,
	},
}

// extractDate returns the first date found anywhere in the text, normalized
// to YYYY-MM-DD. If a line matches a date shape that then fails to parse,
// the raw matched substring is returned unmodified.
func extractDate(lines []string) string {
	for _, line := range lines {
		for _, rule := range dateRules {
			match := rule.shape.FindString(line)
			if match == "" {
				continue
			}
			candidate := match
			if rule.monthName {
				candidate = titleCaseWords(match)
			}
			for _, layout := range rule.layouts {
				if d, err := time.Parse(layout, candidate); err == nil {
					return d.Format("2006-01-02")
				}
			}
			return match
		}
	}
	return ""
}

// titleCaseWords lowercases a matched date and capitalizes each word so
// month names satisfy the case-sensitive reference layouts.
func titleCaseWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if w[0] >= 'a' && w[0] <= 'z' {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

var totalRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)total[:\s]*\$?(\d+\.?\d*)`),
	regexp.MustCompile(`(?i)amount[:\s]*\$?(\d+\.?\d*)`),
	regexp.MustCompile(`(?i)balance[:\s]*\$?(\d+\.?\d*)`),
	regexp.MustCompile(`\$(\d+\.\d{2})$`),
	regexp.MustCompile(`(\d+\.\d{2})\s*$`),
}

var (
	totalMin = decimal.Zero
	totalMax = decimal.NewFromInt(10000)
)

// extractTotal scans from the bottom up, where totals live, and accepts the
// first labeled or trailing amount in the open interval (0, 10000).
func extractTotal(lines []string) *decimal.Decimal {
	for i := len(lines) - 1; i >= 0; i-- {
		for _, rule := range totalRules {
			m := rule.FindStringSubmatch(lines[i])
			if m == nil {
				continue
			}
			amount, err := decimal.NewFromString(m[1])
			if err != nil {
				continue
			}
			if amount.GreaterThan(totalMin) && amount.LessThan(totalMax) {
				rounded := amount.Round(2)
				return &rounded
			}
		}
	}
	return nil
}

// itemStopWords disqualify a line from being treated as a purchased item.
var itemStopWords = []string{
	"total", "subtotal", "tax", "change", "cash", "card",
	"receipt", "store", "address", "phone", "thank you",
}

type itemRule struct {
	pattern *regexp.Regexp
	// when true the first capture group is a quantity
	hasQuantity bool
}

var itemRules = []itemRule{
	{pattern: regexp.MustCompile(`^(\d+)\s+(.+?)\s+\$?(\d+\.\d{2})$`), hasQuantity: true},
	{pattern: regexp.MustCompile(`^(.+?)\s+\$(\d+\.\d{2})$`)},
	{pattern: regexp.MustCompile(`^(.+?)\s+(\d+\.\d{2})\s*$`)},
}

var itemPriceMax = decimal.NewFromInt(1000)

// extractItems collects item lines in order, skipping anything that reads
// like a header, a total, or store boilerplate.
func extractItems(lines []string) []LineItem {
	var items []LineItem

	for _, line := range lines {
		if containsStopWord(line) {
			continue
		}

		for _, rule := range itemRules {
			m := rule.pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}

			var item LineItem
			var priceRaw string
			if rule.hasQuantity {
				qty, err := strconv.Atoi(m[1])
				if err != nil {
					break
				}
				item.Quantity = qty
				item.Name = strings.TrimSpace(m[2])
				priceRaw = m[3]
			} else {
				item.Name = strings.TrimSpace(m[1])
				priceRaw = m[2]
			}

			price, err := decimal.NewFromString(priceRaw)
			if err != nil {
				break
			}
			item.Price = price

			if len(item.Name) > 1 && price.GreaterThan(decimal.Zero) && price.LessThan(itemPriceMax) {
				items = append(items, item)
			}
			break
		}
	}

	return items
}

func containsStopWord(line string) bool {
	lower := strings.ToLower(line)
	for _, word := range itemStopWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
