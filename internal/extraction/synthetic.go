package extraction

import (
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// largeImageBytes is the size above which a receipt photo is assumed to
// show a longer, more expensive receipt.
const largeImageBytes = 500 * 1024

// category classifies a filename into a plausible merchant with a fixed
// item template. The table is ordered and the first matching rule wins;
// keywords overlap between categories, so order matters.
type category struct {
	keywords  []string
	merchant  string
	baseTotal decimal.Decimal
	items     []LineItem
}

var categories = []category{
	{
		keywords:  []string{"grocery", "supermarket", "food"},
		merchant:  "Fresh Market",
		baseTotal: dec("45.67"),
		items: []LineItem{
			{Name: "Organic Bananas", Price: dec("3.99"), Quantity: 1},
			{Name: "Whole Milk", Price: dec("4.29"), Quantity: 1},
			{Name: "Sourdough Bread", Price: dec("3.49"), Quantity: 1},
			{Name: "Free Range Eggs", Price: dec("5.99"), Quantity: 1},
		},
	},
	{
		keywords:  []string{"restaurant", "cafe", "coffee"},
		merchant:  "Corner Cafe",
		baseTotal: dec("18.50"),
		items: []LineItem{
			{Name: "Cappuccino", Price: dec("4.50"), Quantity: 1},
			{Name: "Avocado Toast", Price: dec("12.00"), Quantity: 1},
			{Name: "Orange Juice", Price: dec("2.00"), Quantity: 1},
		},
	},
	{
		keywords:  []string{"gas", "fuel", "station"},
		merchant:  "QuickFuel",
		baseTotal: dec("52.30"),
		items: []LineItem{
			{Name: "Regular Gasoline", Price: dec("52.30"), Quantity: 1},
		},
	},
	{
		keywords:  []string{"pharmacy", "cvs", "walgreens"},
		merchant:  "HealthPlus Pharmacy",
		baseTotal: dec("23.45"),
		items: []LineItem{
			{Name: "Vitamin D3", Price: dec("12.99"), Quantity: 1},
			{Name: "Hand Sanitizer", Price: dec("3.49"), Quantity: 2},
			{Name: "Bandages", Price: dec("3.48"), Quantity: 1},
		},
	},
	{keywords: []string{"walmart"}, merchant: "Walmart", baseTotal: dec("67.89"), items: bigBoxItems},
	{keywords: []string{"target"}, merchant: "Target", baseTotal: dec("67.89"), items: bigBoxItems},
	{keywords: []string{"costco"}, merchant: "Costco", baseTotal: dec("67.89"), items: bigBoxItems},
	{
		// default; must stay last
		merchant:  "Retail Store",
		baseTotal: dec("25.00"),
		items: []LineItem{
			{Name: "Product A", Price: dec("12.99"), Quantity: 1},
			{Name: "Product B", Price: dec("8.50"), Quantity: 1},
			{Name: "Product C", Price: dec("3.51"), Quantity: 1},
		},
	},
}

var bigBoxItems = []LineItem{
	{Name: "Laundry Detergent", Price: dec("15.99"), Quantity: 1},
	{Name: "Paper Towels", Price: dec("12.49"), Quantity: 2},
	{Name: "Shampoo", Price: dec("8.99"), Quantity: 1},
	{Name: "Snack Crackers", Price: dec("4.99"), Quantity: 3},
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Generator produces plausible receipt data when no real recognized text is
// available. Which merchant and items come out is fully determined by the
// filename and image size; randomness only varies the receipt date.
type Generator struct {
	timeSource TimeSource
	rand       *rand.Rand
}

// NewGenerator creates a Generator with the system clock and a time-seeded
// random source.
func NewGenerator() *Generator {
	return NewGeneratorWithDeps(defaultTimeSource{}, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewGeneratorWithDeps creates a Generator with custom dependencies for testing.
func NewGeneratorWithDeps(timeSource TimeSource, r *rand.Rand) *Generator {
	return &Generator{
		timeSource: timeSource,
		rand:       r,
	}
}

// Generate fabricates extracted data for a receipt image from its filename
// and byte size.
func (g *Generator) Generate(filename string, imageByteSize int) ExtractedData {
	cat := classify(filename)

	items := make([]LineItem, len(cat.items))
	copy(items, cat.items)

	if imageByteSize > largeImageBytes {
		// A large photo usually means a long receipt: scale the nominal
		// total and tack on one extra line at 20% of it.
		scaled := cat.baseTotal.Mul(dec("1.5"))
		items = append(items, LineItem{
			Name:     "Additional Item",
			Price:    scaled.Mul(dec("0.2")).Round(2),
			Quantity: 1,
		})
	}

	total := ItemsTotal(items)
	return ExtractedData{
		MerchantName: cat.merchant,
		Date:         g.recentDate(),
		Total:        &total,
		Items:        items,
	}
}

// Fallback fabricates a minimal extraction keyed on the filename alone,
// used when recognition fails outright.
func (g *Generator) Fallback(filename string) ExtractedData {
	// 5.00 to 25.00, two decimals
	price := decimal.NewFromFloat(g.rand.Float64()*20 + 5).Round(2)
	total := price
	return ExtractedData{
		MerchantName: GuessMerchant(filename),
		Date:         g.timeSource.Now().Format("2006-01-02"),
		Total:        &total,
		Items: []LineItem{
			{Name: "Unrecognized Item", Price: price, Quantity: 1},
		},
	}
}

// recentDate returns a day within the past 30 days as YYYY-MM-DD.
func (g *Generator) recentDate() string {
	daysAgo := g.rand.Intn(30)
	return g.timeSource.Now().AddDate(0, 0, -daysAgo).Format("2006-01-02")
}

func classify(filename string) category {
	name := strings.ToLower(filename)
	for _, cat := range categories {
		for _, kw := range cat.keywords {
			if strings.Contains(name, kw) {
				return cat
			}
		}
	}
	return categories[len(categories)-1]
}

// merchantGuesses maps filename keywords to coarse merchant names. Ordered;
// first match wins.
var merchantGuesses = []struct {
	keywords []string
	merchant string
}{
	{[]string{"grocery", "supermarket"}, "Grocery Store"},
	{[]string{"restaurant", "food"}, "Restaurant"},
	{[]string{"gas", "fuel"}, "Gas Station"},
	{[]string{"pharmacy", "drug"}, "Pharmacy"},
	{[]string{"coffee", "cafe"}, "Coffee Shop"},
	{[]string{"walmart"}, "Walmart"},
	{[]string{"target"}, "Target"},
	{[]string{"costco"}, "Costco"},
}

// GuessMerchant makes a coarse merchant guess from filename keywords.
func GuessMerchant(filename string) string {
	name := strings.ToLower(filename)
	for _, g := range merchantGuesses {
		for _, kw := range g.keywords {
			if strings.Contains(name, kw) {
				return g.merchant
			}
		}
	}
	return "Unknown Merchant"
}
