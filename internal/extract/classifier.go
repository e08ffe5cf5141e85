package extract

import (
	"regexp"
	"strings"

	"github.com/receiptshield/analyzer/constants"
)

// The classifier is an ordered rule table: the first rule that matches a
// line wins. Rule order is policy, not an accident — vendor lines are
// claimed before date lines, dates before amounts, and so on. Keep new
// rules as pure predicate->label functions appended in the right slot.

// Rule classifies one trimmed, non-empty line (length >= 3 enforced by the
// caller) into a labeled value. ok=false means "not mine, try the next".
type Rule struct {
	Name  string
	Apply func(line string) (label, value string, ok bool)
}

// Rules returns the classification rule table in evaluation order.
func Rules() []Rule {
	return []Rule{
		{Name: "vendor", Apply: matchVendor},
		{Name: "date", Apply: matchDate},
		{Name: "total", Apply: matchTotal},
		{Name: "tip", Apply: matchTip},
		{Name: "payment", Apply: matchPayment},
		{Name: "item", Apply: matchItem},
		{Name: "amount", Apply: matchBareAmount},
	}
}

// Classify runs the rule table over one line. When no rule matches, lines
// longer than 5 characters that pass the noise filter come back as generic
// text; everything else is dropped (ok=false).
func Classify(line string) (label, value string, ok bool) {
	for _, r := range Rules() {
		if l, v, matched := r.Apply(line); matched {
			return l, v, true
		}
	}
	if len(line) > 5 && !isLikelyNoise(line) {
		return constants.LabelText, line, true
	}
	return "", "", false
}

var vendorKeywords = []string{
	"store", "shop", "market", "restaurant", "cafe", "bar", "pharmacy", "gas", "station",
}

var reHasDigit = regexp.MustCompile(`\d`)

func matchVendor(line string) (string, string, bool) {
	lower := strings.ToLower(line)
	for _, kw := range vendorKeywords {
		if strings.Contains(lower, kw) {
			return constants.LabelVendor, line, true
		}
	}
	// Short digit-free lines near the top of a receipt are almost always
	// the store name.
	if len(line) > 5 && len(line) < 50 && !reHasDigit.MatchString(line) {
		return constants.LabelVendor, line, true
	}
	return "", "", false
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{2,4})`),
	regexp.MustCompile(`(\d{1,2}-\d{1,2}-\d{2,4})`),
	regexp.MustCompile(`(\d{1,2}\.\d{1,2}\.\d{2,4})`),
	regexp.MustCompile(`(\d{4}-\d{1,2}-\d{1,2})`),
	regexp.MustCompile(`(?i)((?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\s+\d{1,2},?\s+\d{2,4})`),
	regexp.MustCompile(`(?i)(monday|tuesday|wednesday|thursday|friday|saturday|sunday)`),
}

func matchDate(line string) (string, string, bool) {
	for _, p := range datePatterns {
		if m := p.FindStringSubmatch(line); m != nil {
			return constants.LabelDate, m[1], true
		}
	}
	return "", "", false
}

var totalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)total[:\s]*\$?(\d+\.?\d*)`),
	regexp.MustCompile(`(?i)amount[:\s]*\$?(\d+\.?\d*)`),
	regexp.MustCompile(`(?i)price[:\s]*\$?(\d+\.?\d*)`),
	regexp.MustCompile(`(?i)sum[:\s]*\$?(\d+\.?\d*)`),
}

func matchTotal(line string) (string, string, bool) {
	for _, p := range totalPatterns {
		if m := p.FindStringSubmatch(line); m != nil {
			return constants.LabelTotalAmount, m[1], true
		}
	}
	return "", "", false
}

// Bare trailing amounts ("$23.45", "23.45 $") are claimed only after the
// item rule has had its chance, so "Coffee $4.50" stays a line item instead
// of becoming the receipt total.
var bareAmountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$(\d+\.?\d*)\s*$`),
	regexp.MustCompile(`(\d+\.?\d*)\s*\$`),
}

func matchBareAmount(line string) (string, string, bool) {
	for _, p := range bareAmountPatterns {
		if m := p.FindStringSubmatch(line); m != nil {
			return constants.LabelTotalAmount, m[1], true
		}
	}
	return "", "", false
}

var tipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)tip[:\s]*\$?(\d+\.?\d*)`),
	regexp.MustCompile(`(?i)gratuity[:\s]*\$?(\d+\.?\d*)`),
}

func matchTip(line string) (string, string, bool) {
	for _, p := range tipPatterns {
		if m := p.FindStringSubmatch(line); m != nil {
			return constants.LabelTip, m[1], true
		}
	}
	return "", "", false
}

// Fixed vocabulary, checked in order; first hit wins.
var paymentMethods = []string{
	"cash", "credit", "debit", "card", "visa", "mastercard", "amex", "paypal", "apple pay", "google pay",
}

func matchPayment(line string) (string, string, bool) {
	lower := strings.ToLower(line)
	for _, method := range paymentMethods {
		if strings.Contains(lower, method) {
			return constants.LabelPaymentMethod, strings.ToUpper(method), true
		}
	}
	return "", "", false
}

// item name followed by an optional dollar sign and a trailing price
var reItem = regexp.MustCompile(`^(.+?)\s+\$?(\d+\.?\d*)$`)

func matchItem(line string) (string, string, bool) {
	m := reItem.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	name := strings.TrimSpace(m[1])
	price := m[2]
	if len(name) > 2 && len(name) < 50 && !isLikelyNoise(name) {
		return constants.LabelItem, name + " - $" + price, true
	}
	return "", "", false
}

var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[^a-zA-Z]*$`),                             // no letters at all
	regexp.MustCompile(`(?i)^(receipt|invoice|bill|total|subtotal|tax|tip)$`), // boilerplate
	regexp.MustCompile(`^\d+$`),                                    // only digits
	regexp.MustCompile(`^[^a-zA-Z0-9]*$`),                          // only symbols
	regexp.MustCompile(`(?i)^(thank|you|visit|again|welcome)$`),    // footer words
}

func isLikelyNoise(text string) bool {
	for _, p := range noisePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
