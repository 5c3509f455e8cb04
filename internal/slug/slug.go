package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Make lowercases s, folds accents to ASCII and joins the remaining
// alphanumeric runs with single dashes.
func Make(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(folded), "-"), "-")
}

// ForProduct builds the storefront slug for an imported product. The remote id
// and sku suffix keep slugs unique when names collide.
func ForProduct(name string, remoteID int64, sku *string) string {
	parts := []string{name, strconv.FormatInt(remoteID, 10)}
	if sku != nil && *sku != "" {
		parts = append(parts, *sku)
	}
	return Make(strings.Join(parts, "-"))
}
