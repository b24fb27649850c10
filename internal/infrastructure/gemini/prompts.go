package gemini

import (
	"fmt"
	"sort"
	"strings"

	"github.com/listinglens/backend/internal/domain"
)

// Length targets given to the text model. They match the post formatter's
// validation bounds.
const (
	titleMinChars       = 50
	titleMaxChars       = 80
	descriptionMinWords = 200
	descriptionMaxWords = 500
)

const visionPrompt = `You are an expert resale appraiser. Identify the product in this photo for a second-hand marketplace listing.

Respond with a single JSON object and nothing else, using this shape:
{
  "productType": "short product type, e.g. Smartphone",
  "category": {"primary": "", "secondary": "", "tertiary": "", "confidence": "HIGH|MEDIUM|LOW"},
  "brand": {"name": "", "confidence": "HIGH|MEDIUM|LOW", "verified": false} or null,
  "condition": "new|like_new|excellent|good|fair|poor|for_parts|unknown",
  "conditionConfidence": "HIGH|MEDIUM|LOW",
  "attributes": {"color": [], "material": [], "size": "", "style": "", "model": "", "year": "", "dimensions": "", "weight": "", "customAttributes": {}},
  "extractedText": [{"text": "", "location": "", "confidence": "HIGH|MEDIUM|LOW"}],
  "features": [],
  "defects": {"scratches": false, "dents": false, "stains": false, "tears": false, "missingParts": false, "discoloration": false, "description": "", "severity": "minor|moderate|severe"} or null,
  "visualQuality": {"imageQuality": "excellent|good|fair|poor", "lighting": "good|fair|poor", "clarity": "sharp|slightly_blurry|blurry", "background": "clean|cluttered|distracting", "recommendations": []},
  "description": "two or three sentence description of the item",
  "suggestedTitle": "marketplace title",
  "suggestedKeywords": [],
  "overallConfidence": "HIGH|MEDIUM|LOW"
}

Rules:
- Only set brand.verified to true when a logo or brand text is clearly legible.
- Copy any UPC or EAN barcode digits you can read into extractedText.
- Use "unknown" for condition when the photo does not show enough of the item.
- Recommendations are short tips for taking a better photo.`

// buildListingPrompt renders the product facts and voice settings for the text model
func buildListingPrompt(p domain.ListingPrompt) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a resale listing for %s.\n\n", platformName(p.Platform))
	b.WriteString("Product details:\n")
	writeProductFacts(&b, p)

	fmt.Fprintf(&b, "\nTone: %s (%s).\n", p.Tone, p.Tone.PromptHint())
	fmt.Fprintf(&b, "Style: %s (%s).\n", p.Style, p.Style.PromptHint())
	fmt.Fprintf(&b, "The title must be %d to %d characters. The description must be %d to %d words, split into short paragraphs.\n",
		titleMinChars, titleMaxChars, descriptionMinWords, descriptionMaxWords)
	b.WriteString("Be honest about condition and defects. Do not invent specifications that are not listed above.\n")
	b.WriteString("Do not include the price or a call to action in the description.\n\n")
	b.WriteString(`Respond with a single JSON object and nothing else: {"title": "", "description": "", "sellingPoints": ["3 to 6 short benefit statements"], "hashtags": ["#example"]}`)

	return b.String()
}

// buildElementPrompt asks for a replacement for one element of an existing listing
func buildElementPrompt(element domain.RegenerateElement, p domain.ListingPrompt, current domain.ListingContent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Rewrite the %s of this %s listing. Keep everything else about the listing in mind but only return the %s.\n\n",
		elementName(element), platformName(p.Platform), elementName(element))
	b.WriteString("Product details:\n")
	writeProductFacts(&b, p)

	b.WriteString("\nCurrent listing:\n")
	fmt.Fprintf(&b, "Title: %s\n", current.Title)
	fmt.Fprintf(&b, "Description: %s\n", current.Description)
	if len(current.SellingPoints) > 0 {
		fmt.Fprintf(&b, "Selling points: %s\n", strings.Join(current.SellingPoints, "; "))
	}

	fmt.Fprintf(&b, "\nTone: %s (%s).\n", p.Tone, p.Tone.PromptHint())
	fmt.Fprintf(&b, "Style: %s (%s).\n", p.Style, p.Style.PromptHint())
	b.WriteString("Write something noticeably different from the current version.\n\n")

	switch element {
	case domain.ElementTitle:
		fmt.Fprintf(&b, "The title must be %d to %d characters.\n", titleMinChars, titleMaxChars)
		b.WriteString(`Respond with JSON only: {"title": ""}`)
	case domain.ElementDescription:
		fmt.Fprintf(&b, "The description must be %d to %d words.\n", descriptionMinWords, descriptionMaxWords)
		b.WriteString(`Respond with JSON only: {"description": ""}`)
	case domain.ElementSellingPoints:
		b.WriteString(`Respond with JSON only: {"sellingPoints": ["3 to 6 short benefit statements"]}`)
	}

	return b.String()
}

func writeProductFacts(b *strings.Builder, p domain.ListingPrompt) {
	product := p.Product

	fmt.Fprintf(b, "- Product: %s\n", product.ProductType)
	if product.HasBrand() {
		fmt.Fprintf(b, "- Brand: %s\n", product.Brand.Name)
	}
	if product.Attributes.Model != "" {
		fmt.Fprintf(b, "- Model: %s\n", product.Attributes.Model)
	}
	fmt.Fprintf(b, "- Category: %s\n", categoryPath(product.Category))
	fmt.Fprintf(b, "- Condition: %s\n", product.Condition.Label())

	attrs := product.Attributes
	if len(attrs.Color) > 0 {
		fmt.Fprintf(b, "- Color: %s\n", strings.Join(attrs.Color, ", "))
	}
	if len(attrs.Material) > 0 {
		fmt.Fprintf(b, "- Material: %s\n", strings.Join(attrs.Material, ", "))
	}
	for _, field := range []struct{ label, value string }{
		{"Size", attrs.Size},
		{"Style", attrs.Style},
		{"Year", attrs.Year},
		{"Dimensions", attrs.Dimensions},
		{"Weight", attrs.Weight},
	} {
		if field.value != "" {
			fmt.Fprintf(b, "- %s: %s\n", field.label, field.value)
		}
	}

	keys := make([]string, 0, len(attrs.CustomAttributes))
	for k := range attrs.CustomAttributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %s\n", k, attrs.CustomAttributes[k].String())
	}

	if len(product.Features) > 0 {
		fmt.Fprintf(b, "- Features: %s\n", strings.Join(product.Features, "; "))
	}
	if product.Defects != nil && product.Defects.FlagCount() > 0 {
		desc := product.Defects.Description
		if desc == "" {
			desc = "visible wear"
		}
		fmt.Fprintf(b, "- Defects: %s\n", desc)
	}
	if product.Description != "" {
		fmt.Fprintf(b, "- Summary: %s\n", product.Description)
	}
	if len(product.SuggestedKeywords) > 0 {
		fmt.Fprintf(b, "- Keywords: %s\n", strings.Join(product.SuggestedKeywords, ", "))
	}
	if p.Notes != "" {
		fmt.Fprintf(b, "- Seller notes: %s\n", p.Notes)
	}
	if p.Price > 0 {
		fmt.Fprintf(b, "- Asking price: %.2f\n", p.Price)
	}
}

func categoryPath(c domain.Category) string {
	parts := []string{c.Primary}
	for _, level := range []string{c.Secondary, c.Tertiary} {
		if level != "" {
			parts = append(parts, level)
		}
	}
	return strings.Join(parts, " > ")
}

func platformName(p domain.Platform) string {
	switch p {
	case domain.PlatformFacebook:
		return "Facebook Marketplace"
	case domain.PlatformEbay:
		return "eBay"
	case domain.PlatformCraigslist:
		return "Craigslist"
	case domain.PlatformMercari:
		return "Mercari"
	case domain.PlatformPoshmark:
		return "Poshmark"
	default:
		return "an online marketplace"
	}
}

func elementName(e domain.RegenerateElement) string {
	if e == domain.ElementSellingPoints {
		return "selling points"
	}
	return string(e)
}
