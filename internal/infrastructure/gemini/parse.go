package gemini

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/listinglens/backend/internal/domain"
)

// cleanJSON strips markdown code fences and any prose around the outermost
// JSON object the model returned.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// stringList accepts either a JSON string or a list of strings
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*l = nil
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*l = out
	return nil
}

// visionResponse mirrors the JSON schema requested in the vision prompt.
// Enum fields are kept as strings and normalized in toDomain.
type visionResponse struct {
	ProductType string `json:"productType"`
	Category    struct {
		Primary    string `json:"primary"`
		Secondary  string `json:"secondary"`
		Tertiary   string `json:"tertiary"`
		Confidence string `json:"confidence"`
	} `json:"category"`
	Brand *struct {
		Name       string `json:"name"`
		Confidence string `json:"confidence"`
		Verified   bool   `json:"verified"`
	} `json:"brand"`
	Condition           string `json:"condition"`
	ConditionConfidence string `json:"conditionConfidence"`
	Attributes          struct {
		Color            stringList                       `json:"color"`
		Material         stringList                       `json:"material"`
		Size             string                           `json:"size"`
		Style            string                           `json:"style"`
		Model            string                           `json:"model"`
		Year             string                           `json:"year"`
		Dimensions       string                           `json:"dimensions"`
		Weight           string                           `json:"weight"`
		CustomAttributes map[string]domain.AttributeValue `json:"customAttributes"`
	} `json:"attributes"`
	ExtractedText []struct {
		Text       string `json:"text"`
		Location   string `json:"location"`
		Confidence string `json:"confidence"`
	} `json:"extractedText"`
	Features []string `json:"features"`
	Defects  *struct {
		Scratches     bool   `json:"scratches"`
		Dents         bool   `json:"dents"`
		Stains        bool   `json:"stains"`
		Tears         bool   `json:"tears"`
		MissingParts  bool   `json:"missingParts"`
		Discoloration bool   `json:"discoloration"`
		Description   string `json:"description"`
		Severity      string `json:"severity"`
	} `json:"defects"`
	VisualQuality struct {
		ImageQuality    string   `json:"imageQuality"`
		Lighting        string   `json:"lighting"`
		Clarity         string   `json:"clarity"`
		Background      string   `json:"background"`
		Recommendations []string `json:"recommendations"`
	} `json:"visualQuality"`
	Description       string   `json:"description"`
	SuggestedTitle    string   `json:"suggestedTitle"`
	SuggestedKeywords []string `json:"suggestedKeywords"`
	OverallConfidence string   `json:"overallConfidence"`
}

// parseAnalysis decodes the vision model output into a ProductAnalysis
func parseAnalysis(text string, analyzedAt time.Time) (*domain.ProductAnalysis, error) {
	var resp visionResponse
	if err := json.Unmarshal([]byte(cleanJSON(text)), &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(analyzedAt), nil
}

func (r *visionResponse) toDomain(analyzedAt time.Time) *domain.ProductAnalysis {
	analysis := &domain.ProductAnalysis{
		ProductType: strings.TrimSpace(r.ProductType),
		Category: domain.Category{
			Primary:    strings.TrimSpace(r.Category.Primary),
			Secondary:  strings.TrimSpace(r.Category.Secondary),
			Tertiary:   strings.TrimSpace(r.Category.Tertiary),
			Confidence: domain.ParseConfidenceLevel(r.Category.Confidence),
		},
		Condition:           domain.ParseCondition(r.Condition),
		ConditionConfidence: domain.ParseConfidenceLevel(r.ConditionConfidence),
		Attributes: domain.Attributes{
			Color:            r.Attributes.Color,
			Material:         r.Attributes.Material,
			Size:             r.Attributes.Size,
			Style:            r.Attributes.Style,
			Model:            r.Attributes.Model,
			Year:             r.Attributes.Year,
			Dimensions:       r.Attributes.Dimensions,
			Weight:           r.Attributes.Weight,
			CustomAttributes: r.Attributes.CustomAttributes,
		},
		Features: r.Features,
		VisualQuality: domain.VisualQuality{
			ImageQuality:    parseImageQuality(r.VisualQuality.ImageQuality),
			Lighting:        parseLighting(r.VisualQuality.Lighting),
			Clarity:         parseClarity(r.VisualQuality.Clarity),
			Background:      parseBackground(r.VisualQuality.Background),
			Recommendations: r.VisualQuality.Recommendations,
		},
		Description:       strings.TrimSpace(r.Description),
		SuggestedTitle:    strings.TrimSpace(r.SuggestedTitle),
		SuggestedKeywords: r.SuggestedKeywords,
		OverallConfidence: domain.ParseConfidenceLevel(r.OverallConfidence),
		AnalyzedAt:        analyzedAt,
	}

	if analysis.ProductType == "" {
		analysis.ProductType = "Unknown Product"
	}
	if analysis.Category.Primary == "" {
		analysis.Category.Primary = "Unknown"
	}

	if r.Brand != nil && strings.TrimSpace(r.Brand.Name) != "" {
		analysis.Brand = &domain.Brand{
			Name:       strings.TrimSpace(r.Brand.Name),
			Confidence: domain.ParseConfidenceLevel(r.Brand.Confidence),
			Verified:   r.Brand.Verified,
		}
	}

	for _, t := range r.ExtractedText {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		analysis.ExtractedText = append(analysis.ExtractedText, domain.ExtractedText{
			Text:       strings.TrimSpace(t.Text),
			Location:   t.Location,
			Confidence: domain.ParseConfidenceLevel(t.Confidence),
		})
	}

	if d := r.Defects; d != nil {
		analysis.Defects = &domain.Defects{
			Scratches:     d.Scratches,
			Dents:         d.Dents,
			Stains:        d.Stains,
			Tears:         d.Tears,
			MissingParts:  d.MissingParts,
			Discoloration: d.Discoloration,
			Description:   strings.TrimSpace(d.Description),
			Severity:      parseSeverity(d.Severity),
		}
	}

	return analysis
}

// normalizeEnum lowercases and joins words with underscores ("Slightly Blurry" -> "slightly_blurry")
func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func parseImageQuality(s string) domain.ImageQuality {
	switch q := domain.ImageQuality(normalizeEnum(s)); q {
	case domain.ImageQualityExcellent, domain.ImageQualityGood, domain.ImageQualityFair, domain.ImageQualityPoor:
		return q
	default:
		return domain.ImageQualityFair
	}
}

func parseLighting(s string) domain.Lighting {
	switch l := domain.Lighting(normalizeEnum(s)); l {
	case domain.LightingGood, domain.LightingFair, domain.LightingPoor:
		return l
	default:
		return domain.LightingFair
	}
}

func parseClarity(s string) domain.Clarity {
	switch c := domain.Clarity(normalizeEnum(s)); c {
	case domain.ClaritySharp, domain.ClaritySlightlyBlurry, domain.ClarityBlurry:
		return c
	default:
		return domain.ClaritySlightlyBlurry
	}
}

func parseBackground(s string) domain.Background {
	switch b := domain.Background(normalizeEnum(s)); b {
	case domain.BackgroundClean, domain.BackgroundCluttered, domain.BackgroundDistracting:
		return b
	default:
		return domain.BackgroundCluttered
	}
}

func parseSeverity(s string) domain.DefectSeverity {
	switch sev := domain.DefectSeverity(normalizeEnum(s)); sev {
	case domain.SeverityMinor, domain.SeverityModerate, domain.SeveritySevere:
		return sev
	default:
		return ""
	}
}

// parseListing decodes a full listing bundle. ok is false when the text is
// not JSON or carries neither a title nor a description.
func parseListing(text string) (*domain.ListingContent, bool) {
	var content domain.ListingContent
	if err := json.Unmarshal([]byte(cleanJSON(text)), &content); err != nil {
		return nil, false
	}
	content.Title = strings.TrimSpace(content.Title)
	content.Description = strings.TrimSpace(content.Description)
	if content.Title == "" && content.Description == "" {
		return nil, false
	}
	return &content, true
}

// parseElement extracts one regenerated element. When the model ignored the
// JSON instruction the plain text is used instead.
func parseElement(element domain.RegenerateElement, text string) (*domain.ListingContent, bool) {
	var content domain.ListingContent
	parsed := json.Unmarshal([]byte(cleanJSON(text)), &content) == nil

	out := &domain.ListingContent{}
	switch element {
	case domain.ElementTitle:
		out.Title = strings.TrimSpace(content.Title)
		if !parsed {
			out.Title = plainLine(text)
		}
		return out, out.Title != ""
	case domain.ElementDescription:
		out.Description = strings.TrimSpace(content.Description)
		if !parsed {
			out.Description = strings.TrimSpace(text)
		}
		return out, out.Description != ""
	case domain.ElementSellingPoints:
		out.SellingPoints = content.SellingPoints
		if !parsed {
			out.SellingPoints = bulletLines(text)
		}
		return out, len(out.SellingPoints) > 0
	default:
		return nil, false
	}
}

// plainLine returns the first non-empty line without surrounding quotes
func plainLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"'`)
		if line != "" {
			return line
		}
	}
	return ""
}

var bulletPrefixPattern = regexp.MustCompile(`^(?:[-*•]\s*|\d+[.)]\s+)`)

// bulletLines splits a bulleted or numbered list into its items
func bulletLines(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(bulletPrefixPattern.ReplaceAllString(line, ""))
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}
