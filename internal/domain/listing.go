package domain

import "fmt"

// Tone controls the voice of generated listing copy
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneEnthusiastic Tone = "enthusiastic"
	ToneLuxury       Tone = "luxury"
)

// Valid reports whether t is a known tone
func (t Tone) Valid() bool {
	switch t {
	case ToneProfessional, ToneCasual, ToneEnthusiastic, ToneLuxury:
		return true
	}
	return false
}

// PromptHint describes the tone to the text model
func (t Tone) PromptHint() string {
	switch t {
	case ToneCasual:
		return "friendly and conversational, like a neighbor selling something they liked"
	case ToneEnthusiastic:
		return "upbeat and energetic, highlighting what makes the item exciting"
	case ToneLuxury:
		return "refined and understated, emphasizing craftsmanship and exclusivity"
	default:
		return "clear, factual and trustworthy"
	}
}

// Style controls the structure of generated listing copy
type Style string

const (
	StyleDetailed     Style = "detailed"
	StyleConcise      Style = "concise"
	StyleStorytelling Style = "storytelling"
)

// Valid reports whether s is a known style
func (s Style) Valid() bool {
	switch s {
	case StyleDetailed, StyleConcise, StyleStorytelling:
		return true
	}
	return false
}

// PromptHint describes the style to the text model
func (s Style) PromptHint() string {
	switch s {
	case StyleConcise:
		return "short paragraphs, only the facts a buyer needs"
	case StyleStorytelling:
		return "open with how the item is used or enjoyed, then cover the details"
	default:
		return "thorough, covering specifications, condition and what is included"
	}
}

// Platform is the resale marketplace a listing is written for
type Platform string

const (
	PlatformFacebook   Platform = "facebook_marketplace"
	PlatformEbay       Platform = "ebay"
	PlatformCraigslist Platform = "craigslist"
	PlatformMercari    Platform = "mercari"
	PlatformPoshmark   Platform = "poshmark"
	PlatformGeneric    Platform = "generic"
)

// Valid reports whether p is a known platform
func (p Platform) Valid() bool {
	switch p {
	case PlatformFacebook, PlatformEbay, PlatformCraigslist, PlatformMercari, PlatformPoshmark, PlatformGeneric:
		return true
	}
	return false
}

// CallToAction is the closing line appended to a listing on this platform
func (p Platform) CallToAction() string {
	switch p {
	case PlatformFacebook:
		return "Send me a message if you're interested - pickup or delivery available!"
	case PlatformEbay:
		return "Buy with confidence - ships quickly and carefully packed."
	case PlatformCraigslist:
		return "Cash or digital payment, local pickup. Email or text to arrange."
	case PlatformMercari:
		return "Make an offer - bundles welcome!"
	case PlatformPoshmark:
		return "Bundle to save and make an offer!"
	default:
		return "Message me with any questions!"
	}
}

// RegenerateElement names the part of a listing that can be regenerated alone
type RegenerateElement string

const (
	ElementTitle         RegenerateElement = "title"
	ElementDescription   RegenerateElement = "description"
	ElementSellingPoints RegenerateElement = "sellingPoints"
)

// ParseRegenerateElement maps a request value to an element. Unrecognized
// names return an error wrapping ErrUnknownElement.
func ParseRegenerateElement(s string) (RegenerateElement, error) {
	switch e := RegenerateElement(s); e {
	case ElementTitle, ElementDescription, ElementSellingPoints:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownElement, s)
	}
}

// ListingContent is the structured bundle the text model returns
type ListingContent struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	SellingPoints []string `json:"sellingPoints"`
	Hashtags      []string `json:"hashtags,omitempty"`
}

// ContentKind tags how a model response was interpreted
type ContentKind string

const (
	ContentStructured ContentKind = "structured"
	ContentRaw        ContentKind = "raw"
)

// GeneratedContent is either a parsed ListingContent or, when the model
// response could not be parsed, the raw text.
type GeneratedContent struct {
	Kind       ContentKind     `json:"kind"`
	Structured *ListingContent `json:"structured,omitempty"`
	Raw        string          `json:"raw,omitempty"`
}

// ListingPrompt is everything the text model needs to write a listing
type ListingPrompt struct {
	Product  EnrichedProductAnalysis `json:"product"`
	Notes    string                  `json:"notes,omitempty"`
	Tone     Tone                    `json:"tone"`
	Style    Style                   `json:"style"`
	Platform Platform                `json:"platform"`
	Price    float64                 `json:"price,omitempty"`
}

// EmojiStrategy controls where emojis are placed in a description
type EmojiStrategy string

const (
	EmojiPrefix      EmojiStrategy = "prefix"
	EmojiSuffix      EmojiStrategy = "suffix"
	EmojiInterleaved EmojiStrategy = "interleaved"
)

// FormatOptions configure FormatMarketplacePost
type FormatOptions struct {
	IncludeEmojis  bool          `json:"includeEmojis"`
	Emojis         []string      `json:"emojis,omitempty"`
	EmojiStrategy  EmojiStrategy `json:"emojiStrategy,omitempty"`
	EmojiCount     int           `json:"emojiCount,omitempty"`
	Category       string        `json:"category,omitempty"`
	Condition      Condition     `json:"condition,omitempty"`
	CallToAction   string        `json:"callToAction,omitempty"`
	MinWords       int           `json:"minWords,omitempty"`
	MaxWords       int           `json:"maxWords,omitempty"`
	SellingPoints  []string      `json:"sellingPoints,omitempty"`
	Price          float64       `json:"price,omitempty"`
	PriceCurrency  string        `json:"priceCurrency,omitempty"`
	DisableCleanup bool          `json:"disableCleanup,omitempty"`
}

// PostMetadata summarizes a formatted post
type PostMetadata struct {
	WordCount      int `json:"wordCount"`
	CharacterCount int `json:"characterCount"`
	EmojiCount     int `json:"emojiCount"`
}

// FormattedPost is a listing ready to paste into a marketplace
type FormattedPost struct {
	Title                 string           `json:"title"`
	Description           string           `json:"description"`
	TitleValidation       ValidationResult `json:"titleValidation"`
	DescriptionValidation ValidationResult `json:"descriptionValidation"`
	Metadata              PostMetadata     `json:"metadata"`
}

// GeneratedListing is the end-to-end output for one product
type GeneratedListing struct {
	Merged     MergedProductData       `json:"merged"`
	Enriched   EnrichedProductAnalysis `json:"enriched"`
	Validation ValidationResult        `json:"validation"`
	Content    GeneratedContent        `json:"content"`
	Post       *FormattedPost          `json:"post,omitempty"`
}
