package usecase

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/listinglens/backend/internal/domain"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Post bounds
const (
	MinTitleLength       = 50
	MaxTitleLength       = 80
	MinDescriptionWords  = 200
	MaxDescriptionWords  = 500
	maxDescriptionEmojis = 10
	paragraphWordLimit   = 100
	uppercaseRatioLimit  = 0.5
	sentenceBackupRatio  = 0.8
	defaultEmojiCount    = 3
	ellipsis             = "..."
)

// emojiTable holds the code point ranges counted as emojis, sorted by Lo
var emojiTable = &unicode.RangeTable{
	R32: []unicode.Range32{
		{Lo: 0x2600, Hi: 0x26FF, Stride: 1},   // misc symbols
		{Lo: 0x2700, Hi: 0x27BF, Stride: 1},   // dingbats
		{Lo: 0x1F1E0, Hi: 0x1F1FF, Stride: 1}, // flags
		{Lo: 0x1F300, Hi: 0x1F5FF, Stride: 1}, // symbols and pictographs
		{Lo: 0x1F600, Hi: 0x1F64F, Stride: 1}, // emoticons
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1}, // transport and map
		{Lo: 0x1F900, Hi: 0x1F9FF, Stride: 1}, // supplemental symbols
		{Lo: 0x1FA70, Hi: 0x1FAFF, Stride: 1}, // symbols extended-A
	},
}

var (
	sentenceEndPattern   = regexp.MustCompile(`([.!?]+)(\s+|$)`)
	repeatedPunctPattern = regexp.MustCompile(`[!?]{2,}`)
	inlineSpacePattern   = regexp.MustCompile(`[ \t]+`)
	lineEdgeSpacePattern = regexp.MustCompile(` *\n *`)
	extraNewlinePattern  = regexp.MustCompile(`\n{3,}`)
	repeatedBangPattern  = regexp.MustCompile(`!{2,}`)
	repeatedQueryPattern = regexp.MustCompile(`\?{2,}`)
	sentenceStartPattern = regexp.MustCompile(`(^|[.!?]\s+)\p{Ll}`)
)

// categoryEmojiTable is matched in order against the lowercased category
var categoryEmojiTable = []categoryEmojis{
	{[]string{"phone", "smartphone"}, []string{"📱"}},
	{[]string{"laptop", "computer"}, []string{"💻"}},
	{[]string{"electronic"}, []string{"📱", "💻", "🔌"}},
	{[]string{"camera", "photo"}, []string{"📷"}},
	{[]string{"watch", "clock"}, []string{"🕰"}},
	{[]string{"clothing", "apparel", "fashion"}, []string{"👕", "👗"}},
	{[]string{"shoe", "sneaker", "footwear"}, []string{"👟"}},
	{[]string{"bag", "purse", "handbag"}, []string{"👜"}},
	{[]string{"jewelry", "jewellery"}, []string{"💍"}},
	{[]string{"beauty", "cosmetic"}, []string{"💄"}},
	{[]string{"furniture"}, []string{"🛋", "🪑"}},
	{[]string{"home", "decor"}, []string{"🏠"}},
	{[]string{"kitchen", "appliance"}, []string{"🍳"}},
	{[]string{"toy"}, []string{"🧸"}},
	{[]string{"game", "gaming", "console"}, []string{"🎮"}},
	{[]string{"sport", "fitness", "outdoor"}, []string{"🏀", "⚽"}},
	{[]string{"bike", "bicycle", "cycling"}, []string{"🚲"}},
	{[]string{"book"}, []string{"📚"}},
	{[]string{"music", "instrument", "guitar"}, []string{"🎸", "🎵"}},
	{[]string{"artwork", "painting", "craft"}, []string{"🎨"}},
	{[]string{"tool", "hardware"}, []string{"🔧"}},
	{[]string{"garden", "plant"}, []string{"🌱"}},
	{[]string{"baby", "kid"}, []string{"👶"}},
	{[]string{"pet supplies", "pet care", "dog"}, []string{"🐾"}},
	{[]string{"automotive", "vehicle", "motor"}, []string{"🚗"}},
}

var attentionEmojis = []string{"🔥", "⭐", "💯", "🎉"}

type categoryEmojis struct {
	keywords []string
	emojis   []string
}

// conditionEmoji is the emoji that advertises an item's condition
func conditionEmoji(c domain.Condition) string {
	switch c {
	case domain.ConditionNew:
		return "✨"
	case domain.ConditionLikeNew:
		return "🌟"
	case domain.ConditionExcellent:
		return "💎"
	case domain.ConditionGood:
		return "👍"
	case domain.ConditionFair:
		return "👌"
	case domain.ConditionPoor, domain.ConditionForParts:
		return "🔧"
	default:
		return ""
	}
}

// currencySymbols covers the currencies marketplaces commonly list in
var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "CA$",
	"AUD": "A$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
}

// PostFormatter turns generated copy into a marketplace-ready post
type PostFormatter struct {
	printer *message.Printer
}

// NewPostFormatter creates a formatter that groups numbers for the given
// locale. An unparseable locale falls back to American English.
func NewPostFormatter(locale string) *PostFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &PostFormatter{printer: message.NewPrinter(tag)}
}

// FormatPrice renders an amount with a currency symbol and locale digit
// grouping. Whole amounts drop the cents.
func (f *PostFormatter) FormatPrice(amount float64, currencyCode string) string {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(currencyCode)))
	if err != nil {
		unit = currency.USD
	}

	symbol, ok := currencySymbols[unit.String()]
	if !ok {
		symbol = unit.String() + " "
	}

	if amount == math.Trunc(amount) {
		return symbol + f.printer.Sprintf("%d", int64(amount))
	}
	return symbol + f.printer.Sprintf("%.2f", amount)
}

// FormatMarketplacePost cleans the copy, adds selling points, price, emojis
// and a call to action, then validates the result.
func (f *PostFormatter) FormatMarketplacePost(title, description string, opts domain.FormatOptions) domain.FormattedPost {
	if !opts.DisableCleanup {
		title = strings.TrimSpace(inlineSpacePattern.ReplaceAllString(title, " "))
		description = CleanText(description)
	}

	if len(opts.SellingPoints) > 0 {
		description = joinBlocks(description, FormatBulletPoints(opts.SellingPoints))
	}
	if opts.Price > 0 {
		description = joinBlocks(description, "Price: "+f.FormatPrice(opts.Price, opts.PriceCurrency))
	}

	if opts.IncludeEmojis {
		emojis := opts.Emojis
		if len(emojis) == 0 {
			emojis = SuggestEmojis(opts.Category, opts.Condition, opts.EmojiCount)
		}
		strategy := opts.EmojiStrategy
		if strategy == "" {
			strategy = domain.EmojiPrefix
		}
		description = InsertEmojis(description, emojis, strategy)
	}

	if cta := strings.TrimSpace(opts.CallToAction); cta != "" {
		description = joinBlocks(description, cta)
	}

	minWords, maxWords := opts.MinWords, opts.MaxWords
	if minWords <= 0 {
		minWords = MinDescriptionWords
	}
	if maxWords <= 0 {
		maxWords = MaxDescriptionWords
	}

	return domain.FormattedPost{
		Title:                 title,
		Description:           description,
		TitleValidation:       ValidateTitle(title),
		DescriptionValidation: ValidateDescription(description, minWords, maxWords),
		Metadata: domain.PostMetadata{
			WordCount:      CountWords(description),
			CharacterCount: utf8.RuneCountInString(description),
			EmojiCount:     CountEmojis(description),
		},
	}
}

// ValidateTitle checks title length and shouting
func ValidateTitle(title string) domain.ValidationResult {
	result := domain.ValidationResult{Errors: []string{}, Warnings: []string{}}
	length := utf8.RuneCountInString(title)

	if length < MinTitleLength {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Title is too short (%d characters, minimum %d)", length, MinTitleLength))
	}
	if length > MaxTitleLength {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Title is too long (%d characters, maximum %d)", length, MaxTitleLength))
	}

	var letters, upper int
	for _, r := range title {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters > 0 && float64(upper)/float64(letters) > uppercaseRatioLimit {
		result.Warnings = append(result.Warnings, "Title uses too many capital letters")
	}
	if repeatedPunctPattern.MatchString(title) {
		result.Warnings = append(result.Warnings, "Title contains repeated punctuation")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateDescription checks word count bounds, emoji density and paragraphing
func ValidateDescription(description string, minWords, maxWords int) domain.ValidationResult {
	result := domain.ValidationResult{Errors: []string{}, Warnings: []string{}}
	words := CountWords(description)

	if words < minWords {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Description is too short (%d words, minimum %d)", words, minWords))
	}
	if words > maxWords {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Description is too long (%d words, maximum %d)", words, maxWords))
	}
	if CountEmojis(description) > maxDescriptionEmojis {
		result.Warnings = append(result.Warnings, "Description contains too many emojis")
	}
	if words > paragraphWordLimit && !strings.Contains(description, "\n") {
		result.Warnings = append(result.Warnings, "Break the description into paragraphs for readability")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// CountWords counts whitespace-separated words
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountEmojis counts runes in the emoji ranges
func CountEmojis(text string) int {
	count := 0
	for _, r := range text {
		if unicode.Is(emojiTable, r) {
			count++
		}
	}
	return count
}

type sentence struct {
	body string
	sep  string
}

// splitSentences splits text after sentence-ending punctuation. Joining every
// body and sep reproduces the input.
func splitSentences(text string) []sentence {
	var out []sentence
	prev := 0
	for _, m := range sentenceEndPattern.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, sentence{body: text[prev:m[3]], sep: text[m[4]:m[5]]})
		prev = m[1]
	}
	if prev < len(text) {
		out = append(out, sentence{body: text[prev:]})
	}
	return out
}

// InsertEmojis places emojis before, after or between the sentences of text
func InsertEmojis(text string, emojis []string, strategy domain.EmojiStrategy) string {
	if len(emojis) == 0 || strings.TrimSpace(text) == "" {
		return text
	}

	switch strategy {
	case domain.EmojiSuffix:
		return text + " " + strings.Join(emojis, " ")
	case domain.EmojiInterleaved:
		sentences := splitSentences(text)
		interval := max(1, len(sentences)/len(emojis))

		var b strings.Builder
		next := 0
		for i, s := range sentences {
			b.WriteString(s.body)
			if next < len(emojis) && (i+1)%interval == 0 {
				b.WriteString(" ")
				b.WriteString(emojis[next])
				next++
			}
			b.WriteString(s.sep)
		}
		return b.String()
	default:
		return strings.Join(emojis, " ") + " " + text
	}
}

// SuggestEmojis picks emojis for a category and condition. A count of 0 or
// less returns three.
func SuggestEmojis(category string, condition domain.Condition, count int) []string {
	if count <= 0 {
		count = defaultEmojiCount
	}

	category = strings.ToLower(category)
	candidates := make([]string, 0, count+len(attentionEmojis))
	if category != "" {
		for _, entry := range categoryEmojiTable {
			for _, kw := range entry.keywords {
				if strings.Contains(category, kw) {
					candidates = append(candidates, entry.emojis...)
					break
				}
			}
		}
	}
	if e := conditionEmoji(condition); e != "" {
		candidates = append(candidates, e)
	}
	candidates = append(candidates, attentionEmojis...)

	candidates = dedupeStrings(candidates)
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates
}

// TruncateToWordLimit cuts text to limit words. When a sentence ends in the
// last fifth of the cut text it stops there, otherwise it adds an ellipsis.
func TruncateToWordLimit(text string, limit int) string {
	words := strings.Fields(text)
	if limit <= 0 || len(words) <= limit {
		return text
	}

	truncated := strings.Join(words[:limit], " ")
	lastEnd := strings.LastIndexAny(truncated, ".!?")
	if lastEnd >= 0 && float64(lastEnd) >= float64(len(truncated))*sentenceBackupRatio {
		return truncated[:lastEnd+1]
	}
	return truncated + ellipsis
}

// Truncate shortens text to maxChars runes including the ellipsis
func Truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	if maxChars <= len(ellipsis) {
		return string(runes[:maxChars])
	}
	return strings.TrimRightFunc(string(runes[:maxChars-len(ellipsis)]), unicode.IsSpace) + ellipsis
}

// CleanText normalizes whitespace and punctuation and capitalizes sentences
func CleanText(text string) string {
	text = inlineSpacePattern.ReplaceAllString(text, " ")
	text = lineEdgeSpacePattern.ReplaceAllString(text, "\n")
	text = extraNewlinePattern.ReplaceAllString(text, "\n\n")
	text = repeatedBangPattern.ReplaceAllString(text, "!")
	text = repeatedQueryPattern.ReplaceAllString(text, "?")
	text = strings.TrimSpace(text)
	return sentenceStartPattern.ReplaceAllStringFunc(text, func(m string) string {
		r, size := utf8.DecodeLastRuneInString(m)
		return m[:len(m)-size] + string(unicode.ToUpper(r))
	})
}

// FormatBulletPoints renders items as a bulleted list
func FormatBulletPoints(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			lines = append(lines, "• "+item)
		}
	}
	return strings.Join(lines, "\n")
}

// FormatNumberedList renders items as "1. a\n2. b"
func FormatNumberedList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			lines = append(lines, fmt.Sprintf("%d. %s", len(lines)+1, item))
		}
	}
	return strings.Join(lines, "\n")
}

// FormatParagraphs joins non-empty paragraphs with blank lines
func FormatParagraphs(paragraphs []string) string {
	kept := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

func joinBlocks(text, block string) string {
	if strings.TrimSpace(text) == "" {
		return block
	}
	return text + "\n\n" + block
}
