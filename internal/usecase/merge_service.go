package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/listinglens/backend/internal/domain"
)

// Placeholders the vision model uses when it cannot identify something
const (
	UnknownProductType = "Unknown Product"
	UnknownCategory    = "Unknown"
)

// Completeness warnings. Clients match on these strings; do not reword.
const (
	WarningLowOverallConfidence   = "Overall confidence is low - please review all product details"
	WarningLowConditionConfidence = "Condition confidence is low - please verify the product condition"
	WarningLowCategoryConfidence  = "Category confidence is low - please verify the product category"
	WarningNoBrand                = "Brand could not be identified - consider adding it manually"
	WarningNoColor                = "Color could not be identified - consider adding it manually"
	WarningPoorImageQuality       = "Image quality is poor - consider retaking the photo"
	WarningBusyBackground         = "Background is cluttered or distracting - a plain background improves listings"
)

// Year bounds for user input; the upper bound is next calendar year
const minYear = 1800

// MergeOptions control how user details override the AI analysis
type MergeOptions struct {
	PrioritizeUser       bool `json:"prioritizeUser"`
	ValidateCompleteness bool `json:"validateCompleteness"`
	EnhanceDescription   bool `json:"enhanceDescription"`
}

// DefaultMergeOptions prioritizes the user, validates and enhances descriptions
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		PrioritizeUser:       true,
		ValidateCompleteness: true,
		EnhanceDescription:   true,
	}
}

// UnmarshalJSON starts from DefaultMergeOptions so omitted fields keep
// their defaults
func (o *MergeOptions) UnmarshalJSON(data []byte) error {
	type plain MergeOptions
	opts := plain(DefaultMergeOptions())
	if err := json.Unmarshal(data, &opts); err != nil {
		return err
	}
	*o = MergeOptions(opts)
	return nil
}

// MergeService combines AI analysis with user supplied details
type MergeService struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewMergeService creates a merge service with its input validator
func NewMergeService() *MergeService {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	// Registration only fails for an empty tag
	_ = v.RegisterValidation("condition", func(fl validator.FieldLevel) bool {
		return domain.Condition(fl.Field().String()).Valid()
	})

	return &MergeService{
		validate: v,
		now:      time.Now,
	}
}

// Merge applies user details on top of the AI analysis. It never fails; the
// returned record is a new value and ai is not modified.
func (s *MergeService) Merge(
	ai *domain.ProductAnalysis,
	user *domain.UserProvidedDetails,
	opts MergeOptions,
) *domain.MergedProductData {
	merged := &domain.MergedProductData{
		ProductAnalysis:     ai.Clone(),
		DataSources:         make(map[string]domain.DataSource, len(domain.MergeableFields)),
		UserProvidedDetails: user,
	}
	for _, field := range domain.MergeableFields {
		merged.DataSources[field] = domain.SourceAI
	}

	if user == nil {
		user = &domain.UserProvidedDetails{}
	}

	data := &merged.ProductAnalysis
	mergeProductType(data, merged.DataSources, user, opts)
	mergeBrand(data, merged.DataSources, user, opts)
	mergeCondition(data, merged.DataSources, user, opts)
	mergeAttributes(data, merged.DataSources, user)
	mergeDescription(data, merged.DataSources, user, opts)
	mergeTitle(data, merged.DataSources, user, opts)
	mergeKeywords(data, merged.DataSources, user)

	if opts.ValidateCompleteness {
		merged.ValidationStatus = s.ValidateProductData(data)
	} else {
		merged.ValidationStatus = domain.ValidationStatus{
			IsComplete:            true,
			MissingRequiredFields: []string{},
			Warnings:              []string{},
		}
	}

	return merged
}

func mergeProductType(data *domain.ProductAnalysis, sources map[string]domain.DataSource, user *domain.UserProvidedDetails, opts MergeOptions) {
	userType := strings.TrimSpace(user.ProductType)
	if userType == "" {
		return
	}
	if opts.PrioritizeUser {
		data.ProductType = userType
		sources[domain.FieldProductType] = domain.SourceUser
		return
	}
	if isUnknownProductType(data.ProductType) {
		data.ProductType = userType
	}
	sources[domain.FieldProductType] = domain.SourceMerged
}

// mergeBrand adopts the user's brand in both policies; only the provenance
// differs when the user is not prioritized.
func mergeBrand(data *domain.ProductAnalysis, sources map[string]domain.DataSource, user *domain.UserProvidedDetails, opts MergeOptions) {
	name := strings.TrimSpace(user.Brand)
	if name == "" {
		return
	}
	data.Brand = &domain.Brand{
		Name:       name,
		Confidence: domain.ConfidenceHigh,
		Verified:   true,
	}
	if opts.PrioritizeUser {
		sources[domain.FieldBrand] = domain.SourceUser
	} else {
		sources[domain.FieldBrand] = domain.SourceMerged
	}
}

func mergeCondition(data *domain.ProductAnalysis, sources map[string]domain.DataSource, user *domain.UserProvidedDetails, opts MergeOptions) {
	if user.Condition == "" || !user.Condition.Valid() {
		return
	}
	if opts.PrioritizeUser {
		data.Condition = user.Condition
		data.ConditionConfidence = domain.ConfidenceHigh
		sources[domain.FieldCondition] = domain.SourceUser
		return
	}
	if data.Condition == domain.ConditionUnknown || data.Condition == "" {
		data.Condition = user.Condition
		data.ConditionConfidence = domain.ConfidenceHigh
	}
	sources[domain.FieldCondition] = domain.SourceMerged
}

// mergeAttributes overwrites individual attributes rather than the whole record
func mergeAttributes(data *domain.ProductAnalysis, sources map[string]domain.DataSource, user *domain.UserProvidedDetails) {
	attrs := &data.Attributes
	touched := false

	if len(user.Color) > 0 {
		attrs.Color = append([]string(nil), user.Color...)
		touched = true
	}
	if len(user.Material) > 0 {
		attrs.Material = append([]string(nil), user.Material...)
		touched = true
	}
	if strings.TrimSpace(user.Size) != "" {
		attrs.Size = strings.TrimSpace(user.Size)
		touched = true
	}
	if strings.TrimSpace(user.Year) != "" {
		attrs.Year = strings.TrimSpace(user.Year)
		touched = true
	}
	if strings.TrimSpace(user.Model) != "" {
		attrs.Model = strings.TrimSpace(user.Model)
		touched = true
	}
	if len(user.CategorySpecificDetails) > 0 {
		if attrs.CustomAttributes == nil {
			attrs.CustomAttributes = make(map[string]domain.AttributeValue, len(user.CategorySpecificDetails))
		}
		for k, v := range user.CategorySpecificDetails {
			attrs.CustomAttributes[k] = domain.TextValue(v)
		}
		touched = true
	}

	if touched {
		sources[domain.FieldAttributes] = domain.SourceMerged
	}
}

func mergeDescription(data *domain.ProductAnalysis, sources map[string]domain.DataSource, user *domain.UserProvidedDetails, opts MergeOptions) {
	userDesc := strings.TrimSpace(user.Description)
	if userDesc == "" {
		return
	}
	switch {
	case opts.PrioritizeUser:
		data.Description = userDesc
		sources[domain.FieldDescription] = domain.SourceUser
	case opts.EnhanceDescription:
		data.Description = userDesc + "\n\n" + data.Description
		sources[domain.FieldDescription] = domain.SourceMerged
	}
}

func mergeTitle(data *domain.ProductAnalysis, sources map[string]domain.DataSource, user *domain.UserProvidedDetails, opts MergeOptions) {
	title := strings.TrimSpace(user.CustomTitle)
	if title == "" {
		return
	}
	if opts.PrioritizeUser {
		data.SuggestedTitle = title
		sources[domain.FieldTitle] = domain.SourceUser
		return
	}
	source := domain.SourceUser
	if strings.TrimSpace(data.SuggestedTitle) != "" {
		source = domain.SourceMerged
	}
	data.SuggestedTitle = title
	sources[domain.FieldTitle] = source
}

func mergeKeywords(data *domain.ProductAnalysis, sources map[string]domain.DataSource, user *domain.UserProvidedDetails) {
	if len(user.CustomKeywords) == 0 {
		data.SuggestedKeywords = dedupeStrings(data.SuggestedKeywords)
		return
	}
	combined := make([]string, 0, len(data.SuggestedKeywords)+len(user.CustomKeywords))
	combined = append(combined, data.SuggestedKeywords...)
	combined = append(combined, user.CustomKeywords...)
	data.SuggestedKeywords = dedupeStrings(combined)
	sources[domain.FieldKeywords] = domain.SourceMerged
}

// ValidateProductData checks required fields and collects non-blocking warnings
func (s *MergeService) ValidateProductData(data *domain.ProductAnalysis) domain.ValidationStatus {
	missing := make([]string, 0)
	warnings := make([]string, 0)

	if isUnknownProductType(data.ProductType) {
		missing = append(missing, domain.FieldProductType)
	}
	if data.Condition == domain.ConditionUnknown {
		missing = append(missing, domain.FieldCondition)
	}
	if primary := strings.TrimSpace(data.Category.Primary); primary == "" || primary == UnknownCategory {
		missing = append(missing, domain.FieldCategory)
	}

	if data.OverallConfidence == domain.ConfidenceLow {
		warnings = append(warnings, WarningLowOverallConfidence)
	}
	if data.ConditionConfidence == domain.ConfidenceLow {
		warnings = append(warnings, WarningLowConditionConfidence)
	}
	if data.Category.Confidence == domain.ConfidenceLow {
		warnings = append(warnings, WarningLowCategoryConfidence)
	}
	if !data.HasBrand() {
		warnings = append(warnings, WarningNoBrand)
	}
	if len(data.Attributes.Color) == 0 {
		warnings = append(warnings, WarningNoColor)
	}
	if data.VisualQuality.ImageQuality == domain.ImageQualityPoor {
		warnings = append(warnings, WarningPoorImageQuality)
	}
	if bg := data.VisualQuality.Background; bg == domain.BackgroundCluttered || bg == domain.BackgroundDistracting {
		warnings = append(warnings, WarningBusyBackground)
	}

	return domain.ValidationStatus{
		IsComplete:            len(missing) == 0,
		MissingRequiredFields: missing,
		Warnings:              warnings,
	}
}

// ValidateUserInput checks user details against length, enum and range
// limits. It reports problems in the result and never returns an error.
func (s *MergeService) ValidateUserInput(details *domain.UserProvidedDetails) domain.ValidationResult {
	result := domain.ValidationResult{Valid: true, Errors: []string{}}
	if details == nil {
		return result
	}

	if err := s.validate.Struct(details); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				result.Errors = append(result.Errors, fieldErrorMessage(fe))
			}
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	if year := strings.TrimSpace(details.Year); year != "" {
		if n, err := strconv.Atoi(year); err == nil {
			maxYear := s.now().Year() + 1
			if n < minYear || n > maxYear {
				result.Errors = append(result.Errors, fmt.Sprintf("year must be between %d and %d", minYear, maxYear))
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// fieldErrorMessage renders a validator error the way clients display it
func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "condition":
		names := make([]string, len(domain.AllConditions))
		for i, c := range domain.AllConditions {
			names[i] = string(c)
		}
		return fmt.Sprintf("invalid condition %q, must be one of: %s", fe.Value(), strings.Join(names, ", "))
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s cannot have more than %s entries", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be %s characters or less", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func isUnknownProductType(productType string) bool {
	trimmed := strings.TrimSpace(productType)
	return trimmed == "" || trimmed == UnknownProductType
}

// dedupeStrings removes exact duplicates keeping first occurrence order
func dedupeStrings(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
