package domain

// DataSource records which side determined a merged field
type DataSource string

const (
	SourceAI     DataSource = "ai"
	SourceUser   DataSource = "user"
	SourceMerged DataSource = "merged"
)

// Provenance map keys
const (
	FieldProductType = "productType"
	FieldCategory    = "category"
	FieldBrand       = "brand"
	FieldCondition   = "condition"
	FieldAttributes  = "attributes"
	FieldDescription = "description"
	FieldTitle       = "title"
	FieldKeywords    = "keywords"
)

// MergeableFields lists every provenance key tracked by a merge
var MergeableFields = []string{
	FieldProductType, FieldCategory, FieldBrand, FieldCondition,
	FieldAttributes, FieldDescription, FieldTitle, FieldKeywords,
}

// UserProvidedDetails are optional facts the seller supplies alongside the photo
type UserProvidedDetails struct {
	ProductType             string            `json:"productType,omitempty" validate:"omitempty,max=200"`
	Brand                   string            `json:"brand,omitempty" validate:"omitempty,max=100"`
	Model                   string            `json:"model,omitempty" validate:"omitempty,max=100"`
	Condition               Condition         `json:"condition,omitempty" validate:"omitempty,condition"`
	Color                   []string          `json:"color,omitempty" validate:"omitempty,max=10"`
	Material                []string          `json:"material,omitempty" validate:"omitempty,max=10"`
	Size                    string            `json:"size,omitempty"`
	Year                    string            `json:"year,omitempty"`
	Description             string            `json:"description,omitempty" validate:"omitempty,max=5000"`
	CustomTitle             string            `json:"customTitle,omitempty" validate:"omitempty,max=200"`
	CustomKeywords          []string          `json:"customKeywords,omitempty" validate:"omitempty,max=20"`
	Notes                   string            `json:"notes,omitempty"`
	CategorySpecificDetails map[string]string `json:"categorySpecificDetails,omitempty"`
}

// ValidationStatus is the completeness verdict attached to merged data
type ValidationStatus struct {
	IsComplete            bool     `json:"isComplete"`
	MissingRequiredFields []string `json:"missingRequiredFields"`
	Warnings              []string `json:"warnings"`
}

// MergedProductData is a ProductAnalysis after user overrides were applied
type MergedProductData struct {
	ProductAnalysis
	DataSources         map[string]DataSource `json:"dataSources"`
	UserProvidedDetails *UserProvidedDetails  `json:"userProvidedDetails,omitempty"`
	ValidationStatus    ValidationStatus      `json:"validationStatus"`
}

// ValidationResult is returned by validators that never fail
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}
