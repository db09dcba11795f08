package model

// Category is the asset category of a material.
type Category string

const (
	CategorySparePart Category = "SPAREPART"
	CategoryTools     Category = "TOOLS"
	CategoryInventory Category = "INVENTORY"
	CategoryAsset     Category = "ASSET"
)

var Categories = []Category{CategorySparePart, CategoryTools, CategoryInventory, CategoryAsset}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type CategoryClassification struct {
	Category    Category `json:"CATEGORY"`
	Explanation string   `json:"EXPLANATION"`
}

// InferredAttribute is a derived attribute value. A nil Value is emitted as
// null.
type InferredAttribute struct {
	Name  string
	Value *string
}

// UncertainCommodity is returned by the model when it cannot pick a code.
const UncertainCommodity = "UNSPSC_UNCERTAIN"

// TaxonomySeed is the commodity choice made during inference.
type TaxonomySeed struct {
	Commodity   string
	Explanation string
}

// Inference is the parsed completion. Attributes keep the completion's
// order, including any duplicate or undeclared keys, so that the assembler
// can reject them.
type Inference struct {
	Attributes []InferredAttribute
	Category   CategoryClassification
	Taxonomy   TaxonomySeed
	// RepeatedBlocks lists X_CATEGORY / X_UNSPC keys seen more than once.
	RepeatedBlocks []string
}

func StringPtr(s string) *string {
	return &s
}
