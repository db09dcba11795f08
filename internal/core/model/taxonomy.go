package model

// TaxonomyEntry is one row of the taxonomy lookup store.
type TaxonomyEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// TaxonomyBlock is the emitted X_UNSPC object. The field order here is the
// wire order.
type TaxonomyBlock struct {
	Segment       *string `json:"SEGMENT"`
	SegmentName   *string `json:"SEGMENT_NAME"`
	Family        *string `json:"FAMILY"`
	FamilyName    *string `json:"FAMILY_NAME"`
	Class         *string `json:"CLASS"`
	ClassName     *string `json:"CLASS_NAME"`
	Commodity     *string `json:"COMMODITY"`
	CommodityName *string `json:"COMMODITY_NAME"`
	Explanation   *string `json:"EXPLANATION"`
}
