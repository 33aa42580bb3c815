// Package listing defines the structured marketplace listing produced by the
// generation pipeline, along with validation and reply-parsing utilities.
package listing

import (
	"encoding/json"
	"fmt"
)

// TitleMaxLen is the hard limit for listing titles, matching eBay's 80
// character cap.
const TitleMaxLen = 80

// Condition is the item condition enumeration.
type Condition string

const (
	ConditionNew      Condition = "New"
	ConditionUsed     Condition = "Used"
	ConditionForParts Condition = "For parts or not working"
)

// Conditions lists the allowed condition values.
var Conditions = []Condition{ConditionNew, ConditionUsed, ConditionForParts}

// ItemSpecific is a single name/value pair in the item specifics section.
type ItemSpecific struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PriceRecommendation holds the suggested price and its justification.
type PriceRecommendation struct {
	Price         float64 `json:"price"`
	Justification string  `json:"justification"`
}

// ShippingRecommendation holds estimated shipping parameters.
type ShippingRecommendation struct {
	EstWeight     string `json:"est_weight"`
	EstDimensions string `json:"est_dimensions"`
	RecService    string `json:"rec_service"`
}

// Source is a grounding citation the generation call consulted.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Listing is the canonical structured listing. ID and Sources are assigned at
// commit time and are never part of model output.
type Listing struct {
	ID                     string                 `json:"id,omitempty"`
	Title                  string                 `json:"title"`
	CategorySuggestion     string                 `json:"category_suggestion"`
	Condition              Condition              `json:"condition"`
	Description            string                 `json:"description"`
	ItemSpecifics          []ItemSpecific         `json:"item_specifics"`
	PriceRecommendation    PriceRecommendation    `json:"price_recommendation"`
	ShippingRecommendation ShippingRecommendation `json:"shipping_recommendation"`
	Sources                []Source               `json:"sources,omitempty"`
}

// MarshalStripped serializes the listing as pretty-printed JSON with the
// runtime-only id and sources fields removed. This is the form sent back to
// the model during refinement.
func (l *Listing) MarshalStripped() (string, error) {
	stripped := *l
	stripped.ID = ""
	stripped.Sources = nil
	b, err := json.MarshalIndent(&stripped, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal listing: %w", err)
	}
	return string(b), nil
}

// Clone returns a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	c := *l
	if l.ItemSpecifics != nil {
		c.ItemSpecifics = append([]ItemSpecific(nil), l.ItemSpecifics...)
	}
	if l.Sources != nil {
		c.Sources = append([]Source(nil), l.Sources...)
	}
	return &c
}
