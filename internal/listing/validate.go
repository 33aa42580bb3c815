package listing

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every schema violation found in a candidate.
// The message format ("Field '<path>': <reason>" joined with "; ") is shown
// to the user as-is.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Issues, "; ")
}

type validator struct {
	issues []string
}

func (v *validator) addf(path, reason string, a ...any) {
	v.issues = append(v.issues, fmt.Sprintf("Field '%s': %s", path, fmt.Sprintf(reason, a...)))
}

func (v *validator) str(obj map[string]any, path, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok {
		v.addf(path, "Required")
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		v.addf(path, "Expected string, received %s", typeName(raw))
		return "", false
	}
	return s, true
}

func (v *validator) nonEmptyStr(obj map[string]any, path, key, requiredMsg string) (string, bool) {
	s, ok := v.str(obj, path, key)
	if !ok {
		return "", false
	}
	if s == "" {
		v.addf(path, "%s", requiredMsg)
		return "", false
	}
	return s, true
}

func (v *validator) obj(parent map[string]any, path, key string) (map[string]any, bool) {
	raw, ok := parent[key]
	if !ok {
		v.addf(path, "Required")
		return nil, false
	}
	m, ok := raw.(map[string]any)
	if !ok {
		v.addf(path, "Expected object, received %s", typeName(raw))
		return nil, false
	}
	return m, true
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Validate checks a parsed candidate value against the listing schema and
// converts it into a typed Listing. Only recognized fields are carried over;
// anything extraneous in the candidate is dropped. On failure it returns a
// ValidationError with one issue per violated field.
func Validate(candidate map[string]any) (*Listing, error) {
	v := &validator{}
	l := &Listing{}

	if title, ok := v.str(candidate, "title", "title"); ok {
		if len([]rune(title)) > TitleMaxLen {
			v.addf("title", "Title must be 80 characters or less.")
		} else {
			l.Title = title
		}
	}

	if cat, ok := v.nonEmptyStr(candidate, "category_suggestion", "category_suggestion", "Category suggestion is required."); ok {
		l.CategorySuggestion = cat
	}

	if cond, ok := v.str(candidate, "condition", "condition"); ok {
		valid := false
		for _, c := range Conditions {
			if Condition(cond) == c {
				valid = true
				break
			}
		}
		if valid {
			l.Condition = Condition(cond)
		} else {
			v.addf("condition", "Invalid value. Expected 'New', 'Used' or 'For parts or not working', received '%s'", cond)
		}
	}

	if desc, ok := v.nonEmptyStr(candidate, "description", "description", "Description is required."); ok {
		l.Description = desc
	}

	validateItemSpecifics(v, candidate, l)
	validatePriceRecommendation(v, candidate, l)
	validateShippingRecommendation(v, candidate, l)

	if len(v.issues) > 0 {
		return nil, &ValidationError{Issues: v.issues}
	}
	return l, nil
}

func validateItemSpecifics(v *validator, candidate map[string]any, l *Listing) {
	raw, ok := candidate["item_specifics"]
	if !ok {
		v.addf("item_specifics", "Required")
		return
	}
	arr, ok := raw.([]any)
	if !ok {
		v.addf("item_specifics", "Expected array, received %s", typeName(raw))
		return
	}
	specifics := make([]ItemSpecific, 0, len(arr))
	for i, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			v.addf(fmt.Sprintf("item_specifics.%d", i), "Expected object, received %s", typeName(el))
			continue
		}
		// Values may legitimately be empty strings, only the type is checked.
		name, nameOK := v.str(obj, fmt.Sprintf("item_specifics.%d.name", i), "name")
		value, valueOK := v.str(obj, fmt.Sprintf("item_specifics.%d.value", i), "value")
		if nameOK && valueOK {
			specifics = append(specifics, ItemSpecific{Name: name, Value: value})
		}
	}
	l.ItemSpecifics = specifics
}

func validatePriceRecommendation(v *validator, candidate map[string]any, l *Listing) {
	obj, ok := v.obj(candidate, "price_recommendation", "price_recommendation")
	if !ok {
		return
	}
	rawPrice, present := obj["price"]
	if !present {
		v.addf("price_recommendation.price", "Required")
	} else if price, isNum := rawPrice.(float64); isNum {
		l.PriceRecommendation.Price = price
	} else {
		v.addf("price_recommendation.price", "Expected number, received %s", typeName(rawPrice))
	}
	if just, ok := v.str(obj, "price_recommendation.justification", "justification"); ok {
		l.PriceRecommendation.Justification = just
	}
}

func validateShippingRecommendation(v *validator, candidate map[string]any, l *Listing) {
	obj, ok := v.obj(candidate, "shipping_recommendation", "shipping_recommendation")
	if !ok {
		return
	}
	if w, ok := v.str(obj, "shipping_recommendation.est_weight", "est_weight"); ok {
		l.ShippingRecommendation.EstWeight = w
	}
	if d, ok := v.str(obj, "shipping_recommendation.est_dimensions", "est_dimensions"); ok {
		l.ShippingRecommendation.EstDimensions = d
	}
	if s, ok := v.str(obj, "shipping_recommendation.rec_service", "rec_service"); ok {
		l.ShippingRecommendation.RecService = s
	}
}
