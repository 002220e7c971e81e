package consent

import (
	"sort"

	"github.com/goliatone/go-consent/layering"
)

// Category describes one consent type visitors can grant or deny. Key is the
// stable identifier used in stored records and notifications. MapTo lists
// alias keys that mirror the category's boolean when persisted and emitted,
// letting one umbrella category fan out to several granular signals. GPC marks
// the category as locked off whenever a Global Privacy Control signal is
// present.
type Category struct {
	Key         string   `json:"key,omitempty"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	MapTo       []string `json:"mapTo,omitempty"`
	GPC         bool     `json:"gpc,omitempty"`
}

// DefaultCategories returns the built-in category set, aligned with the gtag
// consent vocabulary. Only "necessary" is required; everything else is
// optional until configuration says otherwise.
func DefaultCategories() map[string]*Category {
	return map[string]*Category{
		"necessary": {
			Key:         "necessary",
			Name:        "Strictly Necessary",
			Description: "These cookies/services are required for our website(s) to function properly and cannot be disabled.",
			Required:    true,
		},
		"analytics_storage": {
			Key:         "analytics_storage",
			Name:        "Analytics",
			Description: "Storage used to measure how visitors interact with our website(s).",
		},
		"ad_storage": {
			Key:         "ad_storage",
			Name:        "Advertising",
			Description: "Storage related to advertising, such as frequency capping and attribution.",
		},
		"ad_personalization": {
			Key:         "ad_personalization",
			Name:        "Ad Personalization",
			Description: "Allows advertising to be tailored to your interests.",
		},
		"ad_user_data": {
			Key:         "ad_user_data",
			Name:        "Ad User Data",
			Description: "Allows sharing of user data with advertising partners.",
		},
		"functionality_storage": {
			Key:         "functionality_storage",
			Name:        "Functionality",
			Description: "Storage that supports site functionality, such as language preferences.",
		},
		"personalization_storage": {
			Key:         "personalization_storage",
			Name:        "Personalization",
			Description: "Storage used to personalize content you see on our website(s).",
		},
		"security_storage": {
			Key:         "security_storage",
			Name:        "Security",
			Description: "Storage that supports security features, such as fraud prevention.",
		},
	}
}

// MergeCategories overlays caller-supplied category overrides onto defaults.
// Unknown keys are added as new categories. The inputs are never mutated; a
// category lacking an explicit required flag stays optional.
func MergeCategories(defaults, overrides map[string]*Category) map[string]*Category {
	merged := make(map[string]*Category, len(defaults)+len(overrides))
	for key, category := range defaults {
		merged[key] = cloneCategory(key, category)
	}
	for key, override := range overrides {
		if override == nil {
			continue
		}
		base, ok := merged[key]
		if !ok {
			merged[key] = cloneCategory(key, override)
			continue
		}
		combined := layering.Merge(*override, *base)
		if combined.Key == "" {
			combined.Key = key
		}
		merged[key] = &combined
	}
	return merged
}

func cloneCategory(key string, category *Category) *Category {
	if category == nil {
		return &Category{Key: key}
	}
	clone := *category
	if clone.Key == "" {
		clone.Key = key
	}
	clone.MapTo = append([]string(nil), category.MapTo...)
	return &clone
}

// sortedCategoryKeys returns the category keys in deterministic order so
// iteration-driven side effects (events, datalayer pushes) are stable.
func sortedCategoryKeys(categories map[string]*Category) []string {
	keys := make([]string, 0, len(categories))
	for key := range categories {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
