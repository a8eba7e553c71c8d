package services

import (
	"strings"

	"gappy/internal/models/cache_models"
)

// TravelTypeProfile is the static description of one quiz outcome.
type TravelTypeProfile struct {
	Code        string
	Name        string
	Emoji       string
	Description string
	// Categories lists place categories in order of affinity.
	Categories []string
}

// Codes read as: Group/Solo, Relaxed/Active, Local/Trend, Planned/Free.
var travelTypes = map[string]TravelTypeProfile{
	"GRLP": {Code: "GRLP", Name: "Cozy Crew Planner", Emoji: "☕", Description: "Slow days with friends at neighbourhood cafes and long-standing local shops.", Categories: []string{"cafe", "food", "shopping"}},
	"GRLF": {Code: "GRLF", Name: "Backstreet Wanderers", Emoji: "🏮", Description: "A relaxed group drifting through back alleys, izakaya and small bars.", Categories: []string{"food", "nightlife", "culture"}},
	"GATP": {Code: "GATP", Name: "Trend Squad", Emoji: "📸", Description: "A busy itinerary hitting every new opening and photo spot.", Categories: []string{"shopping", "art", "cafe"}},
	"GATF": {Code: "GATF", Name: "Night Owl Pack", Emoji: "🎧", Description: "High energy, late nights, and whatever is happening around the crossing.", Categories: []string{"nightlife", "experience", "food"}},
	"SRLP": {Code: "SRLP", Name: "Quiet Curator", Emoji: "📚", Description: "A solo traveller who plans around bookstores, galleries and calm corners.", Categories: []string{"culture", "art", "cafe"}},
	"SRLF": {Code: "SRLF", Name: "Easy Stroller", Emoji: "🌿", Description: "Unhurried solo walks between parks, shrines and hidden gardens.", Categories: []string{"nature", "culture", "cafe"}},
	"SATP": {Code: "SATP", Name: "Solo Strategist", Emoji: "🗺️", Description: "Efficient solo routes covering flagship stores and signature experiences.", Categories: []string{"shopping", "experience", "food"}},
	"SATF": {Code: "SATF", Name: "Spontaneous Explorer", Emoji: "⚡", Description: "Follows the crowd one minute and a side street the next.", Categories: []string{"experience", "nightlife", "art"}},
}

// CanonicalTravelTypeCode is the form codes take in cache keys and lookups.
func CanonicalTravelTypeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// LookupTravelType returns the profile for code, ignoring case.
func LookupTravelType(code string) (TravelTypeProfile, bool) {
	p, ok := travelTypes[CanonicalTravelTypeCode(code)]
	return p, ok
}

// NormalizeTravelType canonicalizes the code and fills missing display fields from the lookup table.
// Unknown codes are kept; an empty code is rejected.
func NormalizeTravelType(t cache_models.StoredTravelType) (cache_models.StoredTravelType, error) {
	t.TravelTypeCode = CanonicalTravelTypeCode(t.TravelTypeCode)
	if t.TravelTypeCode == "" {
		return t, ErrMissingTravelTypeCode
	}
	p, ok := travelTypes[t.TravelTypeCode]
	if !ok {
		return t, nil
	}
	if t.TravelTypeName == "" {
		t.TravelTypeName = p.Name
	}
	if t.TravelTypeEmoji == "" {
		t.TravelTypeEmoji = p.Emoji
	}
	if t.TravelTypeDescription == "" {
		t.TravelTypeDescription = p.Description
	}
	return t, nil
}
