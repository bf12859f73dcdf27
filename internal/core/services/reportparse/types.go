package reportparse

import "strings"

// NoneSentinel is the literal value a report prints when an offcut id
// field is absent
const NoneSentinel = "None"

// RawRecord is one cutting record extracted from report text, before
// derivation. Numeric id lists are kept as the raw field text ("None",
// "123" or "123 & 456") so that id parsing policy stays with the
// ingestion step.
type RawRecord struct {
	BatchCode          string `json:"batch_code"`
	SawName            string `json:"saw_name"`
	ItemCode           string `json:"item_code"`
	ItemDescription    string `json:"item_description"`
	InputBarLength     int    `json:"input_bar_length"`
	BarLengthUsed      int    `json:"bar_length_used"`
	DoubleCut          bool   `json:"double_cut"`
	SuggestedOffcutIDs string `json:"suggested_offcut_ids"`
	CreatedOffcutIDs   string `json:"created_offcut_ids"`
}

// ParseResult contains the extracted records and parsing statistics
type ParseResult struct {
	Records  []RawRecord `json:"records"`
	Sections int         `json:"sections"`
	Products int         `json:"products"`
}

// SplitIDList splits an ampersand-delimited id field into trimmed
// tokens. The absence sentinel and empty fields yield no tokens.
func SplitIDList(field string) []string {
	field = strings.TrimSpace(field)
	if field == "" || field == NoneSentinel {
		return nil
	}

	parts := strings.Split(field, "&")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
