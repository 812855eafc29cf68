package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// RawRow is one scraped table row, cells in display order.
type RawRow struct {
	Cells  []string `json:"cells"`
	Header bool     `json:"header,omitempty"`
}

// RawPortfolioPage holds the text read from one portfolio page before normalization.
type RawPortfolioPage struct {
	AccountValue string   `json:"account_value"`
	DisplayName  string   `json:"display_name"`
	Rows         []RawRow `json:"rows"`
}

// Holding is one position row: ticker, last price and percent change as displayed.
type Holding struct {
	Ticker        string
	LastPrice     string
	PercentChange string
}

// MarshalJSON encodes a holding as a 3-element array.
func (h Holding) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{h.Ticker, h.LastPrice, h.PercentChange})
}

// UnmarshalJSON accepts the 3-element array form. Bare strings, as written by
// early snapshot files that only kept the ticker, decode into Ticker.
func (h *Holding) UnmarshalJSON(data []byte) error {
	var ticker string
	if err := json.Unmarshal(data, &ticker); err == nil {
		*h = Holding{Ticker: ticker}
		return nil
	}

	var cells []string
	if err := json.Unmarshal(data, &cells); err != nil {
		return fmt.Errorf("holding: %w", err)
	}
	*h = Holding{}
	if len(cells) > 0 {
		h.Ticker = cells[0]
	}
	if len(cells) > 1 {
		h.LastPrice = cells[1]
	}
	if len(cells) > 2 {
		h.PercentChange = cells[2]
	}
	return nil
}

// AccountSnapshot is the normalized state of one portfolio at one point in time.
type AccountSnapshot struct {
	Name     string
	Value    float64
	URL      string
	Holdings []Holding
}

// MarshalJSON encodes the snapshot as [account_value, source_url, holdings].
// The name is carried by the enclosing SnapshotMap key.
func (a AccountSnapshot) MarshalJSON() ([]byte, error) {
	holdings := a.Holdings
	if holdings == nil {
		holdings = []Holding{}
	}
	return json.Marshal([]interface{}{a.Value, a.URL, holdings})
}

// UnmarshalJSON decodes the [account_value, source_url, holdings] form.
func (a *AccountSnapshot) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("account snapshot: %w", err)
	}
	if len(parts) < 2 {
		return fmt.Errorf("account snapshot: expected at least 2 elements, got %d", len(parts))
	}

	var out AccountSnapshot
	if err := json.Unmarshal(parts[0], &out.Value); err != nil {
		return fmt.Errorf("account snapshot value: %w", err)
	}
	if err := json.Unmarshal(parts[1], &out.URL); err != nil {
		return fmt.Errorf("account snapshot url: %w", err)
	}
	if len(parts) > 2 {
		if err := json.Unmarshal(parts[2], &out.Holdings); err != nil {
			return fmt.Errorf("account snapshot holdings: %w", err)
		}
	}
	if out.Holdings == nil {
		out.Holdings = []Holding{}
	}
	out.Name = a.Name
	*a = out
	return nil
}

// SnapshotMap maps account name to snapshot. Keys are unique; a later insert
// under an existing name replaces the earlier entry.
type SnapshotMap map[string]AccountSnapshot

// UnmarshalJSON decodes the map and fills each snapshot's Name from its key.
func (m *SnapshotMap) UnmarshalJSON(data []byte) error {
	var raw map[string]AccountSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(SnapshotMap, len(raw))
	for name, snap := range raw {
		snap.Name = name
		out[name] = snap
	}
	*m = out
	return nil
}

// Names returns the account names in sorted order.
func (m SnapshotMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
