package models

import "time"

type Summary struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalUnits   int64   `json:"total_units"`
	UniqueTracks int     `json:"unique_tracks"`
	RowCount     int     `json:"row_count"`
}

type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"net_royalty"`
}

type GroupTotal struct {
	Key     string  `json:"key"`
	Revenue float64 `json:"net_royalty"`
	Units   float64 `json:"units"`
}

type TrackTotal struct {
	TrackTitle   string  `json:"track_title"`
	Revenue      float64 `json:"net_royalty"`
	Units        float64 `json:"units"`
	Distributors string  `json:"distributor"`
}

type Breakdown struct {
	Summary          Summary          `json:"summary"`
	Timeline         []MonthlyRevenue `json:"timeline"`
	ByDistributor    []GroupTotal     `json:"by_distributor"`
	ByClassification []GroupTotal     `json:"by_classification"`
	ByStore          []GroupTotal     `json:"by_store"`
	ByCountry        []GroupTotal     `json:"by_country"`
	TopTracks        []TrackTotal     `json:"top_tracks"`
}

type FilterOptions struct {
	MinDate                string   `json:"min_date"`
	MaxDate                string   `json:"max_date"`
	Distributors           []string `json:"distributors"`
	Classifications        []string `json:"classifications"`
	Stores                 []string `json:"stores"`
	Countries              []string `json:"countries"`
	DefaultDistributors    []string `json:"default_distributors"`
	DefaultClassifications []string `json:"default_classifications"`
	DefaultStores          []string `json:"default_stores"`
	DefaultCountries       []string `json:"default_countries"`
}

type KPIDisplay struct {
	TotalRevenue string `json:"total_revenue"`
	TotalUnits   string `json:"total_units"`
	UniqueTracks string `json:"unique_tracks"`
}

// Dashboard is everything the presentation layer needs for one render.
type Dashboard struct {
	Breakdown
	KPIs        KPIDisplay `json:"kpis"`
	GeneratedAt time.Time  `json:"generated_at"`
}
