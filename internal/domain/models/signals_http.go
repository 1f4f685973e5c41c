package models

// Requests for the read API. Defined in domain for consistency and reuse.

type WindowRequest struct {
	K int `query:"k" json:"k" default:"80" validate:"gte=1,lte=5000"`
}

type LeaderboardRequest struct {
	Top    int `query:"top" json:"top" default:"5" validate:"gte=1,lte=50"`
	Window int `query:"window" json:"window" default:"20" validate:"gte=1,lte=5000"`
}

// LatestResponse keeps "no data yet" explicit instead of returning an empty snapshot.
type LatestResponse struct {
	Available bool      `json:"available"`
	Snapshot  *Snapshot `json:"snapshot,omitempty"`
}

type WindowResponse struct {
	K         int        `json:"k"`
	Count     int        `json:"count"`
	Capacity  int        `json:"capacity"`
	Snapshots []Snapshot `json:"snapshots"`
}
