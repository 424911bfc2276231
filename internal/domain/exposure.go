package domain

// ExposureSnapshot is a point-in-time estimate of the vault's directional
// imbalance. It is recomputed on every hedge-cycle tick and never persisted.
//
// The YES/NO split is a fixed-ratio approximation derived from the vault
// balance, not a real aggregation of per-position side totals.
type ExposureSnapshot struct {
	VaultBalance float64 `json:"vault_balance"`
	YesExposure  float64 `json:"yes_exposure"`
	NoExposure   float64 `json:"no_exposure"`
	Imbalance    float64 `json:"imbalance"` // absolute difference
	NeedsHedge   bool    `json:"needs_hedge"`
}
