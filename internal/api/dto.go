package api

import "github.com/arnstad/hugin/internal/store"

// FactTableResponse is the full flat fact table.
type FactTableResponse struct {
	Facts map[string]string `json:"facts"`
	Count int               `json:"count"`
}

// FactResponse is a single fact lookup result.
type FactResponse struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SnapshotListResponse is the refresh history.
type SnapshotListResponse struct {
	Snapshots []store.Snapshot `json:"snapshots"`
}
