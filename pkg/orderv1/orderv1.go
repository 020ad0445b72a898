// Package orderv1 holds the wire messages of zen.order.v1.OrderService and
// zen.health.v1.HealthService. Messages are JSON encoded.
package orderv1

const (
	OrderServiceName   = "zen.order.v1.OrderService"
	OrderServicePath   = "/" + OrderServiceName + "/"
	NormalizeProcedure = OrderServicePath + "Normalize"
	MoveProcedure      = OrderServicePath + "Move"
	AppendProcedure    = OrderServicePath + "Append"
	DeactivateProc     = OrderServicePath + "Deactivate"
	ListProcedure      = OrderServicePath + "List"
	SyncProcedure      = OrderServicePath + "Sync"

	HealthServiceName    = "zen.health.v1.HealthService"
	HealthServicePath    = "/" + HealthServiceName + "/"
	HealthCheckProcedure = HealthServicePath + "Check"
)

type Item struct {
	ID        string  `json:"id"`
	ParentID  *string `json:"parentId,omitempty"`
	Name      string  `json:"name"`
	Rank      int     `json:"rank"`
	CreatedAt int64   `json:"createdAt"`
	UpdatedAt int64   `json:"updatedAt"`
}

type RankChange struct {
	ID      string `json:"id"`
	OldRank int    `json:"oldRank"`
	NewRank int    `json:"newRank"`
}

type NormalizeRequest struct {
	Collection string  `json:"collection"`
	ParentID   *string `json:"parentId,omitempty"`
}

type NormalizeResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	NormalizedCount int    `json:"normalizedCount"`
}

type MoveRequest struct {
	Collection string `json:"collection"`
	ItemID     string `json:"itemId"`
	NewRank    int    `json:"newRank"`
}

type MoveResponse struct{}

type AppendRequest struct {
	Collection string  `json:"collection"`
	ParentID   *string `json:"parentId,omitempty"`
	Name       string  `json:"name"`
}

type AppendResponse struct {
	Item Item `json:"item"`
}

type DeactivateRequest struct {
	Collection string `json:"collection"`
	ItemID     string `json:"itemId"`
}

type DeactivateResponse = NormalizeResponse

type ListRequest struct {
	Collection string  `json:"collection"`
	ParentID   *string `json:"parentId,omitempty"`
	Query      string  `json:"query,omitempty"`
}

type ListResponse struct {
	Items []Item `json:"items"`
}

type SyncRequest struct {
	// Empty means every collection of the studio.
	Collection string `json:"collection,omitempty"`
}

type SyncResponse struct {
	Type       string       `json:"type"`
	Collection string       `json:"collection"`
	ParentID   *string      `json:"parentId,omitempty"`
	Version    int64        `json:"version"`
	Ranks      []RankChange `json:"ranks,omitempty"`
	Item       *Item        `json:"item,omitempty"`
}

type HealthCheckRequest struct{}

type HealthCheckResponse struct {
	Status string `json:"status"`
}
