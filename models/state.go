package models

// StateFile mirrors the only behaviorally relevant region of the deeply nested
// client state embedded in each detail page:
// services.PoiDetailPage.services.poiDetail.state.data.
type StateFile struct {
	Services *StateServices `json:"services"`
}

type StateServices struct {
	PoiDetailPage *PoiDetailPage `json:"PoiDetailPage"`
}

type PoiDetailPage struct {
	Services *PoiDetailServices `json:"services"`
}

type PoiDetailServices struct {
	PoiDetail *PoiDetail `json:"poiDetail"`
}

type PoiDetail struct {
	State *PoiDetailState `json:"state"`
}

type PoiDetailState struct {
	Data *PoiDetailData `json:"data"`
}

// PoiDetailData holds the per-restaurant detail payload.
type PoiDetailData struct {
	PoiID      *int        `json:"poiId,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
	Payments   []Payment   `json:"payments,omitempty"`
}

// Condition is a named boolean capability or service flag.
type Condition struct {
	ConditionID      int    `json:"conditionId"`
	Name             string `json:"name"`
	IsThisPoiEnabled bool   `json:"isThisPoiEnabled"`
}

// DetailData walks the fixed nesting and returns the detail payload, or nil if
// any level is absent.
func (s *StateFile) DetailData() *PoiDetailData {
	if s == nil || s.Services == nil {
		return nil
	}
	page := s.Services.PoiDetailPage
	if page == nil || page.Services == nil {
		return nil
	}
	detail := page.Services.PoiDetail
	if detail == nil || detail.State == nil {
		return nil
	}
	return detail.State.Data
}
