// Package models defines the wire and interchange shapes of the pipeline.
package models

// SearchResponse is the top-level shape of both the count endpoint and the
// paginated listing endpoint.
type SearchResponse struct {
	PaginationResult *PaginationResult `json:"paginationResult"`
}

// PaginationResult carries either the total count or one batch of listing rows.
type PaginationResult struct {
	TotalReturnCount *int        `json:"totalReturnCount,omitempty"`
	Results          []PoiResult `json:"results,omitempty"`
}

// PoiResult is one restaurant summary row from the listing API. Fields that
// must be distinguishable from their zero value use pointers.
type PoiResult struct {
	PoiID          int        `json:"poiId"`
	LatestCallName string     `json:"latestCallName"`
	Name           string     `json:"name"`
	Info           string     `json:"info,omitempty"`
	Address        string     `json:"address,omitempty"`
	MapLatitude    *float64   `json:"mapLatitude,omitempty"`
	MapLongitude   *float64   `json:"mapLongitude,omitempty"`
	Categories     []Category `json:"categories,omitempty"`
	DoorPhoto      *Photo     `json:"doorPhoto,omitempty"`
	RmsPhotos      []Photo    `json:"rmsPhotos,omitempty"`
	Photos         []Photo    `json:"photos,omitempty"`
	PaymentIDs     []int      `json:"paymentIds,omitempty"`
	Phones         []string   `json:"phones,omitempty"`
	PriceRangeID   *int       `json:"priceRangeId,omitempty"`
	PoiHours       []PoiHour  `json:"poiHours,omitempty"`
}

type Category struct {
	CategoryID     int    `json:"categoryId"`
	CategoryTypeID int    `json:"categoryTypeId"`
	Name           string `json:"name"`
	CallName       string `json:"callName,omitempty"`
}

type Photo struct {
	URL string `json:"url"`
}

// PoiHour is one raw opening-hours row: up to two time sub-periods for one
// weekday sub-entry plus schedule flags.
type PoiHour struct {
	PoiID        int    `json:"poiId,omitempty"`
	Period1Start string `json:"period1Start,omitempty"`
	Period1End   string `json:"period1End,omitempty"`
	Period2Start string `json:"period2Start,omitempty"`
	Period2End   string `json:"period2End,omitempty"`
	DayOfWeek    *int   `json:"dayOfWeek,omitempty"`
	Is24Hr       bool   `json:"is24hr"`
	IsClose      bool   `json:"isClose"`
	IsHoliday    bool   `json:"isHoliday"`
	IsHolidayEve bool   `json:"isHolidayEve"`
	IsUncertain  bool   `json:"isUncertain"`
}
