package models

// Restaurant is the final normalized record consumed by the mobile app.
// Slice fields are always non-nil so absent data marshals as [] rather than
// null, matching the dataset the app bundles today.
type Restaurant struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	Images         []string        `json:"images"`
	DoorImage      *string         `json:"doorImage"`
	Categories     []string        `json:"categories"`
	Services       []string        `json:"services"`
	PaymentMethods []string        `json:"paymentMethods"`
	ContactPhone   *string         `json:"contactPhone"`
	AddressString  string          `json:"addressString"`
	PriceLevel     *int            `json:"priceLevel"`
	BusinessHours  []BusinessHours `json:"businessHours"`
}

// BusinessHours is the normalized weekly schedule for one weekday.
type BusinessHours struct {
	DayOfWeek int      `json:"dayOfWeek"`
	Periods   []Period `json:"periods"`
	IsClosed  bool     `json:"isClosed"`
	Is24Hr    bool     `json:"is24hr"`
}

// Period is one open interval within a day.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
