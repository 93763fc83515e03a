package models

// Payment is one entry of the global payment-method reference table. The
// source encodes isCreditCard as a number, preserved as-is for interchange
// fidelity.
type Payment struct {
	PaymentID    *int   `json:"paymentId"`
	IsCreditCard int    `json:"isCreditCard"`
	Name         string `json:"name"`
	Remark       string `json:"remark"`
}
