package sharecartdto

// GenerateLinkRequest is posted from the cart page share form.
type GenerateLinkRequest struct {
	ReferrerName string  `json:"referrer_name" validate:"required,max=100"`
	Note         *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// AddAllRequest copies a shared cart into the caller's cart.
type AddAllRequest struct {
	ReplaceCart bool `json:"replace_cart"`
}

// AddItemRequest adds one line, optionally credited to a share link.
type AddItemRequest struct {
	ShareKey    *string           `json:"share_key,omitempty"`
	ProductID   int64             `json:"product_id" validate:"gt=0"`
	Quantity    int               `json:"quantity" validate:"omitempty,min=1,max=999"`
	VariationID int64             `json:"variation_id,omitempty" validate:"gte=0"`
	Variation   map[string]string `json:"variation,omitempty"`
}

// OrderPlacedRequest is sent by the host checkout once an order exists.
type OrderPlacedRequest struct {
	OrderID int64 `json:"order_id" validate:"gt=0"`
}
