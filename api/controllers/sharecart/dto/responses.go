package sharecartdto

import "time"

type GeneratedLink struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SharedLink struct {
	ShareKey     string    `json:"key"`
	ReferrerName string    `json:"referrer_name"`
	Note         *string   `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type CartLine struct {
	ProductID           int64             `json:"product_id"`
	Quantity            int               `json:"quantity"`
	VariationID         int64             `json:"variation_id,omitempty"`
	VariationAttributes map[string]string `json:"variation,omitempty"`
}

type SharedCartItem struct {
	CartLine
	Name       string  `json:"name"`
	PriceCents int     `json:"price_cents"`
	ImageURL   *string `json:"image_url,omitempty"`
	Available  bool    `json:"available"`
}

type SharedCart struct {
	Link  SharedLink       `json:"link"`
	Items []SharedCartItem `json:"items"`
}

type AddAllResult struct {
	AddedCount int    `json:"added_count"`
	TotalCount int    `json:"total_count"`
	CartURL    string `json:"cart_url"`
}

type AddItemResult struct {
	CartURL string `json:"cart_url"`
}

type OrderPlacedResult struct {
	Attributed bool  `json:"attributed"`
	Converted  bool  `json:"converted"`
	ShareID    int64 `json:"share_id,omitempty"`
}
