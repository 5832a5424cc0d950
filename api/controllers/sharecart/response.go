package sharecart

import (
	"github.com/jinzhu/copier"

	sharecartdto "github.com/angelmondragon/sharecart-backend/api/controllers/sharecart/dto"
	sharecartsvc "github.com/angelmondragon/sharecart-backend/internal/sharecart"
)

func newSharedCart(view *sharecartsvc.SharedCartView) (sharecartdto.SharedCart, error) {
	out := sharecartdto.SharedCart{Items: make([]sharecartdto.SharedCartItem, 0, len(view.Items))}
	if err := copier.Copy(&out.Link, view.Link); err != nil {
		return out, err
	}
	for _, item := range view.Items {
		var line sharecartdto.CartLine
		if err := copier.CopyWithOption(&line, &item.Line, copier.Option{DeepCopy: true}); err != nil {
			return out, err
		}
		dtoItem := sharecartdto.SharedCartItem{CartLine: line}
		if item.Product != nil {
			dtoItem.Name = item.Product.Name
			dtoItem.PriceCents = item.Product.PriceCents
			dtoItem.ImageURL = item.Product.ImageURL
			dtoItem.Available = item.Product.IsActive
		}
		out.Items = append(out.Items, dtoItem)
	}
	return out, nil
}

func newGeneratedLink(link *sharecartsvc.GeneratedLink) (sharecartdto.GeneratedLink, error) {
	var out sharecartdto.GeneratedLink
	err := copier.Copy(&out, link)
	return out, err
}

func newAddAllResult(result *sharecartsvc.AddAllResult) (sharecartdto.AddAllResult, error) {
	var out sharecartdto.AddAllResult
	err := copier.Copy(&out, result)
	return out, err
}

func newOrderPlacedResult(result *sharecartsvc.OrderPlacedResult) (sharecartdto.OrderPlacedResult, error) {
	var out sharecartdto.OrderPlacedResult
	err := copier.Copy(&out, result)
	return out, err
}
