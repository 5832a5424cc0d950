package sharecart

import (
	"net/http"

	sharecartdto "github.com/angelmondragon/sharecart-backend/api/controllers/sharecart/dto"
	"github.com/angelmondragon/sharecart-backend/api/middleware"
	"github.com/angelmondragon/sharecart-backend/api/validators"
	sharecartsvc "github.com/angelmondragon/sharecart-backend/internal/sharecart"
	"github.com/angelmondragon/sharecart-backend/pkg/types"
)

const maxNoteLength = 500

func callerFromRequest(r *http.Request) sharecartsvc.Caller {
	ctx := r.Context()
	caller := sharecartsvc.Caller{
		SessionID: middleware.SessionIDFromContext(ctx),
		Address:   middleware.ClientIPFromContext(ctx),
	}
	if userID := middleware.UserIDFromContext(ctx); userID != "" {
		caller.UserID = &userID
	}
	return caller
}

func toGenerateInput(req sharecartdto.GenerateLinkRequest) sharecartsvc.GenerateInput {
	return sharecartsvc.GenerateInput{
		ReferrerName: req.ReferrerName,
		Note:         validators.OptionalString(req.Note, maxNoteLength),
	}
}

func toAddSingleInput(req sharecartdto.AddItemRequest) sharecartsvc.AddSingleInput {
	return sharecartsvc.AddSingleInput{
		ShareKey: req.ShareKey,
		Item: types.CartLine{
			ProductID:           req.ProductID,
			Quantity:            req.Quantity,
			VariationID:         req.VariationID,
			VariationAttributes: req.Variation,
		},
	}
}
