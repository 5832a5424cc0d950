package sharecart

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	sharecartdto "github.com/angelmondragon/sharecart-backend/api/controllers/sharecart/dto"
	"github.com/angelmondragon/sharecart-backend/api/responses"
	"github.com/angelmondragon/sharecart-backend/api/validators"
	sharecartsvc "github.com/angelmondragon/sharecart-backend/internal/sharecart"
	"github.com/angelmondragon/sharecart-backend/internal/sharelinks"
	pkgerrors "github.com/angelmondragon/sharecart-backend/pkg/errors"
	"github.com/angelmondragon/sharecart-backend/pkg/logger"
)

const expiredQueryParam = "sharecart"

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "share cart service unavailable"))
}

// GenerateLink creates a share link from the caller's current cart.
func GenerateLink(svc sharecartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}

		var payload sharecartdto.GenerateLinkRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		link, err := svc.GenerateLink(r.Context(), callerFromRequest(r), toGenerateInput(payload))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := newGeneratedLink(link)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "map share link"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

// ViewLink returns the shared cart behind a live key.
func ViewLink(svc sharecartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}

		view, err := svc.ViewSharedCart(r.Context(), callerFromRequest(r), chi.URLParam(r, "key"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := newSharedCart(view)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "map shared cart"))
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// AddAll copies every line of a shared cart into the caller's cart.
func AddAll(svc sharecartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}

		var payload sharecartdto.AddAllRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddAllItems(r.Context(), callerFromRequest(r), sharecartsvc.AddAllInput{
			Key:         chi.URLParam(r, "key"),
			ReplaceCart: payload.ReplaceCart,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := newAddAllResult(result)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "map add result"))
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// AddItem adds a single product to the caller's cart.
func AddItem(svc sharecartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}

		var payload sharecartdto.AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddSingleItem(r.Context(), callerFromRequest(r), toAddSingleInput(payload))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sharecartdto.AddItemResult{CartURL: result.CartURL})
	}
}

// OrderPlaced attributes a freshly placed order to the session's referral.
func OrderPlaced(svc sharecartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}

		var payload sharecartdto.OrderPlacedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.OnOrderPlaced(r.Context(), callerFromRequest(r), payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := newOrderPlacedResult(result)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "map order result"))
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// Landing is the public share URL. A live key loads the shared cart into the
// visitor's cart and redirects there; anything else lands on the fallback page.
func Landing(svc sharecartsvc.Service, redirectURL string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}

		result, err := svc.OpenSharedCart(r.Context(), callerFromRequest(r), chi.URLParam(r, "key"))
		if err != nil {
			if sharelinks.IsNotFound(err) {
				http.Redirect(w, r, withQuery(redirectURL, expiredQueryParam, "expired"), http.StatusFound)
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.Redirect(w, r, result.CartURL, http.StatusFound)
	}
}

func withQuery(raw, key, value string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
