package sharecart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/sharecart-backend/pkg/db/models"
)

// ReferralSessionKey is the session entry holding referral attribution.
const ReferralSessionKey = "sharecart_referral"

// Referral is the attribution a session carries from a shared cart to checkout.
type Referral struct {
	ShareID      int64   `json:"share_id"`
	Key          string  `json:"ref_id"`
	ReferrerName string  `json:"referrer_name"`
	Note         *string `json:"note,omitempty"`
}

func referralFor(link *models.ShareLink) Referral {
	return Referral{
		ShareID:      link.ID,
		Key:          link.ShareKey,
		ReferrerName: link.ReferrerName,
		Note:         link.Note,
	}
}

func (s *service) storeReferral(ctx context.Context, sessionID string, link *models.ShareLink) error {
	if sessionID == "" {
		return nil
	}
	payload, err := json.Marshal(referralFor(link))
	if err != nil {
		return fmt.Errorf("encode referral: %w", err)
	}
	return s.session.Set(ctx, sessionID, ReferralSessionKey, string(payload))
}

func (s *service) loadReferral(ctx context.Context, sessionID string) (*Referral, error) {
	if sessionID == "" {
		return nil, nil
	}
	raw, ok, err := s.session.Get(ctx, sessionID, ReferralSessionKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var ref Referral
	if err := json.Unmarshal([]byte(raw), &ref); err != nil {
		return nil, fmt.Errorf("decode referral: %w", err)
	}
	if ref.ShareID <= 0 {
		return nil, nil
	}
	return &ref, nil
}
