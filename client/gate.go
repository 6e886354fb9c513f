package client

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/share-gate-api/internal/domain"
)

// Decision is the gate's verdict for one navigation attempt.
type Decision struct {
	Admit bool
	// Location is where the client should go: the protected view when
	// admitted, otherwise the OTP gate page for the same resource.
	Location string
	// Proof is the valid cached proof when admitted, nil otherwise.
	Proof *AccessProof
}

// Gate guards navigation to protected share views against the local proof
// cache. It is re-evaluated on every attempt; any absent, expired or
// unparseable proof fails safe to "require re-verification".
type Gate struct {
	proofs ProofStore
	now    func() time.Time
}

func NewGate(proofs ProofStore) *Gate {
	return &Gate{proofs: proofs, now: time.Now}
}

// Check resolves rawID (which may carry the gate page's own "-otp" suffix) to
// the canonical resource id and decides whether the client may proceed.
func (g *Gate) Check(shareType domain.ShareType, rawID string) Decision {
	shareID := strings.TrimSuffix(rawID, "-otp")
	redirect := Decision{Admit: false, Location: gateURL(shareType, shareID)}

	key := proofKey(shareType, shareID)
	raw, ok := g.proofs.Get(key)
	if !ok {
		return redirect
	}

	var proof AccessProof
	if err := json.Unmarshal([]byte(raw), &proof); err != nil || proof.Token == "" {
		g.proofs.Delete(key)
		return redirect
	}
	if !proof.ExpiresAt.After(g.now()) {
		g.proofs.Delete(key)
		return redirect
	}

	return Decision{Admit: true, Location: viewURL(shareType, shareID), Proof: &proof}
}

// Store caches a proof for the tuple after a successful verification.
func (g *Gate) Store(shareType domain.ShareType, shareID string, proof AccessProof) error {
	raw, err := json.Marshal(proof)
	if err != nil {
		return err
	}
	g.proofs.Set(proofKey(shareType, shareID), string(raw))
	return nil
}

func viewURL(shareType domain.ShareType, shareID string) string {
	return fmt.Sprintf("/shared/%s/%s", shareType, shareID)
}

// gateURL is the OTP entry page for a resource, marked by the id suffix.
func gateURL(shareType domain.ShareType, shareID string) string {
	return fmt.Sprintf("/shared/%s/%s-otp", shareType, shareID)
}
