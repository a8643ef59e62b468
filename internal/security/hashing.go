package security

import "golang.org/x/crypto/bcrypt"

// Hasher derives bcrypt digests for credential storage. The zero value is not
// usable; construct with NewHasher.
type Hasher struct {
	Cost int
}

// NewHasher clamps cost into bcrypt's supported range. A cost of zero (the
// unset config case) falls back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash returns a storable bcrypt digest of password.
func (h *Hasher) Hash(password []byte) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Compare reports whether password produced hash. A nil return means they
// match; bcrypt.ErrMismatchedHashAndPassword means the credential is wrong.
func (h *Hasher) Compare(hash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}
