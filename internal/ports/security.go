package ports

// ActorClaims are the verified identity claims carried by a bearer token.
type ActorClaims struct {
	SubjectID string
	Role      string
}

// TokenVerifier validates bearer tokens and extracts actor claims.
type TokenVerifier interface {
	Verify(token string) (ActorClaims, error)
}
