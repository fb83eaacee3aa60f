package repository

import "github.com/pairwise-app/faceverify/internal/matcher"

// The repositories plug straight into the matcher's collaborator
// interfaces.
var (
	_ matcher.PhotoSource    = (*PhotoRepository)(nil)
	_ matcher.Recorder       = (*VerificationRepository)(nil)
	_ matcher.SignatureCache = (*SignatureCacheRepository)(nil)
)
