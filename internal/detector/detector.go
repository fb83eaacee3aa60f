// Package detector defines the face-detection capability consumed by the
// verification pipeline. Implementations localize the single largest face
// in an image and report normalized landmarks, head angles, and capture
// quality in a common shape, so the same extraction runs on live frames
// and on downloaded reference photos.
package detector

import (
	"context"

	"github.com/pairwise-app/faceverify/internal/domain"
)

// FaceDetector detects the largest face in an image.
// Implementations return domain.ErrNoFaceDetected when no face is found
// and domain.ErrInvalidImage for unusable input.
type FaceDetector interface {
	DetectLargestFace(ctx context.Context, image []byte) (*domain.FaceObservation, error)
}
