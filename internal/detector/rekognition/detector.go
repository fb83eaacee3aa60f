// Package rekognition implements face detection on AWS Rekognition.
// DetectFaces responses are mapped onto the common observation shape:
// landmark points grouped per facial feature, pose angles converted to
// radians, and brightness/sharpness folded into one quality score.
package rekognition

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"

	"github.com/pairwise-app/faceverify/internal/detector"
	"github.com/pairwise-app/faceverify/internal/domain"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100

	errCodeInvalidParameter   = "InvalidParameterException"
	errCodeInvalidImageFormat = "InvalidImageFormatException"
	errCodeImageTooLarge      = "ImageTooLargeException"
)

// Config holds configuration for the AWS Rekognition detector
type Config struct {
	// Region is the AWS region where Rekognition will be used (e.g., "us-east-1")
	Region string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Region: "us-east-1",
	}
}

// api is the subset of the Rekognition client the detector uses
type api interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// Detector implements detector.FaceDetector using AWS Rekognition
type Detector struct {
	api    api
	config Config
}

var _ detector.FaceDetector = (*Detector)(nil)

// New creates a Rekognition detector using the AWS default credential chain
func New(ctx context.Context, cfg Config) (*Detector, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Detector{
		api:    rekognition.NewFromConfig(awsCfg),
		config: cfg,
	}, nil
}

// DetectLargestFace detects faces in the image and returns the one
// covering the most frame area.
func (d *Detector) DetectLargestFace(ctx context.Context, image []byte) (*domain.FaceObservation, error) {
	if err := validateImage(image); err != nil {
		return nil, err
	}

	input := &rekognition.DetectFacesInput{
		Image: &types.Image{
			Bytes: image,
		},
		Attributes: []types.Attribute{types.AttributeAll},
	}

	output, err := d.api.DetectFaces(ctx, input)
	if err != nil {
		return nil, parseDetectError(err)
	}

	if len(output.FaceDetails) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	detail := largestFace(output.FaceDetails)

	return toObservation(detail), nil
}

func validateImage(image []byte) error {
	if len(image) < minImageSize {
		return domain.ErrInvalidImage.WithError(fmt.Errorf("image too small (%d bytes, minimum %d)", len(image), minImageSize))
	}
	if len(image) > maxImageSize {
		return domain.ErrInvalidImage.WithError(fmt.Errorf("image too large (%d bytes, maximum %d)", len(image), maxImageSize))
	}
	return nil
}

func parseDetectError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeInvalidImageFormat, errCodeImageTooLarge:
			return domain.ErrInvalidImage.WithError(err)
		case errCodeInvalidParameter:
			// Rekognition reports some undetectable faces this way
			if strings.Contains(strings.ToLower(apiErr.ErrorMessage()), "face") {
				return domain.ErrNoFaceDetected
			}
			return domain.ErrInvalidImage.WithError(err)
		}
	}
	return fmt.Errorf("detect faces: %w", err)
}

func largestFace(details []types.FaceDetail) types.FaceDetail {
	best := details[0]
	bestArea := boxArea(best.BoundingBox)
	for _, detail := range details[1:] {
		if area := boxArea(detail.BoundingBox); area > bestArea {
			best = detail
			bestArea = area
		}
	}
	return best
}

func boxArea(box *types.BoundingBox) float64 {
	if box == nil || box.Width == nil || box.Height == nil {
		return 0
	}
	return float64(*box.Width) * float64(*box.Height)
}

func toObservation(detail types.FaceDetail) *domain.FaceObservation {
	obs := &domain.FaceObservation{
		Landmarks: toLandmarks(detail.Landmarks),
	}

	if box := detail.BoundingBox; box != nil {
		if box.Left != nil {
			obs.BoundingBox.X = float64(*box.Left)
		}
		if box.Top != nil {
			obs.BoundingBox.Y = float64(*box.Top)
		}
		if box.Width != nil {
			obs.BoundingBox.Width = float64(*box.Width)
		}
		if box.Height != nil {
			obs.BoundingBox.Height = float64(*box.Height)
		}
	}

	if pose := detail.Pose; pose != nil {
		if pose.Yaw != nil {
			obs.Yaw = degToRad(float64(*pose.Yaw))
		}
		if pose.Pitch != nil {
			obs.Pitch = degToRad(float64(*pose.Pitch))
		}
		if pose.Roll != nil {
			obs.Roll = degToRad(float64(*pose.Roll))
		}
	}

	if q := qualityScore(detail.Quality); q != nil {
		obs.Quality = q
	}

	return obs
}

// qualityScore folds Rekognition's brightness and sharpness (0-100)
// into one score in [0,1]. Sharpness is weighted more heavily since it
// matters more for landmark geometry.
func qualityScore(quality *types.ImageQuality) *float64 {
	if quality == nil {
		return nil
	}

	brightness := 0.0
	sharpness := 0.0

	if quality.Brightness != nil {
		brightness = float64(*quality.Brightness) / 100.0
	}
	if quality.Sharpness != nil {
		sharpness = float64(*quality.Sharpness) / 100.0
	}

	score := brightness*0.3 + sharpness*0.7
	return &score
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func toLandmarks(landmarks []types.Landmark) domain.Landmarks {
	points := make(map[types.LandmarkType]domain.Point, len(landmarks))
	for _, lm := range landmarks {
		if lm.X == nil || lm.Y == nil {
			continue
		}
		points[lm.Type] = domain.Point{X: float64(*lm.X), Y: float64(*lm.Y)}
	}

	return domain.Landmarks{
		LeftEye: eyeOutline(points,
			types.LandmarkTypeLeftEyeLeft,
			types.LandmarkTypeLeftEyeUp,
			types.LandmarkTypeLeftEyeRight,
			types.LandmarkTypeLeftEyeDown,
		),
		RightEye: eyeOutline(points,
			types.LandmarkTypeRightEyeLeft,
			types.LandmarkTypeRightEyeUp,
			types.LandmarkTypeRightEyeRight,
			types.LandmarkTypeRightEyeDown,
		),
		LeftEyebrow: collect(points,
			types.LandmarkTypeLeftEyeBrowLeft,
			types.LandmarkTypeLeftEyeBrowUp,
			types.LandmarkTypeLeftEyeBrowRight,
		),
		RightEyebrow: collect(points,
			types.LandmarkTypeRightEyeBrowLeft,
			types.LandmarkTypeRightEyeBrowUp,
			types.LandmarkTypeRightEyeBrowRight,
		),
		Nose: collect(points,
			types.LandmarkTypeNoseLeft,
			types.LandmarkTypeNose,
			types.LandmarkTypeNoseRight,
		),
		OuterLips: collect(points,
			types.LandmarkTypeMouthLeft,
			types.LandmarkTypeMouthUp,
			types.LandmarkTypeMouthRight,
			types.LandmarkTypeMouthDown,
		),
		FaceContour: collect(points,
			types.LandmarkTypeUpperJawlineLeft,
			types.LandmarkTypeMidJawlineLeft,
			types.LandmarkTypeChinBottom,
			types.LandmarkTypeMidJawlineRight,
			types.LandmarkTypeUpperJawlineRight,
		),
	}
}

// collect returns the named points in order, dropping any the detector
// did not report. Callers downstream treat a short group as missing.
func collect(points map[types.LandmarkType]domain.Point, names ...types.LandmarkType) []domain.Point {
	out := make([]domain.Point, 0, len(names))
	for _, name := range names {
		if p, ok := points[name]; ok {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// eyeOutline expands Rekognition's four eye landmarks (left corner,
// top lid, right corner, bottom lid) into a six-point outline so the
// aspect-ratio computation sees vertical pairs. All four points are
// required; a partial eye is reported as missing.
func eyeOutline(points map[types.LandmarkType]domain.Point, left, up, right, down types.LandmarkType) []domain.Point {
	l, okL := points[left]
	u, okU := points[up]
	r, okR := points[right]
	d, okD := points[down]
	if !okL || !okU || !okR || !okD {
		return nil
	}

	return []domain.Point{l, u, u, r, d, d}
}
