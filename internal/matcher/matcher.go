// Package matcher resolves a session's captured signatures against the
// user's stored reference photos and records accepted verifications.
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pairwise-app/faceverify/internal/detector"
	"github.com/pairwise-app/faceverify/internal/domain"
	"github.com/pairwise-app/faceverify/internal/signature"
	"github.com/pairwise-app/faceverify/internal/verify"
)

// PhotoSource lists the reference photo URLs for a user, profile photo
// first.
type PhotoSource interface {
	ProfilePhotoURLs(ctx context.Context, userID string) ([]string, error)
}

// Recorder persists accepted verification outcomes.
type Recorder interface {
	CreateVerification(ctx context.Context, record *domain.VerificationRecord) error
}

// SignatureCache caches extracted reference signatures by photo URL.
// Get returns nil without error on a miss. The cache is best-effort:
// failures are logged and matching proceeds without it.
type SignatureCache interface {
	Get(ctx context.Context, url string) ([]float64, error)
	Put(ctx context.Context, url string, sig []float64) error
}

// Config holds the matching parameters.
type Config struct {
	// Threshold is the minimum remapped similarity to accept.
	Threshold float64

	// Concurrency bounds the parallel reference downloads.
	Concurrency int
}

// DefaultConfig returns the production matching parameters.
func DefaultConfig() Config {
	return Config{
		Threshold:   0.70,
		Concurrency: 4,
	}
}

// User-presentable decision messages.
const (
	msgNoCaptures   = "No face captures were collected"
	msgNoCenterFace = "No front-facing capture was collected"
	msgNoReferences = "No profile photos to compare against"
	msgNoMatch      = "Your face doesn't match your profile photos"
	msgVerified     = "Identity verified"
)

// Matcher compares the best center capture against every reference
// photo and accepts on the maximum similarity. A single good reference
// photo is enough; averaging would punish users for old or poorly lit
// gallery photos.
type Matcher struct {
	cfg        Config
	photos     PhotoSource
	downloader Downloader
	detector   detector.FaceDetector
	records    Recorder
	cache      SignatureCache
	logger     *slog.Logger
}

// New creates a Matcher. cache may be nil to disable signature caching.
func New(cfg Config, photos PhotoSource, downloader Downloader, det detector.FaceDetector, records Recorder, cache SignatureCache, logger *slog.Logger) *Matcher {
	return &Matcher{
		cfg:        cfg,
		photos:     photos,
		downloader: downloader,
		detector:   det,
		records:    records,
		cache:      cache,
		logger:     logger,
	}
}

var _ verify.Matcher = (*Matcher)(nil)

// Match implements the terminal decision. Business rejections come back
// as unsuccessful results with a message; only infrastructure failures
// are errors.
func (m *Matcher) Match(ctx context.Context, userID string, captures []domain.FaceCapture) (domain.MatchResult, error) {
	if len(captures) == 0 {
		return rejection(msgNoCaptures), nil
	}
	selfie := bestCenterCapture(captures)
	if selfie == nil {
		return rejection(msgNoCenterFace), nil
	}

	urls, err := m.photos.ProfilePhotoURLs(ctx, userID)
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("listing reference photos: %w", err)
	}
	if len(urls) == 0 {
		return rejection(msgNoReferences), nil
	}

	scores, errs := m.scoreReferences(ctx, selfie.Signature, urls)
	if len(scores) == 0 {
		return domain.MatchResult{}, errs[0]
	}

	best := 0.0
	for _, score := range scores {
		if score > best {
			best = score
		}
	}
	m.logger.Info("reference matching finished",
		"user_id", userID, "references", len(urls), "scored", len(scores), "best", best)

	if best < m.cfg.Threshold {
		return domain.MatchResult{Success: false, Message: msgNoMatch, Confidence: best}, nil
	}

	record := &domain.VerificationRecord{
		ID:         uuid.New(),
		UserID:     userID,
		Verified:   true,
		Confidence: best,
		Method:     domain.MethodLiveFaceRecognition,
		CreatedAt:  time.Now(),
	}
	if err := m.records.CreateVerification(ctx, record); err != nil {
		return domain.MatchResult{}, fmt.Errorf("recording verification: %w", err)
	}

	return domain.MatchResult{Success: true, Message: msgVerified, Confidence: best}, nil
}

// scoreReferences computes the similarity for each reference in
// parallel. References that fail to produce a signature contribute an
// error instead of a score.
func (m *Matcher) scoreReferences(ctx context.Context, selfie []float64, urls []string) ([]float64, []error) {
	type outcome struct {
		score float64
		err   error
	}

	results := make([]outcome, len(urls))
	sem := make(chan struct{}, m.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			sig, err := m.referenceSignature(ctx, url)
			if err != nil {
				results[i] = outcome{err: err}
				return
			}
			results[i] = outcome{score: signature.RemappedSimilarity(selfie, sig)}
		}(i, url)
	}
	wg.Wait()

	var scores []float64
	var errs []error
	for _, r := range results {
		if r.err != nil {
			m.logger.Warn("reference photo skipped", "error", r.err)
			errs = append(errs, r.err)
			continue
		}
		scores = append(scores, r.score)
	}
	return scores, errs
}

func (m *Matcher) referenceSignature(ctx context.Context, url string) ([]float64, error) {
	if m.cache != nil {
		sig, err := m.cache.Get(ctx, url)
		if err != nil {
			m.logger.Warn("signature cache read failed", "error", err)
		} else if sig != nil {
			return sig, nil
		}
	}

	img, err := m.downloader.Download(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("downloading reference: %w", err)
	}
	obs, err := m.detector.DetectLargestFace(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detecting reference face: %w", err)
	}
	sig, err := signature.Extract(obs)
	if err != nil {
		return nil, fmt.Errorf("extracting reference signature: %w", err)
	}

	if m.cache != nil {
		if err := m.cache.Put(ctx, url, sig.Float64s()); err != nil {
			m.logger.Warn("signature cache write failed", "error", err)
		}
	}
	return sig.Float64s(), nil
}

// bestCenterCapture picks the highest-quality center-pose capture.
func bestCenterCapture(captures []domain.FaceCapture) *domain.FaceCapture {
	var best *domain.FaceCapture
	for i := range captures {
		c := &captures[i]
		if c.Pose != domain.PoseCenter {
			continue
		}
		if best == nil || c.Quality > best.Quality {
			best = c
		}
	}
	return best
}

func rejection(message string) domain.MatchResult {
	return domain.MatchResult{Success: false, Message: message}
}
