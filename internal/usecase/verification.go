package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/polkiloo/facecheck/internal/adapter/assets"
	"github.com/polkiloo/facecheck/internal/adapter/events"
	domainErrors "github.com/polkiloo/facecheck/internal/domain/errors"
	"github.com/polkiloo/facecheck/internal/domain/model"
	"github.com/polkiloo/facecheck/internal/domain/repository"
	"github.com/polkiloo/facecheck/internal/pkg/face"
	"github.com/polkiloo/facecheck/internal/pkg/lock"
)

var nowUTC = func() time.Time { return time.Now().UTC() }

// VerificationOptions tunes asset retention of the verification flow.
type VerificationOptions struct {
	// RetainRejectedSelfies keeps selfies that were not attached to a user, for audit.
	RetainRejectedSelfies bool
}

// VerificationUseCase compares a user's document photo against a fresh selfie and records the trust decision.
type VerificationUseCase struct {
	users    repository.UserRepository
	assets   assets.Store
	embedder face.Provider
	matcher  *face.Matcher
	locker   lock.Locker
	events   events.Publisher
	opts     VerificationOptions
	logger   *slog.Logger
}

// NewVerificationUseCase constructs VerificationUseCase.
func NewVerificationUseCase(
	users repository.UserRepository,
	store assets.Store,
	embedder face.Provider,
	matcher *face.Matcher,
	locker lock.Locker,
	publisher events.Publisher,
	opts VerificationOptions,
	logger *slog.Logger,
) *VerificationUseCase {
	return &VerificationUseCase{
		users:    users,
		assets:   store,
		embedder: embedder,
		matcher:  matcher,
		locker:   locker,
		events:   publisher,
		opts:     opts,
		logger:   logger,
	}
}

// VerifyIdentity runs one verification attempt. A face mismatch is a regular result, not an error.
// Attempts for the same user are serialized; the user record only changes on a match.
func (v *VerificationUseCase) VerifyIdentity(ctx context.Context, userID uuid.UUID, selfie model.Upload) (*model.VerificationResult, error) {
	release, err := v.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	user, err := v.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasDocument() {
		return nil, domainErrors.ErrNoDocumentOnFile
	}
	if len(selfie.Data) == 0 {
		return nil, domainErrors.Wrap(domainErrors.ErrInvalidInput, errors.New("selfie image is required"))
	}

	selfieRef, err := v.assets.Put(ctx, assets.SlotSelfie, selfie.Filename, selfie.ContentType, bytes.NewReader(selfie.Data))
	if err != nil {
		return nil, domainErrors.Wrap(domainErrors.ErrStorage, err)
	}
	attached := false
	defer func() {
		if !attached && !v.opts.RetainRejectedSelfies {
			v.deleteAsset(ctx, selfieRef)
		}
	}()

	document, err := assets.ReadAll(ctx, v.assets, *user.DocumentRef)
	if err != nil {
		return nil, domainErrors.Wrap(domainErrors.ErrStorage, err)
	}

	documentEmb, selfieEmb, err := v.embedPair(ctx, document, selfie.Data)
	if err != nil {
		return nil, err
	}

	decision, err := v.matcher.Decide(documentEmb, selfieEmb)
	if err != nil {
		return nil, domainErrors.Wrap(domainErrors.ErrProvider, err)
	}
	result := &model.VerificationResult{
		Verified:   decision.Match,
		Similarity: decision.Similarity,
		Distance:   decision.Distance,
	}

	logAttrs := []any{
		slog.String("user_id", userID.String()),
		slog.Float64("distance", decision.Distance),
		slog.Float64("threshold", v.matcher.Threshold()),
	}

	if !decision.Match {
		result.Reason = model.ReasonFaceMismatch
		v.logger.Info("identity rejected", logAttrs...)
		v.publishDecision(ctx, userID, result)
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var previousSelfie *string
	_, err = v.users.Update(ctx, userID, func(u *model.User) error {
		if !u.HasDocument() {
			return domainErrors.ErrNoDocumentOnFile
		}
		previousSelfie = u.SelfieRef
		u.MarkVerified(selfieRef)
		return nil
	})
	if err != nil {
		return nil, err
	}
	attached = true

	if previousSelfie != nil && *previousSelfie != selfieRef && !v.opts.RetainRejectedSelfies {
		v.deleteAsset(ctx, *previousSelfie)
	}

	v.logger.Info("identity verified", logAttrs...)
	v.publishDecision(ctx, userID, result)
	return result, nil
}

// RequestRevalidation clears the selfie and the verified flag. It is idempotent.
func (v *VerificationUseCase) RequestRevalidation(ctx context.Context, userID uuid.UUID) error {
	release, err := v.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	var previousSelfie *string
	_, err = v.users.Update(ctx, userID, func(u *model.User) error {
		previousSelfie = u.SelfieRef
		u.ResetVerification()
		return nil
	})
	if err != nil {
		return err
	}

	if previousSelfie != nil && !v.opts.RetainRejectedSelfies {
		v.deleteAsset(ctx, *previousSelfie)
	}

	v.logger.Info("revalidation requested", slog.String("user_id", userID.String()))
	publish(ctx, v.events, v.logger, model.IdentityEvent{
		Type:   model.EventRevalidationRequested,
		UserID: userID,
	})
	return nil
}

func (v *VerificationUseCase) lock(ctx context.Context, userID uuid.UUID) (func(), error) {
	release, err := v.locker.Lock(ctx, "user:"+userID.String())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domainErrors.Wrap(domainErrors.ErrStorage, fmt.Errorf("acquire user lock: %w", err))
	}
	return release, nil
}

// embedPair computes both embeddings concurrently.
func (v *VerificationUseCase) embedPair(ctx context.Context, document, selfie []byte) (face.Embedding, face.Embedding, error) {
	var documentEmb, selfieEmb face.Embedding
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		emb, err := v.embedder.Embed(gctx, document)
		if err != nil {
			return classifyEmbedError(ctx, "document", err)
		}
		documentEmb = emb
		return nil
	})
	g.Go(func() error {
		emb, err := v.embedder.Embed(gctx, selfie)
		if err != nil {
			return classifyEmbedError(ctx, "selfie", err)
		}
		selfieEmb = emb
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return documentEmb, selfieEmb, nil
}

// classifyEmbedError separates "no face" from provider failures. Caller cancellation is passed through.
func classifyEmbedError(ctx context.Context, image string, err error) error {
	switch {
	case errors.Is(err, face.ErrNoFace):
		return fmt.Errorf("%s image: %w", image, domainErrors.Wrap(domainErrors.ErrFaceNotDetected, err))
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return ctx.Err()
	default:
		return fmt.Errorf("%s image: %w", image, domainErrors.Wrap(domainErrors.ErrProvider, err))
	}
}

func (v *VerificationUseCase) publishDecision(ctx context.Context, userID uuid.UUID, result *model.VerificationResult) {
	eventType := model.EventIdentityRejected
	if result.Verified {
		eventType = model.EventIdentityVerified
	}
	similarity := result.RoundedSimilarity()
	publish(ctx, v.events, v.logger, model.IdentityEvent{
		Type:       eventType,
		UserID:     userID,
		Verified:   result.Verified,
		Similarity: &similarity,
	})
}

func (v *VerificationUseCase) deleteAsset(ctx context.Context, ref string) {
	if err := v.assets.Delete(context.WithoutCancel(ctx), ref); err != nil {
		v.logger.Warn("failed to delete selfie", slog.String("ref", ref), slog.String("error", err.Error()))
	}
}
