package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/config"
	llmport "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/llm/port"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/lib/sl"
	repository "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/persistence/repository/port"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/prompts"
)

// ImageDownloader fetches an attachment URL. The messaging sender provides
// the implementation.
type ImageDownloader interface {
	DownloadImage(ctx context.Context, url string) ([]byte, error)
}

// AnalyzeImageUseCase describes one attachment with the vision model and
// stores the description for the pending batch. The pending counter always
// goes down, even on failure, so batch processing is never gated forever on
// an image that cannot be analyzed.
type AnalyzeImageUseCase struct {
	states     repository.StateRepository
	llm        llmport.Client
	downloader ImageDownloader
	cfg        *config.Config
	log        *slog.Logger
}

func NewAnalyzeImageUseCase(states repository.StateRepository, llm llmport.Client, downloader ImageDownloader, cfg *config.Config, log *slog.Logger) *AnalyzeImageUseCase {
	return &AnalyzeImageUseCase{states: states, llm: llm, downloader: downloader, cfg: cfg, log: log.With(sl.Module("vision"))}
}

func (uc *AnalyzeImageUseCase) Execute(ctx context.Context, userID, imageURL string, ordinal int) error {
	defer func() {
		if err := uc.states.DecrPendingImages(ctx, userID); err != nil {
			uc.log.Error("could not settle pending counter", sl.User(userID), sl.Err(err))
		}
	}()

	image, err := uc.downloader.DownloadImage(ctx, imageURL)
	if err != nil {
		uc.log.Warn("image download failed, skipping analysis", sl.User(userID), sl.Err(err))
		return nil
	}

	analysis, err := uc.llm.AnalyzeImage(ctx, uc.cfg.OpenAI.ModelVision, prompts.Vision,
		"Περιέγραψε αυτό το σχέδιο τατουάζ.", image)
	if err != nil {
		uc.log.Warn("image analysis failed, skipping", sl.User(userID), sl.Err(err))
		return nil
	}

	entry := fmt.Sprintf("Εικόνα %d: %s", ordinal, analysis)
	if err := uc.states.AppendAnalysis(ctx, userID, entry); err != nil {
		return fmt.Errorf("%w: store analysis: %v", ErrPersistence, err)
	}
	uc.log.Debug("image analyzed", sl.User(userID), slog.Int("ordinal", ordinal))
	return nil
}
