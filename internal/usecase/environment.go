package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"gui-agent/internal/coords"
	"gui-agent/internal/entity"
	"gui-agent/internal/ports"
	"gui-agent/pkg/logg"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	screenshotDescription = "Browser Screenshot"
	omittedScreenshot     = "[earlier screenshot omitted]"
)

// observe captures the screen and publishes it as an environment_input event. It
// returns false when no screenshot could be taken; the loop continues without one.
func (s *AgentService) observe(ctx context.Context, op ports.Operator) (entity.Message, string, bool) {
	const opName = "observe"
	logger := s.logger.With(zap.String(logg.Operation, opName))

	shot, err := op.Screenshot(ctx)
	if err != nil || shot == nil || shot.Base64 == "" {
		logger.Warn("Failed to get screenshot", zap.Error(err))

		return entity.Message{}, "", false
	}

	encoded, err := s.compressor.Compress(ctx, shot.Base64)
	if err != nil {
		logger.Warn("Screenshot compression failed, sending original", zap.Error(err))

		encoded = shot.Base64
	}

	uri, width, height := dataURI(encoded)

	parts := []entity.ContentPart{{
		Type:     entity.PartImage,
		ImageURL: uri,
		Detail:   coords.DetailFor(width, height),
	}}

	if shot.URL != "" {
		parts = append(parts, entity.TextPart(fmt.Sprintf("The current page's url: %s", shot.URL)))
	}

	s.events.Append(entity.Event{
		Type:    entity.EventEnvironmentInput,
		Content: screenshotDescription,
		Parts:   parts,
		Metadata: map[string]string{
			"type": "screenshot",
			"url":  shot.URL,
		},
	})

	logger.Debug("Screenshot observed",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.String(logg.URL, shot.URL),
	)

	return entity.Message{Role: entity.RoleUser, Parts: parts}, shot.URL, true
}

// dataURI wraps a base64 image in a data URI and reports its pixel size, or -1 when
// the header is unreadable.
func dataURI(encoded string) (string, int, int) {
	if strings.HasPrefix(encoded, "data:") {
		encoded = encoded[strings.IndexByte(encoded, ',')+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "data:image/png;base64," + encoded, -1, -1
	}

	mime := http.DetectContentType(raw)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/png"
	}

	width, height := -1, -1
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(raw)); err == nil {
		width, height = cfg.Width, cfg.Height
	}

	return "data:" + mime + ";base64," + encoded, width, height
}

// pruneScreenshots keeps the image parts of the last keep messages and replaces older
// ones with a short text marker.
func pruneScreenshots(messages []entity.Message, keep int) {
	seen := 0

	for i := len(messages) - 1; i >= 0; i-- {
		parts := messages[i].Parts
		if len(parts) == 0 {
			continue
		}

		hasImage := false
		for _, p := range parts {
			if p.Type == entity.PartImage {
				hasImage = true

				break
			}
		}

		if !hasImage {
			continue
		}

		seen++
		if seen <= keep {
			continue
		}

		pruned := make([]entity.ContentPart, 0, len(parts))
		for _, p := range parts {
			if p.Type == entity.PartImage {
				p = entity.TextPart(omittedScreenshot)
			}

			pruned = append(pruned, p)
		}

		messages[i].Parts = pruned
	}
}
