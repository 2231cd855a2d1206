package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goongpt/backend/internal/ratelimit"
	"go.uber.org/zap"
)

// GenerationService маршрутизирует action на провайдера. Тела запросов
// и ответов провайдеров — opaque JSON, сервис их не интерпретирует.
type GenerationService struct {
	modelslab *ModelsLabClient
	venice    *VeniceClient
	replicate *ReplicateClient
	log       *zap.Logger
}

func NewGenerationService(modelslab *ModelsLabClient, venice *VeniceClient, replicate *ReplicateClient, log *zap.Logger) *GenerationService {
	return &GenerationService{modelslab: modelslab, venice: venice, replicate: replicate, log: log}
}

func (s *GenerationService) Generate(ctx context.Context, actionType string, payload map[string]any) (json.RawMessage, error) {
	switch actionType {
	case ratelimit.ActionChat:
		return s.venice.ChatCompletion(ctx, payload)
	case ratelimit.ActionImage:
		return s.modelslab.Generate(ctx, "/realtime/text2img", payload)
	case ratelimit.ActionVideo:
		return s.modelslab.Generate(ctx, "/video/text2video", payload)
	case ratelimit.ActionASMR:
		return s.modelslab.Generate(ctx, "/voice/text_to_audio", payload)
	case ratelimit.ActionFaceswap:
		return s.replicate.CreatePrediction(ctx, payload)
	default:
		return nil, fmt.Errorf("unknown action type: %s", actionType)
	}
}

// PredictionStatus — поллинг асинхронной faceswap-задачи Replicate.
func (s *GenerationService) PredictionStatus(ctx context.Context, id string) (json.RawMessage, error) {
	return s.replicate.GetPrediction(ctx, id)
}
