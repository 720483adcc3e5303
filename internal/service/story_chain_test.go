package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyvideo-server/internal/mocks"
	"storyvideo-server/internal/provider"
	"storyvideo-server/internal/service"
	"storyvideo-server/shared/models"
)

func threeSegmentPlan() models.StoryPlan {
	segment := func(n int, title, escena string) models.StorySegment {
		return models.StorySegment{
			SegmentNumber: n,
			Title:         title,
			SceneConfig: models.SceneConfig{
				Escena:  escena,
				Accion:  "avanza la historia",
				Dialogo: "sigue",
			},
		}
	}
	return models.StoryPlan{
		StoryTitle: "El viaje",
		Segments: []models.StorySegment{
			segment(1, "Salida", "estacion"),
			segment(2, "Camino", "tren en marcha"),
			segment(3, "Llegada", "ciudad nueva"),
		},
	}
}

func segmentVideo(n int) *service.VideoGenResult {
	return &service.VideoGenResult{
		RecordID:        uuid.New(),
		Data:            []byte{byte(n)},
		OutputURL:       "http://media/seg",
		MimeType:        "video/mp4",
		CostMXN:         10,
		DurationSeconds: 8,
	}
}

func TestStoryChain_ThreadsSeedThroughSegments(t *testing.T) {
	segments := mocks.NewMockSegmentGenerator(t)
	var seenSeeds [][]byte

	for i := 1; i <= 3; i++ {
		n := i
		segments.On("GenerateVideo", mock.Anything, mock.MatchedBy(func(req service.VideoGenRequest) bool {
			if req.Scene.Escena == threeSegmentPlan().Segments[n-1].Escena {
				if req.Seed == nil {
					seenSeeds = append(seenSeeds, nil)
				} else {
					seenSeeds = append(seenSeeds, req.Seed.Data)
				}
				return true
			}
			return false
		})).Return(segmentVideo(n), nil).Once()
	}

	orch := service.NewStoryChainOrchestrator(segments, zap.NewNop())
	result, err := orch.Run(context.Background(), service.StoryChainRequest{
		UserID: "u1",
		Plan:   threeSegmentPlan(),
	})
	require.NoError(t, err)
	require.Len(t, result.Segments, 3)

	// Первый сегмент без затравки, каждый следующий сеется предыдущим
	require.Len(t, seenSeeds, 3)
	assert.Nil(t, seenSeeds[0])
	assert.Equal(t, []byte{1}, seenSeeds[1])
	assert.Equal(t, []byte{2}, seenSeeds[2])

	assert.False(t, result.Segments[0].WasExtended)
	assert.True(t, result.Segments[1].WasExtended)
	assert.True(t, result.Segments[2].WasExtended)
	assert.InDelta(t, 30, result.TotalCostMXN(), 1e-9)
	segments.AssertExpectations(t)
}

func TestStoryChain_ImageSeedDoesNotMarkFirstSegmentExtended(t *testing.T) {
	segments := mocks.NewMockSegmentGenerator(t)
	imageSeed := &provider.InlineMedia{Data: []byte("retrato"), MimeType: "image/png"}

	var seenSeeds [][]byte
	segments.On("GenerateVideo", mock.Anything, mock.MatchedBy(func(req service.VideoGenRequest) bool {
		if req.Seed == nil {
			seenSeeds = append(seenSeeds, nil)
		} else {
			seenSeeds = append(seenSeeds, req.Seed.Data)
		}
		return true
	})).Return(segmentVideo(1), nil).Times(3)

	orch := service.NewStoryChainOrchestrator(segments, zap.NewNop())
	result, err := orch.Run(context.Background(), service.StoryChainRequest{
		UserID: "u1",
		Plan:   threeSegmentPlan(),
		Seed:   imageSeed,
	})
	require.NoError(t, err)
	require.Len(t, result.Segments, 3)

	// Картинка дошла до первого сегмента
	require.Len(t, seenSeeds, 3)
	assert.Equal(t, []byte("retrato"), seenSeeds[0])

	// Продолжением считается только сегмент, засеянный предыдущим видео
	assert.False(t, result.Segments[0].WasExtended)
	assert.True(t, result.Segments[1].WasExtended)
	assert.True(t, result.Segments[2].WasExtended)
}

func TestStoryChain_ForcesSegmentDuration(t *testing.T) {
	segments := mocks.NewMockSegmentGenerator(t)
	plan := threeSegmentPlan()
	// Планировщик мог предложить любые длительности: цепочка их игнорирует
	plan.Segments[0].SuggestedDuration = 2
	plan.Segments[1].SuggestedDuration = 17

	segments.On("GenerateVideo", mock.Anything, mock.MatchedBy(func(req service.VideoGenRequest) bool {
		return req.DurationSeconds == models.StorySegmentDuration
	})).Return(segmentVideo(1), nil).Times(3)

	orch := service.NewStoryChainOrchestrator(segments, zap.NewNop())
	_, err := orch.Run(context.Background(), service.StoryChainRequest{UserID: "u1", Plan: plan})
	require.NoError(t, err)
	segments.AssertExpectations(t)
}

func TestStoryChain_InterruptionKeepsPartialResult(t *testing.T) {
	segments := mocks.NewMockSegmentGenerator(t)
	segments.On("GenerateVideo", mock.Anything, mock.Anything).
		Return(segmentVideo(1), nil).Once()
	segments.On("GenerateVideo", mock.Anything, mock.Anything).
		Return(nil, &models.ProviderError{Kind: models.ProviderErrUnavailable, Message: "down"}).Once()

	orch := service.NewStoryChainOrchestrator(segments, zap.NewNop())
	result, err := orch.Run(context.Background(), service.StoryChainRequest{
		UserID: "u1",
		Plan:   threeSegmentPlan(),
	})
	assert.Nil(t, result)
	require.Error(t, err)

	var chainErr *models.ChainInterruptedError
	require.True(t, errors.As(err, &chainErr))
	assert.Equal(t, 2, chainErr.AtSegment)
	require.NotNil(t, chainErr.Partial)
	require.Len(t, chainErr.Partial.Segments, 1)
	assert.Equal(t, 1, chainErr.Partial.Segments[0].SegmentNumber)
	assert.InDelta(t, 10, chainErr.Partial.TotalCostMXN(), 1e-9)

	// Третий сегмент не запускался
	segments.AssertNumberOfCalls(t, "GenerateVideo", 2)

	var provErr *models.ProviderError
	assert.True(t, errors.As(chainErr.Cause, &provErr))
}

func TestStoryChain_CallbacksFireInOrder(t *testing.T) {
	segments := mocks.NewMockSegmentGenerator(t)
	segments.On("GenerateVideo", mock.Anything, mock.Anything).
		Return(segmentVideo(1), nil).Times(3)

	var events []string
	orch := service.NewStoryChainOrchestrator(segments, zap.NewNop())
	_, err := orch.Run(context.Background(), service.StoryChainRequest{
		UserID: "u1",
		Plan:   threeSegmentPlan(),
		Callbacks: service.ChainCallbacks{
			OnSegmentStart: func(n int, title string) {
				events = append(events, "start")
			},
			OnSegmentComplete: func(models.SegmentResult) {
				events = append(events, "done")
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "done", "start", "done", "start", "done"}, events)
}

func TestStoryChain_EmptyPlanRejected(t *testing.T) {
	segments := mocks.NewMockSegmentGenerator(t)
	orch := service.NewStoryChainOrchestrator(segments, zap.NewNop())

	_, err := orch.Run(context.Background(), service.StoryChainRequest{
		UserID: "u1",
		Plan:   models.StoryPlan{StoryTitle: "vacia"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
	segments.AssertNotCalled(t, "GenerateVideo", mock.Anything, mock.Anything)
}
