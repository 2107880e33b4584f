package itinerary

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"google.golang.org/genai"

	"github.com/lakbayhq/lakbay-api/internal/types"
)

// MockRepository is a testify mock for the Repository interface.
type MockRepository struct {
	mock.Mock
}

var _ Repository = (*MockRepository)(nil)

func (m *MockRepository) CreateItinerary(ctx context.Context, it types.Itinerary) error {
	args := m.Called(ctx, it)
	return args.Error(0)
}

func (m *MockRepository) GetItinerary(ctx context.Context, itineraryID uuid.UUID) (*types.Itinerary, error) {
	args := m.Called(ctx, itineraryID)
	it, _ := args.Get(0).(*types.Itinerary)
	return it, args.Error(1)
}

func (m *MockRepository) GetUserItineraries(ctx context.Context, userID uuid.UUID, destinationFilter string) ([]*types.Itinerary, error) {
	args := m.Called(ctx, userID, destinationFilter)
	its, _ := args.Get(0).([]*types.Itinerary)
	return its, args.Error(1)
}

func (m *MockRepository) UpdateItineraryData(ctx context.Context, itineraryID uuid.UUID, days []types.ItineraryDay) error {
	args := m.Called(ctx, itineraryID, days)
	return args.Error(0)
}

func (m *MockRepository) DeleteItinerary(ctx context.Context, itineraryID uuid.UUID) error {
	args := m.Called(ctx, itineraryID)
	return args.Error(0)
}

func (m *MockRepository) SaveInteraction(ctx context.Context, interaction types.LlmInteraction) error {
	args := m.Called(ctx, interaction)
	return args.Error(0)
}

// MockGenerator is a testify mock for the generator dependency.
type MockGenerator struct {
	mock.Mock
}

var _ generator = (*MockGenerator)(nil)

func (m *MockGenerator) Model() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockGenerator) GenerateResponse(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, prompt, config)
	resp, _ := args.Get(0).(*genai.GenerateContentResponse)
	return resp, args.Error(1)
}

// textResponse builds a minimal model response carrying one text part.
func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: text}},
				},
			},
		},
	}
}
