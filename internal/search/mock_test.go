package search

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/platform-resolver/pkg/serpapi"
)

type mockSearchClient struct {
	mock.Mock
}

func (m *mockSearchClient) Search(ctx context.Context, query string) (*serpapi.SearchResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*serpapi.SearchResponse), args.Error(1)
}
