package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

var ErrNoAPIKey = errors.New("gemini api key is not configured")

// KeyedModel resolves the API key on every call and rebuilds the SDK client
// when the key changes, so a key stored after startup takes effect at once.
type KeyedModel struct {
	resolve    func() string
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	key    string
	client *SDKModel
}

var _ Model = (*KeyedModel)(nil)

func NewKeyedModel(resolve func() string, baseURL string, httpClient *http.Client) *KeyedModel {
	return &KeyedModel{resolve: resolve, baseURL: baseURL, httpClient: httpClient}
}

func (k *KeyedModel) current(ctx context.Context) (*SDKModel, error) {
	key := k.resolve()
	if key == "" {
		return nil, ErrNoAPIKey
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.client != nil && k.key == key {
		return k.client, nil
	}
	m, err := NewSDKModel(ctx, key, k.baseURL, k.httpClient)
	if err != nil {
		return nil, err
	}
	k.key, k.client = key, m
	return m, nil
}

func (k *KeyedModel) GenerateText(ctx context.Context, req TextRequest) (TextResponse, error) {
	m, err := k.current(ctx)
	if err != nil {
		return TextResponse{}, err
	}
	return m.GenerateText(ctx, req)
}

func (k *KeyedModel) GenerateImage(ctx context.Context, model, prompt string) (Image, bool, error) {
	m, err := k.current(ctx)
	if err != nil {
		return Image{}, false, err
	}
	return m.GenerateImage(ctx, model, prompt)
}
