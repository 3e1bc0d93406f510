package payments_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
	"github.com/smallbiznis/homeservice-site/internal/service/payments"
)

type fakeTokens struct {
	token  string
	record *integration.OAuthTokenRecord
	err    error
	gets   int
}

func (f *fakeTokens) GetValidToken(ctx context.Context, service string) (string, error) {
	f.gets++
	if f.err != nil {
		return "", f.err
	}
	if f.record == nil {
		return "", fmt.Errorf("get token: %w", integration.ErrTokenNotFound)
	}
	return f.token, nil
}

func (f *fakeTokens) Record(ctx context.Context, service string) (integration.OAuthTokenRecord, error) {
	if f.record == nil {
		return integration.OAuthTokenRecord{}, fmt.Errorf("get token: %w", integration.ErrTokenNotFound)
	}
	return *f.record, nil
}

type fakeLocations struct {
	locations []integration.PaymentLocation
	tokens    []string
}

func (f *fakeLocations) ListLocations(ctx context.Context, accessToken string) ([]integration.PaymentLocation, error) {
	f.tokens = append(f.tokens, accessToken)
	return f.locations, nil
}

func strPtr(s string) *string { return &s }

func TestResolveAccessTokenPrefersStatic(t *testing.T) {
	tokens := &fakeTokens{token: "STORED", record: &integration.OAuthTokenRecord{}}
	r := payments.NewResolver(payments.Static{AccessToken: "ENV_TOKEN"}, tokens, &fakeLocations{}, zap.NewNop())

	got, err := r.ResolveAccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ENV_TOKEN", got)
	require.Zero(t, tokens.gets)
}

func TestResolveAccessTokenStored(t *testing.T) {
	tokens := &fakeTokens{token: "STORED", record: &integration.OAuthTokenRecord{}}
	r := payments.NewResolver(payments.Static{}, tokens, &fakeLocations{}, zap.NewNop())

	got, err := r.ResolveAccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "STORED", got)
}

func TestResolveAccessTokenNotConfigured(t *testing.T) {
	r := payments.NewResolver(payments.Static{}, &fakeTokens{}, &fakeLocations{}, zap.NewNop())

	_, err := r.ResolveAccessToken(context.Background())
	require.ErrorIs(t, err, integration.ErrNotConfigured)
}

func TestResolveAccessTokenPropagatesLifecycleErrors(t *testing.T) {
	tokens := &fakeTokens{err: integration.ErrNoRefreshToken}
	r := payments.NewResolver(payments.Static{}, tokens, &fakeLocations{}, zap.NewNop())

	_, err := r.ResolveAccessToken(context.Background())
	require.ErrorIs(t, err, integration.ErrNoRefreshToken)
}

func TestResolveLocationIDOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("static", func(t *testing.T) {
		locs := &fakeLocations{}
		r := payments.NewResolver(payments.Static{LocationID: "L-ENV"}, &fakeTokens{}, locs, zap.NewNop())
		got, err := r.ResolveLocationID(ctx, "")
		require.NoError(t, err)
		require.Equal(t, "L-ENV", got)
		require.Empty(t, locs.tokens)
	})

	t.Run("stored", func(t *testing.T) {
		locs := &fakeLocations{}
		tokens := &fakeTokens{token: "T", record: &integration.OAuthTokenRecord{LocationID: strPtr("L-STORED")}}
		r := payments.NewResolver(payments.Static{}, tokens, locs, zap.NewNop())
		got, err := r.ResolveLocationID(ctx, "")
		require.NoError(t, err)
		require.Equal(t, "L-STORED", got)
		require.Empty(t, locs.tokens)
	})

	t.Run("remote with given token", func(t *testing.T) {
		locs := &fakeLocations{locations: []integration.PaymentLocation{{ID: "L-REMOTE"}, {ID: "L-OTHER"}}}
		r := payments.NewResolver(payments.Static{}, &fakeTokens{}, locs, zap.NewNop())
		got, err := r.ResolveLocationID(ctx, "CALLER_TOKEN")
		require.NoError(t, err)
		require.Equal(t, "L-REMOTE", got)
		require.Equal(t, []string{"CALLER_TOKEN"}, locs.tokens)
	})

	t.Run("remote with resolved token", func(t *testing.T) {
		locs := &fakeLocations{locations: []integration.PaymentLocation{{ID: "L-REMOTE"}}}
		r := payments.NewResolver(payments.Static{AccessToken: "ENV_TOKEN"}, &fakeTokens{}, locs, zap.NewNop())
		got, err := r.ResolveLocationID(ctx, "")
		require.NoError(t, err)
		require.Equal(t, "L-REMOTE", got)
		require.Equal(t, []string{"ENV_TOKEN"}, locs.tokens)
	})

	t.Run("remote empty", func(t *testing.T) {
		r := payments.NewResolver(payments.Static{AccessToken: "ENV_TOKEN"}, &fakeTokens{}, &fakeLocations{}, zap.NewNop())
		_, err := r.ResolveLocationID(ctx, "")
		require.ErrorIs(t, err, integration.ErrDataUnavailable)
	})

	t.Run("no token at all", func(t *testing.T) {
		r := payments.NewResolver(payments.Static{}, &fakeTokens{}, &fakeLocations{}, zap.NewNop())
		_, err := r.ResolveLocationID(ctx, "")
		require.ErrorIs(t, err, integration.ErrNotConfigured)
	})
}
