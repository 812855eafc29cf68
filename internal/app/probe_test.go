package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

func TestProbe_ReadsAndNormalizes(t *testing.T) {
	f := newFixture(t, saturday)
	f.browser.pages["https://example.com/p/1"] = rawPage("Alice", "$120,000.50")

	res, err := f.app.Probe(context.Background(), "https://example.com/p/1", true)
	require.NoError(t, err)

	assert.Equal(t, "$120,000.50", res.Raw.AccountValue)
	require.NotNil(t, res.Account)
	assert.Equal(t, "Alice", res.Account.Name)
	assert.InDelta(t, 120000.50, res.Account.Value, 0.001)
	assert.Empty(t, res.NormalizeError)
	assert.Nil(t, res.Screenshot, "stub page cannot capture screenshots")
	assert.True(t, f.browser.closed.Load())

	// Probing writes nothing.
	history, err := f.app.Reader.History()
	require.NoError(t, err)
	assert.Empty(t, history)
	_, ok := f.app.Sessions.Load(context.Background())
	assert.False(t, ok)
}

func TestProbe_ReportsNormalizeError(t *testing.T) {
	f := newFixture(t, mondayOpen)
	f.browser.pages["https://example.com/p/1"] = rawPage("Alice", "n/a")

	res, err := f.app.Probe(context.Background(), "https://example.com/p/1", false)
	require.NoError(t, err)
	assert.Nil(t, res.Account)
	assert.NotEmpty(t, res.NormalizeError)
}

func TestProbe_ScrapeFailure(t *testing.T) {
	f := newFixture(t, mondayOpen)

	_, err := f.app.Probe(context.Background(), "https://example.com/p/missing", false)
	require.Error(t, err)
	assert.Equal(t, models.KindElementNotFound, models.KindOf(err))
}

func TestProbe_NoCredentials(t *testing.T) {
	f := newFixture(t, mondayOpen)
	f.cfg.Credentials.Email = ""
	f.cfg.Credentials.Password = ""

	_, err := f.app.Probe(context.Background(), "https://example.com/p/1", false)
	require.Error(t, err)
	assert.Equal(t, models.KindNotAuthenticated, models.KindOf(err))
}
